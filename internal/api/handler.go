package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"

	"classattend/internal/api/response"
	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/export"
	"classattend/internal/metrics"
	"classattend/internal/qrcode"
)

// Gate is the privilege gate as seen by the HTTP layer.
type Gate interface {
	Grant(ctx context.Context, presented string) (auth.Capability, error)
	Revoke(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) error
	IsGranted(ctx context.Context, token string) bool
}

// Handler serves the attendance API.
type Handler struct {
	svc           *attendance.Service
	gate          Gate
	metrics       *metrics.Metrics
	publicBaseURL string
	timeZone      string
	writeExport   func(io.Writer, export.Format, []export.Row) error
}

func (h *Handler) ledger() *attendance.Ledger { return h.svc.Ledger() }

// ---------- Health ----------

// Healthz is the liveness probe. It never touches a dependency.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ---------- Check-in ----------

type checkInResponse struct {
	Outcome string            `json:"outcome"`
	Message string            `json:"message"`
	Channel string            `json:"channel"`
	Record  attendance.Record `json:"record"`
}

// HandleCheckIn admits a self-service check-in carrying the day token, either
// in the body or in the ?token= query parameter of the QR link.
func (h *Handler) HandleCheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBind(&req); err != nil {
		response.RenderErr(c, response.ErrBadRequest(err))
		return
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(c, response.ErrBadRequest(err))
		return
	}

	adm, err := h.svc.SelfCheckIn(c.Request.Context(), req.Token, req.ParticipantID, req.ParticipantName)
	h.renderAdmission(c, attendance.ChannelToken, adm, err)
}

type checkInContract struct {
	Token  attendance.TokenState `json:"token"`
	Method string                `json:"method"`
	Submit string                `json:"submit"`
	Fields []string              `json:"fields"`
}

// HandleCheckInLink answers a GET of the link encoded in the day QR code. It
// admits nobody; it tells the client whether the link's token is still good
// and where to post the participant details.
func (h *Handler) HandleCheckInLink(c *gin.Context) {
	token := c.Query("token")
	if err := validation.Validate(token, validation.Length(0, maxTokenLength)); err != nil {
		response.RenderErr(c, response.ErrBadRequest(fmt.Errorf("token: %w", err)))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, checkInContract{
		Token:  h.svc.InspectToken(token),
		Method: http.MethodPost,
		Submit: c.Request.URL.RequestURI(),
		Fields: []string{"participant_id", "participant_name"},
	})
}

// HandleWalkUp admits an operator-entered check-in without a day token.
func (h *Handler) HandleWalkUp(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBind(&req); err != nil {
		response.RenderErr(c, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(c, response.ErrBadRequest(err))
		return
	}

	adm, err := h.svc.WalkUpCheckIn(c.Request.Context(), auth.CapabilityFrom(c), req.ParticipantID, req.ParticipantName)
	h.renderAdmission(c, attendance.ChannelWalkUp, adm, err)
}

func (h *Handler) renderAdmission(c *gin.Context, ch attendance.Channel, adm attendance.Admission, err error) {
	if err != nil {
		var rej *attendance.Rejection
		switch {
		case errors.As(err, &rej):
			h.metrics.CheckIns.WithLabelValues(string(ch), string(rej.Reason)).Inc()
			status := http.StatusBadRequest
			if rej.Reason == attendance.ReasonExpiredOrInvalidToken {
				status = http.StatusUnauthorized
			}
			response.RenderErr(c, response.ErrRejected(status, string(rej.Reason)))
		case errors.Is(err, attendance.ErrUnauthorized):
			h.metrics.CheckIns.WithLabelValues(string(ch), "unauthorized").Inc()
			response.RenderErr(c, response.ErrUnauthorized(err))
		default:
			h.metrics.CheckIns.WithLabelValues(string(ch), "error").Inc()
			response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("v1.renderAdmission -> %w", err)))
		}
		return
	}

	if adm.Duplicate {
		h.metrics.CheckIns.WithLabelValues(string(ch), "duplicate").Inc()
		c.JSON(http.StatusOK, checkInResponse{
			Outcome: "duplicate",
			Message: "already checked in today",
			Channel: string(ch),
			Record:  adm.Record,
		})
		return
	}

	h.metrics.CheckIns.WithLabelValues(string(ch), "recorded").Inc()
	zap.L().Info("check-in recorded",
		zap.String("participant_id", adm.Record.ParticipantID),
		zap.String("status", string(adm.Record.Status)),
		zap.String("channel", string(ch)),
	)
	c.JSON(http.StatusCreated, checkInResponse{
		Outcome: "recorded",
		Message: "checked in: " + string(adm.Record.Status),
		Channel: string(ch),
		Record:  adm.Record,
	})
}

// ---------- Reads ----------

// HandleConfig describes the classification settings for clients.
func (h *Handler) HandleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cutoff":    h.ledger().Cutoff().String(),
		"today":     h.ledger().Today(),
		"time_zone": h.timeZone,
	})
}

// HandleListAttendance lists one day (default today), latest first.
func (h *Handler) HandleListAttendance(c *gin.Context) {
	date := c.DefaultQuery("date", h.ledger().Today())
	records, err := h.ledger().ListForDate(c.Request.Context(), date)
	if err != nil {
		if errors.Is(err, attendance.ErrInvalidDate) {
			response.RenderErr(c, response.ErrBadRequest(err))
			return
		}
		response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("v1.HandleListAttendance -> %w", err)))
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "records": records})
}

const maxRecentLimit = 200

// HandleRecent lists the newest check-ins across all days.
func (h *Handler) HandleRecent(c *gin.Context) {
	limit := attendance.DefaultRecentLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			response.RenderErr(c, response.ErrBadRequest(errors.New("limit must be a positive integer")))
			return
		}
		limit = min(parsed, maxRecentLimit)
	}
	records, err := h.ledger().ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("v1.HandleRecent -> %w", err)))
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// ---------- QR ----------

// HandleQR encodes an arbitrary caller payload. It carries no authorization
// meaning.
func (h *Handler) HandleQR(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))
	png, err := qrcode.PNG(c.Query("data"), size)
	if err != nil {
		if errors.Is(err, qrcode.ErrPayload) {
			response.RenderErr(c, response.ErrBadRequest(err))
			return
		}
		response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("v1.HandleQR -> %w", err)))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// HandleDayQR renders today's check-in link as a QR image, or the bare token
// with ?raw=1.
func (h *Handler) HandleDayQR(c *gin.Context) {
	token, ok := h.issueDayToken(c)
	if !ok {
		return
	}
	payload := qrcode.CheckInURL(h.baseURL(c), token)
	if raw, _ := strconv.ParseBool(c.Query("raw")); raw {
		payload = token
	}
	size, _ := strconv.Atoi(c.Query("size"))
	png, err := qrcode.PNG(payload, size)
	if err != nil {
		response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("v1.HandleDayQR -> %w", err)))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// HandleDayToken returns today's token and check-in link.
func (h *Handler) HandleDayToken(c *gin.Context) {
	token, ok := h.issueDayToken(c)
	if !ok {
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{
		"day":   h.ledger().Today(),
		"token": token,
		"url":   qrcode.CheckInURL(h.baseURL(c), token),
	})
}

func (h *Handler) issueDayToken(c *gin.Context) (string, bool) {
	token, err := h.svc.IssueDayToken(c.Request.Context(), auth.CapabilityFrom(c))
	if err != nil {
		h.renderGateErr(c, "v1.issueDayToken", err)
		return "", false
	}
	return token, true
}

func (h *Handler) baseURL(c *gin.Context) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// ---------- Admin ----------

// HandleGrant exchanges the admin code for a capability, stored in the
// caller's session and returned for bearer use.
func (h *Handler) HandleGrant(c *gin.Context) {
	var req GrantRequest
	if err := c.ShouldBind(&req); err != nil {
		response.RenderErr(c, response.ErrBadRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(c, response.ErrBadRequest(err))
		return
	}

	capability, err := h.gate.Grant(c.Request.Context(), req.Code)
	if err != nil {
		if errors.Is(err, auth.ErrDenied) {
			h.metrics.AdminGrants.WithLabelValues("denied").Inc()
			zap.L().Warn("admin grant denied", zap.String("client_ip", c.ClientIP()))
			response.RenderErr(c, response.ErrInvalidAdminCode())
			return
		}
		response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("v1.HandleGrant -> h.gate.Grant -> %w", err)))
		return
	}

	session := sessions.Default(c)
	session.Set(auth.SessionKey, capability.Token)
	if err := session.Save(); err != nil {
		response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("v1.HandleGrant -> session.Save -> %w", err)))
		return
	}

	h.metrics.AdminGrants.WithLabelValues("granted").Inc()
	zap.L().Info("admin capability granted", zap.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusOK, gin.H{
		"granted":    true,
		"token":      capability.Token,
		"expires_at": capability.ExpiresAt,
	})
}

// HandleRevoke clears the caller's capability. It always succeeds.
func (h *Handler) HandleRevoke(c *gin.Context) {
	if token := auth.PresentedCapability(c); token != "" {
		if err := h.gate.Revoke(c.Request.Context(), token); err != nil {
			response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("v1.HandleRevoke -> %w", err)))
			return
		}
	}
	session := sessions.Default(c)
	session.Delete(auth.SessionKey)
	if err := session.Save(); err != nil {
		response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("v1.HandleRevoke -> session.Save -> %w", err)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": false})
}

// HandleAdminStatus reports whether the caller holds the capability.
func (h *Handler) HandleAdminStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"granted": h.gate.IsGranted(c.Request.Context(), auth.PresentedCapability(c))})
}

// HandleExport downloads the ledger (?scope=all|today, ?format=xlsx|csv).
func (h *Handler) HandleExport(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.RenderErr(c, response.ErrBadRequest(err))
		return
	}
	scope := attendance.Scope(c.DefaultQuery("scope", string(attendance.ScopeAll)))
	if scope != attendance.ScopeAll && scope != attendance.ScopeToday {
		response.RenderErr(c, response.ErrBadRequest(fmt.Errorf("unknown scope %q", scope)))
		return
	}

	records, err := h.svc.Export(c.Request.Context(), auth.CapabilityFrom(c), scope)
	if err != nil {
		h.renderGateErr(c, "v1.HandleExport", err)
		return
	}

	// Nothing reaches the client until the export has encoded.
	var buf bytes.Buffer
	if err := h.writeExport(&buf, format, export.Rows(records)); err != nil {
		response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("v1.HandleExport -> export.Write -> %w", err)))
		return
	}
	h.metrics.Exports.WithLabelValues(string(format)).Inc()
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename(h.ledger().Today())))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// HandleDeleteToday removes today's records.
func (h *Handler) HandleDeleteToday(c *gin.Context) {
	n, err := h.svc.DeleteToday(c.Request.Context(), auth.CapabilityFrom(c))
	if err != nil {
		h.renderGateErr(c, "v1.HandleDeleteToday", err)
		return
	}
	h.metrics.Deletes.WithLabelValues(string(attendance.ScopeToday)).Inc()
	zap.L().Info("attendance cleared", zap.String("scope", "today"), zap.Int64("deleted", n))
	c.JSON(http.StatusOK, gin.H{"scope": attendance.ScopeToday, "deleted": n})
}

// HandleDeleteAll removes every record.
func (h *Handler) HandleDeleteAll(c *gin.Context) {
	n, err := h.svc.DeleteAll(c.Request.Context(), auth.CapabilityFrom(c))
	if err != nil {
		h.renderGateErr(c, "v1.HandleDeleteAll", err)
		return
	}
	h.metrics.Deletes.WithLabelValues(string(attendance.ScopeAll)).Inc()
	zap.L().Info("attendance cleared", zap.String("scope", "all"), zap.Int64("deleted", n))
	c.JSON(http.StatusOK, gin.H{"scope": attendance.ScopeAll, "deleted": n})
}

func (h *Handler) renderGateErr(c *gin.Context, op string, err error) {
	if errors.Is(err, attendance.ErrUnauthorized) {
		response.RenderErr(c, response.ErrForbidden(err))
		return
	}
	response.RenderErr(c, response.ErrInternalServerError(fmt.Errorf("%s -> %w", op, err)))
}
