package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/export"
	"classattend/internal/httpmiddleware"
	"classattend/internal/metrics"
	"classattend/internal/qrcode"
)

const sessionName = "attendance_session"

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) bool

// Options carries the HTTP settings of the server.
type Options struct {
	SessionSecret   string
	SessionTTL      time.Duration
	SecureCookies   bool
	AllowedOrigins  []string
	RateLimitPerMin int
	PublicBaseURL   string
	TimeZone        string

	// Probes are checked by /readyz, keyed by dependency name.
	Probes map[string]Probe
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// NewRouter builds the gin engine serving the attendance API.
func NewRouter(svc *attendance.Service, gate Gate, m *metrics.Metrics, opts Options) *gin.Engine {
	h := &Handler{
		svc:           svc,
		gate:          gate,
		metrics:       m,
		publicBaseURL: opts.PublicBaseURL,
		timeZone:      opts.TimeZone,
		writeExport:   export.Write,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/readyz", "/metrics"},
	}))
	r.Use(requestid.New())
	r.Use(corsMiddleware(opts.AllowedOrigins))
	r.Use(httpmiddleware.SecurityHeaders())

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", readyz(opts.Probes))

	limiter := httpmiddleware.NewLimiter(opts.RateLimitPerMin, opts.RateLimitPerMin)
	admin := auth.AdminAuth(gate)

	// Target of the day QR link.
	r.GET(qrcode.CheckInPath, h.HandleCheckInLink)
	r.POST(qrcode.CheckInPath, limiter.Middleware(), h.HandleCheckIn)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/config", h.HandleConfig)
		v1.GET("/attendance", h.HandleListAttendance)
		v1.GET("/attendance/recent", h.HandleRecent)
		v1.GET("/qr", h.HandleQR)

		v1.POST("/checkins", limiter.Middleware(), h.HandleCheckIn)
		if svc.WalkUpsGated() {
			v1.POST("/checkins/walkup", limiter.Middleware(), admin, h.HandleWalkUp)
		} else {
			v1.POST("/checkins/walkup", limiter.Middleware(), h.HandleWalkUp)
		}

		v1.POST("/admin/grant", limiter.Middleware(), h.HandleGrant)
		v1.POST("/admin/revoke", h.HandleRevoke)
		v1.GET("/admin/status", h.HandleAdminStatus)

		gated := v1.Group("/admin", admin)
		{
			gated.GET("/qr/today", h.HandleDayQR)
			gated.GET("/token/today", h.HandleDayToken)
			gated.GET("/export", h.HandleExport)
			gated.DELETE("/attendance/today", h.HandleDeleteToday)
			gated.DELETE("/attendance", h.HandleDeleteAll)
		}
	}

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		// Credentials cannot be combined with a wildcard origin.
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func readyz(probes map[string]Probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]bool, len(probes))
		for name, probe := range probes {
			ok := probe(ctx)
			checks[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, gin.H{"ready": status == http.StatusOK, "checks": checks})
	}
}
