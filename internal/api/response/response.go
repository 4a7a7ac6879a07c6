// Package response renders API errors as JSON bodies.
package response

import (
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Err is the JSON error body. The wrapped error is logged, never rendered.
type Err struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Err     error  `json:"-"`
}

// RenderErr writes e and aborts the handler chain. Server errors are logged
// with the request id.
func RenderErr(c *gin.Context, e *Err) {
	if e.Status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", requestid.Get(c)),
			zap.String("path", c.FullPath()),
			zap.Error(e.Err),
		)
	}
	c.AbortWithStatusJSON(e.Status, e)
}

// ErrBadRequest reports malformed input. The message is the error text.
func ErrBadRequest(err error) *Err {
	return &Err{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
}

// ErrRejected reports a refused check-in with its reason code.
func ErrRejected(status int, reason string) *Err {
	msg := "check-in rejected"
	switch reason {
	case "MissingFields":
		msg = "participant id and name are required"
	case "ExpiredOrInvalidToken":
		msg = "check-in link is invalid or has expired"
	}
	return &Err{Status: status, Message: msg, Reason: reason}
}

// ErrInvalidAdminCode is returned by grant for a wrong code.
func ErrInvalidAdminCode() *Err {
	return &Err{Status: http.StatusUnauthorized, Message: "invalid admin code"}
}

// ErrUnauthorized means no admin capability was presented.
func ErrUnauthorized(err error) *Err {
	return &Err{Status: http.StatusUnauthorized, Message: "admin capability required", Err: err}
}

// ErrForbidden means the presented capability was refused.
func ErrForbidden(err error) *Err {
	return &Err{Status: http.StatusForbidden, Message: "admin capability rejected", Err: err}
}

// ErrInternalServerError hides err from the client; RenderErr logs it.
func ErrInternalServerError(err error) *Err {
	return &Err{Status: http.StatusInternalServerError, Message: "internal server error", Err: err}
}
