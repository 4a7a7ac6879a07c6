package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifierFunc func(ctx context.Context, token string) error

func (f verifierFunc) Verify(ctx context.Context, token string) error { return f(ctx, token) }

func init() {
	gin.SetMode(gin.TestMode)
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"":             "",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"BEARER xyz.1": "xyz.1",
	} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, BearerToken(c), "header %q", header)
	}
}

func TestAdminAuth(t *testing.T) {
	v := verifierFunc(func(_ context.Context, token string) error {
		switch token {
		case "good":
			return nil
		case "revoked":
			return ErrRevoked
		case "broken":
			return errors.New("redis down")
		}
		return ErrNoCapability
	})

	r := gin.New()
	r.GET("/admin", AdminAuth(v), func(c *gin.Context) {
		c.String(http.StatusOK, CapabilityFrom(c))
	})

	tests := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer good", http.StatusOK},
		{"Bearer forged", http.StatusForbidden},
		{"Bearer revoked", http.StatusForbidden},
		{"Bearer broken", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.status, w.Code, "header %q", tt.header)
		if tt.status == http.StatusOK {
			assert.Equal(t, "good", w.Body.String())
		}
	}
}

func TestPresentedCapabilityFromSession(t *testing.T) {
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("0123456789abcdef"))))
	r.POST("/login", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(SessionKey, "from-session")
		require.NoError(t, s.Save())
		c.Status(http.StatusNoContent)
	})
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, PresentedCapability(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	r.ServeHTTP(w, req)
	assert.Equal(t, "from-session", w.Body.String())

	// The bearer header wins over the session.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	req.Header.Set("Authorization", "Bearer from-header")
	r.ServeHTTP(w, req)
	assert.Equal(t, "from-header", w.Body.String())

	// Another client without the cookie presents nothing.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Empty(t, w.Body.String())
}

func TestPresentedCapabilityWithoutSessions(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, PresentedCapability(c))
}
