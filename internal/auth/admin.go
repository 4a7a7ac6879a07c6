package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrDenied is returned by Grant for any code other than the admin code.
	ErrDenied = errors.New("admin code rejected")
	// ErrNoCapability is returned when no valid capability was presented.
	ErrNoCapability = errors.New("admin capability required")
	// ErrRevoked is returned for a capability that was explicitly revoked.
	ErrRevoked = errors.New("admin capability revoked")
)

const adminRole = "admin"

// DefaultAdminTTL bounds how long a granted capability stays usable.
const DefaultAdminTTL = 12 * time.Hour

// Claims represents the admin capability payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Capability is a granted admin capability. Token is what callers present to
// gated operations.
type Capability struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GateConfig configures the privilege gate. When CodeHash (bcrypt) is set it
// takes precedence over Code.
type GateConfig struct {
	Code       string
	CodeHash   string
	SigningKey string
	Issuer     string
	TTL        time.Duration
}

// Gate grants and checks the admin capability.
type Gate struct {
	code        [sha256.Size]byte
	hasCode     bool
	codeHash    []byte
	key         []byte
	issuer      string
	ttl         time.Duration
	revocations Revocations
	now         func() time.Time
}

// NewGate builds a gate. revocations may be nil, in which case an in-memory
// list is used.
func NewGate(cfg GateConfig, revocations Revocations) *Gate {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultAdminTTL
	}
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}
	return &Gate{
		code:        sha256.Sum256([]byte(cfg.Code)),
		hasCode:     cfg.Code != "",
		codeHash:    []byte(cfg.CodeHash),
		key:         []byte(cfg.SigningKey),
		issuer:      cfg.Issuer,
		ttl:         cfg.TTL,
		revocations: revocations,
		now:         time.Now,
	}
}

// Grant issues a capability when presented equals the admin code.
func (g *Gate) Grant(_ context.Context, presented string) (Capability, error) {
	if !g.matches(presented) {
		return Capability{}, ErrDenied
	}

	now := g.now()
	exp := now.Add(g.ttl)
	claims := Claims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   adminRole,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.key)
	if err != nil {
		return Capability{}, fmt.Errorf("sign capability -> %w", err)
	}
	return Capability{Token: token, ExpiresAt: exp.Truncate(time.Second)}, nil
}

func (g *Gate) matches(presented string) bool {
	if presented == "" {
		return false
	}
	if len(g.codeHash) > 0 {
		return bcrypt.CompareHashAndPassword(g.codeHash, []byte(presented)) == nil
	}
	if !g.hasCode {
		return false
	}
	digest := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(digest[:], g.code[:]) == 1
}

// secretEqual compares fixed-size digests so the time taken does not depend
// on how long either input is.
func secretEqual(presented, want string) bool {
	a, b := sha256.Sum256([]byte(presented)), sha256.Sum256([]byte(want))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// Verify checks that token is a live, unrevoked admin capability.
func (g *Gate) Verify(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoCapability
	}
	claims, err := g.parse(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoCapability, err)
	}
	revoked, err := g.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("g.revocations.IsRevoked -> %w", err)
	}
	if revoked {
		return ErrRevoked
	}
	return nil
}

// IsGranted reports whether token currently carries the admin capability.
func (g *Gate) IsGranted(ctx context.Context, token string) bool {
	return g.Verify(ctx, token) == nil
}

// Revoke invalidates token until its natural expiry. Tokens that are already
// invalid are ignored.
func (g *Gate) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := g.parse(token)
	if err != nil {
		return nil
	}
	if err := g.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("g.revocations.Revoke -> %w", err)
	}
	return nil
}

func (g *Gate) parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return g.key, nil
	}, jwt.WithIssuer(g.issuer), jwt.WithSubject(adminRole), jwt.WithExpirationRequired(), jwt.WithTimeFunc(g.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Role != adminRole || claims.ID == "" {
		return nil, errors.New("not an admin capability")
	}
	return claims, nil
}
