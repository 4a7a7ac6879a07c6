package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	daySubject = "checkin"
	dayLayout  = "2006-01-02"
)

// dayClaims has no iat/exp/jti so that signing the same day twice yields the
// same token.
type dayClaims struct {
	Day string `json:"day"`
	jwt.RegisteredClaims
}

// DayTokens derives the self-service check-in token from the calendar date.
// A token is valid from its day's first instant until the local date changes.
type DayTokens struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// NewDayTokens creates a token authorizer. now must return times in the
// attendance time zone.
func NewDayTokens(signingKey, issuer string, now func() time.Time) *DayTokens {
	if now == nil {
		now = time.Now
	}
	return &DayTokens{key: []byte(signingKey), issuer: issuer, now: now}
}

// Current returns today's token.
func (t *DayTokens) Current() string {
	return t.For(t.now().Format(dayLayout))
}

// For returns the token of day (YYYY-MM-DD).
func (t *DayTokens) For(day string) string {
	claims := dayClaims{
		Day: day,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  t.issuer,
			Subject: daySubject,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return ""
	}
	return token
}

// Validate reports whether presented is today's token.
func (t *DayTokens) Validate(presented string) bool {
	if presented == "" {
		return false
	}
	current := t.Current()
	if current == "" {
		return false
	}
	return secretEqual(presented, current)
}

// Day returns the date a well-formed token was issued for. It does not say
// whether the token is still valid.
func (t *DayTokens) Day(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &dayClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.key, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithSubject(daySubject))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*dayClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	return claims.Day, nil
}
