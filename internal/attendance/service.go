package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DayTokens issues and checks the check-in token of the current day.
type DayTokens interface {
	Current() string
	Validate(presented string) bool
	Day(token string) (string, error)
}

// Authorizer verifies an admin capability.
type Authorizer interface {
	Verify(ctx context.Context, capability string) error
}

// Channel is how a check-in reached the ledger.
type Channel string

const (
	ChannelToken  Channel = "token"
	ChannelWalkUp Channel = "walkup"
)

// Scope selects which records a gated operation covers.
type Scope string

const (
	ScopeAll   Scope = "all"
	ScopeToday Scope = "today"
)

// Admission is a check-in accepted by the coordinator. Duplicate is set when
// the participant was already recorded that day; Record is then the earlier
// entry.
type Admission struct {
	Record    Record  `json:"record"`
	Duplicate bool    `json:"duplicate"`
	Channel   Channel `json:"channel"`
}

// Service coordinates admission and the admin-gated ledger operations.
type Service struct {
	ledger      *Ledger
	tokens      DayTokens
	gate        Authorizer
	gateWalkUps bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithWalkUpGate requires an admin capability for walk-up check-ins.
func WithWalkUpGate(enabled bool) ServiceOption {
	return func(s *Service) { s.gateWalkUps = enabled }
}

// NewService wires the coordinator.
func NewService(ledger *Ledger, tokens DayTokens, gate Authorizer, opts ...ServiceOption) *Service {
	s := &Service{ledger: ledger, tokens: tokens, gate: gate}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger exposes the underlying ledger for read-only callers.
func (s *Service) Ledger() *Ledger { return s.ledger }

// WalkUpsGated reports whether walk-up check-ins need an admin capability.
func (s *Service) WalkUpsGated() bool { return s.gateWalkUps }

// SelfCheckIn admits a check-in presented with a day token.
func (s *Service) SelfCheckIn(ctx context.Context, token, participantID, participantName string) (Admission, error) {
	if !s.tokens.Validate(strings.TrimSpace(token)) {
		return Admission{}, reject(ReasonExpiredOrInvalidToken, ErrUnauthorized)
	}
	return s.admit(ctx, ChannelToken, participantID, participantName)
}

// TokenState describes a presented day token without admitting anyone.
// Day is empty when the token is not one this service issued.
type TokenState struct {
	Valid bool   `json:"valid"`
	Day   string `json:"day,omitempty"`
	Today string `json:"today"`
}

// InspectToken reports whether token would be accepted by SelfCheckIn and,
// for a well-formed but stale token, which day it was issued for.
func (s *Service) InspectToken(token string) TokenState {
	token = strings.TrimSpace(token)
	st := TokenState{Today: s.ledger.Today()}
	if token == "" {
		return st
	}
	st.Valid = s.tokens.Validate(token)
	if day, err := s.tokens.Day(token); err == nil {
		st.Day = day
	}
	return st
}

// WalkUpCheckIn admits an operator-entered check-in without a day token.
// capability is only checked when walk-ups are gated.
func (s *Service) WalkUpCheckIn(ctx context.Context, capability, participantID, participantName string) (Admission, error) {
	if s.gateWalkUps {
		if err := s.authorize(ctx, capability); err != nil {
			return Admission{}, err
		}
	}
	return s.admit(ctx, ChannelWalkUp, participantID, participantName)
}

func (s *Service) admit(ctx context.Context, ch Channel, participantID, participantName string) (Admission, error) {
	res, err := s.ledger.Record(ctx, participantID, participantName, s.ledger.Now())
	if err != nil {
		if errors.Is(err, ErrMissingFields) {
			return Admission{}, reject(ReasonMissingFields, err)
		}
		return Admission{}, fmt.Errorf("s.ledger.Record -> %w", err)
	}
	return Admission{Record: res.Record, Duplicate: res.Duplicate, Channel: ch}, nil
}

// IssueDayToken returns today's check-in token to an admin.
func (s *Service) IssueDayToken(ctx context.Context, capability string) (string, error) {
	if err := s.authorize(ctx, capability); err != nil {
		return "", err
	}
	return s.tokens.Current(), nil
}

// Export returns the records of scope in insertion order.
func (s *Service) Export(ctx context.Context, capability string, scope Scope) ([]Record, error) {
	if err := s.authorize(ctx, capability); err != nil {
		return nil, err
	}
	switch scope {
	case ScopeToday:
		recs, err := s.ledger.ListForDate(ctx, s.ledger.Today())
		if err != nil {
			return nil, fmt.Errorf("s.ledger.ListForDate -> %w", err)
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
		return recs, nil
	case ScopeAll, "":
		recs, err := s.ledger.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("s.ledger.ListAll -> %w", err)
		}
		return recs, nil
	default:
		return nil, fmt.Errorf("unknown export scope %q", scope)
	}
}

// DeleteToday removes today's records.
func (s *Service) DeleteToday(ctx context.Context, capability string) (int64, error) {
	if err := s.authorize(ctx, capability); err != nil {
		return 0, err
	}
	n, err := s.ledger.DeleteForDate(ctx, s.ledger.Today())
	if err != nil {
		return 0, fmt.Errorf("s.ledger.DeleteForDate -> %w", err)
	}
	return n, nil
}

// DeleteAll removes every record.
func (s *Service) DeleteAll(ctx context.Context, capability string) (int64, error) {
	if err := s.authorize(ctx, capability); err != nil {
		return 0, err
	}
	n, err := s.ledger.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("s.ledger.DeleteAll -> %w", err)
	}
	return n, nil
}

func (s *Service) authorize(ctx context.Context, capability string) error {
	if s.gate == nil {
		return ErrUnauthorized
	}
	if err := s.gate.Verify(ctx, capability); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}
