package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Current() string { return string(s) }
func (s staticTokens) Validate(presented string) bool { return presented != "" && presented == string(s) }

func (s staticTokens) Day(token string) (string, error) {
	switch token {
	case string(s):
		return "2024-05-20", nil
	case staleToken:
		return "2024-05-19", nil
	}
	return "", errors.New("not a day token")
}

var errNotAdmin = errors.New("not admin")

type stubGate struct{ valid string }

func (g stubGate) Verify(_ context.Context, capability string) error {
	if capability == "" || capability != g.valid {
		return errNotAdmin
	}
	return nil
}

const (
	todayToken = "token-of-the-day"
	staleToken = "token-of-yesterday"
	adminCap   = "admin-capability"
)

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 20, 8, 20, 0, 0, bangkok(t))}
	l := NewLedger(NewMemoryStore(), clock, Cutoff{Hour: 8, Minute: 35})
	return NewService(l, staticTokens(todayToken), stubGate{valid: adminCap}, opts...), clock
}

func rejectionReason(t *testing.T, err error) Reason {
	t.Helper()
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	return rej.Reason
}

func TestSelfCheckIn(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)

	adm, err := svc.SelfCheckIn(ctx, todayToken, "6501", "Alice")
	require.NoError(t, err)
	assert.False(t, adm.Duplicate)
	assert.Equal(t, ChannelToken, adm.Channel)
	assert.Equal(t, StatusPresent, adm.Record.Status)
	assert.Equal(t, "08:20:00", adm.Record.Time)

	dup, err := svc.SelfCheckIn(ctx, todayToken, "6501", "Alice")
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
	assert.Equal(t, adm.Record.ID, dup.Record.ID)

	clock.Set(time.Date(2024, 5, 20, 8, 35, 0, 0, bangkok(t)))
	onCutoff, err := svc.SelfCheckIn(ctx, " "+todayToken+" ", "6502", "Bob")
	require.NoError(t, err)
	assert.Equal(t, StatusPresent, onCutoff.Record.Status)

	clock.Set(time.Date(2024, 5, 20, 8, 35, 1, 0, bangkok(t)))
	late, err := svc.SelfCheckIn(ctx, todayToken, "6503", "Carol")
	require.NoError(t, err)
	assert.Equal(t, StatusLate, late.Record.Status)
}

func TestSelfCheckInRejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name   string
		token  string
		id     string
		pName  string
		reason Reason
	}{
		{"no token", "", "6501", "Alice", ReasonExpiredOrInvalidToken},
		{"wrong token", "yesterday", "6501", "Alice", ReasonExpiredOrInvalidToken},
		{"token checked before fields", "yesterday", "", "", ReasonExpiredOrInvalidToken},
		{"missing id", todayToken, "", "Alice", ReasonMissingFields},
		{"missing name", todayToken, "6501", "  ", ReasonMissingFields},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SelfCheckIn(ctx, tt.token, tt.id, tt.pName)
			assert.Equal(t, tt.reason, rejectionReason(t, err))
		})
	}

	_, err := svc.SelfCheckIn(ctx, "bad", "6501", "Alice")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.SelfCheckIn(ctx, todayToken, "", "Alice")
	assert.ErrorIs(t, err, ErrMissingFields)

	recs, err := svc.Ledger().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs, "rejected attempts leave no trace")
}

func TestWalkUpCheckIn(t *testing.T) {
	ctx := context.Background()

	t.Run("ungated", func(t *testing.T) {
		svc, _ := newTestService(t)
		assert.False(t, svc.WalkUpsGated())
		adm, err := svc.WalkUpCheckIn(ctx, "", "6501", "Alice")
		require.NoError(t, err)
		assert.Equal(t, ChannelWalkUp, adm.Channel)

		// A walk-up and a token check-in share the uniqueness rule.
		dup, err := svc.SelfCheckIn(ctx, todayToken, "6501", "Alice")
		require.NoError(t, err)
		assert.True(t, dup.Duplicate)

		_, err = svc.WalkUpCheckIn(ctx, "", "", "Alice")
		assert.Equal(t, ReasonMissingFields, rejectionReason(t, err))
	})

	t.Run("gated", func(t *testing.T) {
		svc, _ := newTestService(t, WithWalkUpGate(true))
		assert.True(t, svc.WalkUpsGated())

		_, err := svc.WalkUpCheckIn(ctx, "", "6501", "Alice")
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = svc.WalkUpCheckIn(ctx, "forged", "6501", "Alice")
		assert.ErrorIs(t, err, ErrUnauthorized)

		adm, err := svc.WalkUpCheckIn(ctx, adminCap, "6501", "Alice")
		require.NoError(t, err)
		assert.False(t, adm.Duplicate)
	})
}

func TestGatedOperations(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService(t)
	loc := bangkok(t)

	_, err := svc.WalkUpCheckIn(ctx, "", "yesterday-1", "Y")
	require.NoError(t, err)
	clock.Set(time.Date(2024, 5, 21, 8, 40, 0, 0, loc))
	_, err = svc.SelfCheckIn(ctx, todayToken, "6501", "Alice")
	require.NoError(t, err)
	clock.Set(time.Date(2024, 5, 21, 8, 10, 0, 0, loc))
	_, err = svc.SelfCheckIn(ctx, todayToken, "6502", "Bob")
	require.NoError(t, err)

	for _, capability := range []string{"", "forged"} {
		_, err = svc.IssueDayToken(ctx, capability)
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = svc.Export(ctx, capability, ScopeAll)
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = svc.DeleteToday(ctx, capability)
		assert.ErrorIs(t, err, ErrUnauthorized)
		_, err = svc.DeleteAll(ctx, capability)
		assert.ErrorIs(t, err, ErrUnauthorized)
	}

	token, err := svc.IssueDayToken(ctx, adminCap)
	require.NoError(t, err)
	assert.Equal(t, todayToken, token)

	all, err := svc.Export(ctx, adminCap, ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"yesterday-1", "6501", "6502"}, participantIDs(all))

	today, err := svc.Export(ctx, adminCap, ScopeToday)
	require.NoError(t, err)
	assert.Equal(t, []string{"6501", "6502"}, participantIDs(today), "export keeps insertion order")

	_, err = svc.Export(ctx, adminCap, Scope("week"))
	assert.Error(t, err)

	n, err := svc.DeleteToday(ctx, adminCap)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = svc.DeleteAll(ctx, adminCap)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.DeleteAll(ctx, adminCap)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestServiceWithoutGate(t *testing.T) {
	l := NewLedger(NewMemoryStore(), &fakeClock{}, Cutoff{Hour: 8, Minute: 35})
	svc := NewService(l, staticTokens(todayToken), nil)
	_, err := svc.DeleteAll(context.Background(), adminCap)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

type failingStore struct{ MemoryStore }

func (*failingStore) Insert(context.Context, Record) (Record, bool, error) {
	return Record{}, false, storeErr("insert", errors.New("disk full"))
}

func TestAdmitStoreFailure(t *testing.T) {
	l := NewLedger(&failingStore{}, &fakeClock{t: time.Now()}, Cutoff{Hour: 8, Minute: 35})
	svc := NewService(l, staticTokens(todayToken), nil)

	_, err := svc.SelfCheckIn(context.Background(), todayToken, "6501", "Alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)
	var rej *Rejection
	assert.False(t, errors.As(err, &rej), "store failures are not rejections")
}

func TestInspectToken(t *testing.T) {
	svc, _ := newTestService(t)

	assert.Equal(t, TokenState{Valid: true, Day: "2024-05-20", Today: "2024-05-20"}, svc.InspectToken(" "+todayToken+" "))
	assert.Equal(t, TokenState{Day: "2024-05-19", Today: "2024-05-20"}, svc.InspectToken(staleToken))
	assert.Equal(t, TokenState{Today: "2024-05-20"}, svc.InspectToken("garbage"))
	assert.Equal(t, TokenState{Today: "2024-05-20"}, svc.InspectToken(""))

	_, err := svc.SelfCheckIn(context.Background(), staleToken, "6501", "Alice")
	assert.Equal(t, ReasonExpiredOrInvalidToken, rejectionReason(t, err))
}
