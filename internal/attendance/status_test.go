package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bangkok(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)
	return loc
}

func TestClassify(t *testing.T) {
	loc := bangkok(t)
	cutoff := Cutoff{Hour: 8, Minute: 35}
	at := func(h, m, s, ns int) time.Time { return time.Date(2024, 5, 20, h, m, s, ns, loc) }

	tests := []struct {
		name string
		ts   time.Time
		want Status
	}{
		{"midnight", at(0, 0, 0, 0), StatusPresent},
		{"well before", at(7, 50, 0, 0), StatusPresent},
		{"one second before", at(8, 34, 59, 0), StatusPresent},
		{"exact cutoff", at(8, 35, 0, 0), StatusPresent},
		{"one nanosecond after", at(8, 35, 0, 1), StatusLate},
		{"one second after", at(8, 35, 1, 0), StatusLate},
		{"end of day", at(23, 59, 59, 0), StatusLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ts, cutoff))
		})
	}
}

func TestClassifyUsesLocalDate(t *testing.T) {
	loc := bangkok(t)
	// 01:00 UTC is 08:00 in Bangkok.
	ts := time.Date(2024, 5, 20, 1, 0, 0, 0, time.UTC).In(loc)
	assert.Equal(t, StatusPresent, Classify(ts, Cutoff{Hour: 8, Minute: 35}))
	assert.Equal(t, "2024-05-20", Day(ts))
	assert.Equal(t, "08:00:00", TimeOfDay(ts))
}

func TestCutoffValidate(t *testing.T) {
	assert.NoError(t, Cutoff{Hour: 8, Minute: 35}.Validate())
	assert.NoError(t, Cutoff{Hour: 23, Minute: 59}.Validate())
	assert.Error(t, Cutoff{Hour: 24}.Validate())
	assert.Error(t, Cutoff{Hour: 8, Minute: 60}.Validate())
	assert.Error(t, Cutoff{Hour: -1}.Validate())
	assert.Equal(t, "08:05", Cutoff{Hour: 8, Minute: 5}.String())
}

func TestValidDay(t *testing.T) {
	assert.True(t, ValidDay("2024-05-20"))
	assert.False(t, ValidDay("2024-5-20"))
	assert.False(t, ValidDay("20/05/2024"))
	assert.False(t, ValidDay(""))
	assert.False(t, ValidDay("2024-02-30"))
}
