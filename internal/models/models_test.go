package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusVocabulary(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("ghosted").Valid())

	assert.True(t, StatusRejected.Terminal())
	assert.True(t, StatusAccepted.Terminal())
	assert.False(t, StatusFollowedUp.Terminal())

	s, err := ParseStatus("followed-up")
	require.NoError(t, err)
	assert.Equal(t, StatusFollowedUp, s)

	_, err = ParseStatus("Followed-Up")
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2025-01-01T00:00:00", want},
		{"2025-01-01T00:00:00Z", want},
		{"2025-01-01T02:00:00+02:00", want},
		{"2025-01-01 00:00:00", want},
		{"2025-01-01 00:00:00.000000", want},
		{"2025-01-01 00:00:00+00:00", want},
		{"2025-01-01 00:00:00+00", want},
		{"2025-01-01T00:00", want},
		{"2025-01-01", want},
		{"  2025-01-01  ", want},
		{"2025-01-01T00:00:00.123456", want.Add(123456 * time.Microsecond)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	for _, bad := range []string{"", "yesterday", "01/02/2025", "2025-13-01"} {
		_, err := ParseTimestamp(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 8, time.FixedZone("IST", 19800))
	parsed, err := ParseTimestamp(FormatTimestamp(ts))
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2025, 1, 2, 1, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), DateOf(ts))
}

func TestApplicationLabel(t *testing.T) {
	app := Application{CompanyName: "Acme", RoleTitle: "Engineer"}
	assert.Equal(t, "Acme - Engineer", app.Label())
}

func TestSessionIsExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.IsExpired(now))
	assert.True(t, s.IsExpired(now.Add(time.Minute)))
}
