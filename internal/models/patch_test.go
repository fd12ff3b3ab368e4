package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationPatch_ApplyTo(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	followup := time.Date(2025, 5, 8, 0, 0, 0, 0, time.UTC)

	t.Run("partial update leaves other fields", func(t *testing.T) {
		notes := "keep"
		app := Application{CompanyName: "Acme", RoleTitle: "Engineer", Status: StatusActive, Notes: &notes}
		rejected := StatusRejected

		ApplicationPatch{Status: &rejected}.ApplyTo(&app, now)

		assert.Equal(t, StatusRejected, app.Status)
		assert.Equal(t, "Acme", app.CompanyName)
		require.NotNil(t, app.Notes)
		assert.Equal(t, "keep", *app.Notes)
		assert.Nil(t, app.FollowedUpAt)
		assert.Equal(t, now, app.UpdatedAt)
	})

	t.Run("nullable fields can be cleared", func(t *testing.T) {
		app := Application{FollowupDate: &followup}
		ApplicationPatch{FollowupDate: Nullable[time.Time]{Set: true}}.ApplyTo(&app, now)
		assert.Nil(t, app.FollowupDate)

		ApplicationPatch{FollowupDate: NullableOf(followup)}.ApplyTo(&app, now)
		require.NotNil(t, app.FollowupDate)
		assert.Equal(t, followup, *app.FollowupDate)
	})

	t.Run("entering followed-up stamps followed_up_at", func(t *testing.T) {
		app := Application{Status: StatusActive}
		followedUp := StatusFollowedUp

		ApplicationPatch{Status: &followedUp}.ApplyTo(&app, now)

		require.NotNil(t, app.FollowedUpAt)
		stamped, err := ParseTimestamp(*app.FollowedUpAt)
		require.NoError(t, err)
		assert.True(t, stamped.Equal(now))
	})

	t.Run("re-entering followed-up replaces an old stamp", func(t *testing.T) {
		old := "2025-01-01T00:00:00Z"
		app := Application{Status: StatusPending, FollowedUpAt: &old}
		followedUp := StatusFollowedUp

		ApplicationPatch{Status: &followedUp}.ApplyTo(&app, now)

		assert.Equal(t, StatusFollowedUp, app.Status)
		require.NotNil(t, app.FollowedUpAt)
		stamped, err := ParseTimestamp(*app.FollowedUpAt)
		require.NoError(t, err)
		assert.True(t, stamped.Equal(now))
	})

	t.Run("staying followed-up keeps the stamp", func(t *testing.T) {
		old := "2025-04-20T00:00:00Z"
		app := Application{Status: StatusFollowedUp, FollowedUpAt: &old}
		followedUp := StatusFollowedUp
		notes := "pinged again"

		ApplicationPatch{Status: &followedUp, Notes: NullableOf(notes)}.ApplyTo(&app, now)

		require.NotNil(t, app.FollowedUpAt)
		assert.Equal(t, old, *app.FollowedUpAt)
	})

	t.Run("explicit followed_up_at wins", func(t *testing.T) {
		app := Application{Status: StatusActive}
		followedUp := StatusFollowedUp

		ApplicationPatch{Status: &followedUp, FollowedUpAt: NullableOf("2025-04-01")}.ApplyTo(&app, now)

		require.NotNil(t, app.FollowedUpAt)
		assert.Equal(t, "2025-04-01", *app.FollowedUpAt)
	})
}

func TestApplicationPatch_Empty(t *testing.T) {
	assert.True(t, ApplicationPatch{}.Empty())
	assert.False(t, ApplicationPatch{Notes: Nullable[string]{Set: true}}.Empty())
}
