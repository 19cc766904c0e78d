package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dentflow/svc/notify"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to notify.Status
		want     bool
	}{
		{notify.StatusPending, notify.StatusSent, true},
		{notify.StatusPending, notify.StatusFailed, true},
		{notify.StatusPending, notify.StatusDelivered, false},
		{notify.StatusSent, notify.StatusDelivered, true},
		{notify.StatusSent, notify.StatusRead, true},
		{notify.StatusSent, notify.StatusFailed, true},
		{notify.StatusSent, notify.StatusPending, false},
		{notify.StatusDelivered, notify.StatusRead, true},
		{notify.StatusDelivered, notify.StatusFailed, false},
		{notify.StatusRead, notify.StatusDelivered, false},
		{notify.StatusFailed, notify.StatusPending, true},
		{notify.StatusFailed, notify.StatusSent, false},
		{notify.StatusRead, notify.StatusRead, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, notify.CanTransition(tt.from, tt.to))
		})
	}
}

func TestNotificationApply(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	t.Run("sent records external id and time", func(t *testing.T) {
		t.Parallel()
		n := notify.Notification{Status: notify.StatusPending, Error: "old"}

		changed, err := n.Apply(notify.StatusUpdate{Status: notify.StatusSent, ExternalID: "wamid.1", At: at})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, notify.StatusSent, n.Status)
		assert.Equal(t, "wamid.1", n.ExternalID)
		require.NotNil(t, n.SentAt)
		assert.Equal(t, at, *n.SentAt)
		assert.Equal(t, at, n.UpdatedAt)
		assert.Empty(t, n.Error)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		t.Parallel()
		n := notify.Notification{Status: notify.StatusSent, ExternalID: "wamid.1", UpdatedAt: at}

		changed, err := n.Apply(notify.StatusUpdate{Status: notify.StatusSent, ExternalID: "wamid.2", At: at.Add(time.Hour)})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "wamid.1", n.ExternalID)
		assert.Equal(t, at, n.UpdatedAt)
	})

	t.Run("invalid transition leaves notification untouched", func(t *testing.T) {
		t.Parallel()
		n := notify.Notification{Status: notify.StatusRead}

		changed, err := n.Apply(notify.StatusUpdate{Status: notify.StatusPending, At: at})
		require.ErrorIs(t, err, notify.ErrInvalidTransition)
		assert.False(t, changed)
		assert.Equal(t, notify.StatusRead, n.Status)
	})

	t.Run("failed keeps the error", func(t *testing.T) {
		t.Parallel()
		n := notify.Notification{Status: notify.StatusPending}

		_, err := n.Apply(notify.StatusUpdate{Status: notify.StatusFailed, Error: "boom", At: at})
		require.NoError(t, err)
		assert.Equal(t, "boom", n.Error)
	})

	t.Run("reopening clears delivery fields and counts a retry", func(t *testing.T) {
		t.Parallel()
		sent := at.Add(-time.Hour)
		n := notify.Notification{Status: notify.StatusFailed, Error: "boom", ExternalID: "x", SentAt: &sent, RetryCount: 1}

		_, err := n.Apply(notify.StatusUpdate{Status: notify.StatusPending, IncrementRetry: true, At: at})
		require.NoError(t, err)
		assert.Equal(t, notify.StatusPending, n.Status)
		assert.Equal(t, 2, n.RetryCount)
		assert.Empty(t, n.Error)
		assert.Empty(t, n.ExternalID)
		assert.Nil(t, n.SentAt)
	})

	t.Run("read sets delivered time when missing", func(t *testing.T) {
		t.Parallel()
		n := notify.Notification{Status: notify.StatusSent}

		_, err := n.Apply(notify.StatusUpdate{Status: notify.StatusRead, At: at})
		require.NoError(t, err)
		require.NotNil(t, n.DeliveredAt)
		assert.Equal(t, at, *n.DeliveredAt)
	})
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, notify.StatusPending.Terminal())
	assert.False(t, notify.StatusSent.Terminal())
	assert.True(t, notify.StatusDelivered.Terminal())
	assert.True(t, notify.StatusRead.Terminal())
	assert.True(t, notify.StatusFailed.Terminal())
}

func TestType_Valid(t *testing.T) {
	t.Parallel()

	for _, typ := range []notify.Type{notify.TypeConfirmation, notify.TypeReminder, notify.TypeCancellation, notify.TypeCustom} {
		assert.True(t, typ.Valid(), typ)
	}
	assert.False(t, notify.Type("").Valid())
	assert.False(t, notify.Type("reminder").Valid(), "types are case sensitive")
}
