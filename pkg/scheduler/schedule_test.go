package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dentflow/pkg/scheduler"
)

func TestSchedules(t *testing.T) {
	t.Parallel()

	at := func(day, hour, minute int) time.Time {
		return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		schedule scheduler.Schedule
		from     time.Time
		want     time.Time
		str      string
	}{
		{"every", scheduler.Every(10 * time.Minute), at(10, 9, 2), at(10, 9, 12), "every 10m0s"},
		{"every minutes", scheduler.EveryMinutes(30), at(10, 9, 0), at(10, 9, 30), "every 30m0s"},
		{"hourly", scheduler.Hourly(), at(10, 9, 30), at(10, 10, 0), "hourly at :00"},
		{"hourly on the hour", scheduler.Hourly(), at(10, 9, 0), at(10, 10, 0), "hourly at :00"},
		{"hourly at", scheduler.HourlyAt(15), at(10, 9, 10), at(10, 9, 15), "hourly at :15"},
		{"hourly at passed", scheduler.HourlyAt(15), at(10, 9, 15), at(10, 10, 15), "hourly at :15"},
		{"daily", scheduler.Daily(), at(10, 9, 0), at(11, 0, 0), "daily at 00:00"},
		{"daily at later today", scheduler.DailyAt(18, 30), at(10, 9, 0), at(10, 18, 30), "daily at 18:30"},
		{"daily at tomorrow", scheduler.DailyAt(3, 0), at(10, 9, 0), at(11, 3, 0), "daily at 03:00"},
		{"daily at clamps", scheduler.DailyAt(25, -5), at(10, 9, 0), at(10, 23, 0), "daily at 23:00"},
		{"cron every five minutes", scheduler.MustCron("*/5 * * * *"), at(10, 9, 2), at(10, 9, 5), "*/5 * * * *"},
		{"cron hourly", scheduler.MustCron("0 * * * *"), at(10, 9, 0), at(10, 10, 0), "0 * * * *"},
		{"cron nightly", scheduler.MustCron("0 3 * * *"), at(10, 9, 0), at(11, 3, 0), "0 3 * * *"},
		{"cron descriptor", scheduler.MustCron("@every 10m"), at(10, 9, 0), at(10, 9, 10), "@every 10m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.schedule.Next(tt.from))
			assert.Equal(t, tt.str, tt.schedule.String())
		})
	}
}

func TestCron_InvalidExpression(t *testing.T) {
	t.Parallel()

	s, err := scheduler.Cron("every tuesday")
	require.ErrorIs(t, err, scheduler.ErrInvalidCronExpression)
	assert.Nil(t, s)

	assert.Panics(t, func() {
		scheduler.MustCron("61 * * * *")
	})
}
