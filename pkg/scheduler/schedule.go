package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule determines when a recurring task should run
type Schedule interface {
	Next(from time.Time) time.Time
	String() string
}

type interval time.Duration

func (d interval) Next(from time.Time) time.Time { return from.Add(time.Duration(d)) }
func (d interval) String() string                { return fmt.Sprintf("every %v", time.Duration(d)) }

// spec is a clock-aligned schedule backed by a cron spec, labelled for Status
type spec struct {
	label string
	cron  cron.Schedule
}

func (s spec) Next(from time.Time) time.Time { return s.cron.Next(from) }
func (s spec) String() string                { return s.label }

// Every runs at a fixed interval measured from the previous fire time.
func Every(d time.Duration) Schedule {
	return interval(d)
}

// EveryMinutes is Every expressed in whole minutes.
func EveryMinutes(n int) Schedule {
	return interval(time.Duration(n) * time.Minute)
}

// Hourly runs at the top of every hour.
func Hourly() Schedule {
	return HourlyAt(0)
}

// HourlyAt runs every hour at the given minute, clamped to 0..59.
func HourlyAt(minute int) Schedule {
	minute = clamp(minute, 59)
	return mustSpec(fmt.Sprintf("hourly at :%02d", minute), fmt.Sprintf("%d * * * *", minute))
}

// Daily runs at midnight in the scheduler's clock location.
func Daily() Schedule {
	return DailyAt(0, 0)
}

// DailyAt runs once a day at hour:minute, clamped to a valid time.
func DailyAt(hour, minute int) Schedule {
	hour, minute = clamp(hour, 23), clamp(minute, 59)
	return mustSpec(fmt.Sprintf("daily at %02d:%02d", hour, minute), fmt.Sprintf("%d %d * * *", minute, hour))
}

// Cron parses a standard five-field cron expression ("*/5 * * * *").
// Descriptors such as "@hourly" and "@every 10m" are accepted as well.
func Cron(expr string) (Schedule, error) {
	s, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronExpression, fmt.Errorf("%q: %w", expr, err))
	}
	return spec{label: expr, cron: s}, nil
}

// MustCron is Cron that panics on a bad expression.
func MustCron(expr string) Schedule {
	s, err := Cron(expr)
	if err != nil {
		panic(err)
	}
	return s
}

func mustSpec(label, expr string) Schedule {
	s := MustCron(expr).(spec)
	s.label = label
	return s
}

func clamp(v, hi int) int {
	return min(max(v, 0), hi)
}
