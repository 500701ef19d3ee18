package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// NextRun computes the next instant a daily, weekly or monthly job at
// hh:mm should fire. Weekly and monthly jobs are anchored to now's weekday
// and day of month, so the first run is today when hh:mm has not passed
// yet. Monthly jobs anchored past the 28th skip shorter months.
func NextRun(frequency, hhmm string, now time.Time) (time.Time, error) {
	at, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}

	var spec string
	switch frequency {
	case "daily":
		spec = fmt.Sprintf("%d %d * * *", at.Minute(), at.Hour())
	case "weekly":
		spec = fmt.Sprintf("%d %d * * %d", at.Minute(), at.Hour(), int(now.Weekday()))
	case "monthly":
		spec = fmt.Sprintf("%d %d %d * *", at.Minute(), at.Hour(), now.Day())
	default:
		return time.Time{}, fmt.Errorf("unsupported frequency %q", frequency)
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if s, ok := schedule.(*cron.SpecSchedule); ok {
		s.Location = now.Location()
	}

	return schedule.Next(now), nil
}
