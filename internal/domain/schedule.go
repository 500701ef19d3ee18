package domain

import "time"

const (
	ScheduleKey      = "backup_schedule"
	ScheduleStateKey = "backup_schedule_state"
)

const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

type ScheduleConfig struct {
	Enabled     bool   `json:"enabled"`
	Frequency   string `json:"frequency" validate:"required,oneof=daily weekly monthly"`
	Time        string `json:"time" validate:"required,datetime=15:04"`
	MaxBackups  int    `json:"maxBackups" validate:"gt=0"`
	AutoCleanup bool   `json:"autoCleanup"`
}

// DefaultSchedule is used when nothing has been persisted yet.
func DefaultSchedule() ScheduleConfig {
	return ScheduleConfig{
		Enabled:     false,
		Frequency:   FrequencyDaily,
		Time:        "02:00",
		MaxBackups:  10,
		AutoCleanup: true,
	}
}

// ScheduleState records the bookkeeping of the automatic backup timer so
// that a restarted process can tell whether a run was missed.
type ScheduleState struct {
	NextRunAt *time.Time `json:"nextRunAt,omitempty"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}
