package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/clock"

	"github.com/semmidev/omran/internal/domain"
	"github.com/semmidev/omran/internal/infrastructure/scheduler"
)

// Schedule owns the automatic backup timer. At most one timer is armed at a
// time; every Apply cancels the previous one before arming a new one.
type Schedule struct {
	store     domain.Store
	creator   Creator
	cleanup   *Cleanup
	timer     *scheduler.Timer
	clock     clock.Clock
	logger    Logger
	validate  *validator.Validate
	runMissed bool

	mu         sync.Mutex
	ctx        context.Context
	token      scheduler.CancelToken
	generation uint64
	next       time.Time
	// anchor is the scheduled instant the armed run stands for. It equals
	// next except for a missed run, which fires now on behalf of anchor.
	anchor time.Time
}

func NewSchedule(
	store domain.Store,
	creator Creator,
	cleanup *Cleanup,
	clk clock.Clock,
	logger Logger,
	runMissed bool,
) *Schedule {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Schedule{
		store:     store,
		creator:   creator,
		cleanup:   cleanup,
		timer:     scheduler.NewTimer(clk),
		clock:     clk,
		logger:    logger,
		validate:  v,
		runMissed: runMissed,
		ctx:       context.Background(),
	}
}

// Get returns the persisted configuration, or the default one.
func (s *Schedule) Get(ctx context.Context) (domain.ScheduleConfig, error) {
	cfg, err := domain.GetValue(ctx, s.store, domain.ScheduleKey, domain.DefaultSchedule())
	if err != nil {
		return cfg, domain.NewStorageError("failed to read schedule configuration", err)
	}
	return cfg, nil
}

func (s *Schedule) Validate(cfg domain.ScheduleConfig) error {
	err := s.validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewScheduleConfigError("invalid schedule configuration", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
	return domain.NewScheduleConfigError(strings.Join(msgs, "; "), err)
}

// Apply validates and persists cfg, then re-arms the timer. An invalid cfg
// leaves the previous configuration and timer in place.
func (s *Schedule) Apply(ctx context.Context, cfg domain.ScheduleConfig) error {
	if err := s.Validate(cfg); err != nil {
		return err
	}
	if err := domain.PutValue(ctx, s.store, domain.ScheduleKey, cfg); err != nil {
		return domain.NewStorageError("failed to save schedule configuration", err)
	}

	s.mu.Lock()
	s.disarmLocked()
	var next time.Time
	if cfg.Enabled {
		var err error
		if next, err = s.armLocked(cfg); err != nil {
			s.mu.Unlock()
			return domain.NewScheduleConfigError("cannot compute the next run", err)
		}
	}
	s.mu.Unlock()

	if cfg.Enabled {
		s.logger.Infof("Automatic backups enabled (%s at %s), next run at %s",
			cfg.Frequency, cfg.Time, next.Format(time.RFC3339))
	} else {
		s.logger.Infof("Automatic backups disabled")
	}
	s.saveState(ctx, func(st *domain.ScheduleState) {
		st.NextRunAt = optionalTime(next)
	})
	return nil
}

// Start arms the timer from the persisted configuration. When the persisted
// next run has already passed and missed runs are enabled, the job fires
// right away. Jobs run with ctx.
func (s *Schedule) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	cfg, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		s.logger.Infof("Automatic backups are disabled")
		return nil
	}
	if err := s.Validate(cfg); err != nil {
		return err
	}

	state, err := s.State(ctx)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.disarmLocked()
	if s.runMissed && state.NextRunAt != nil && !state.NextRunAt.After(now) {
		// The state is written by the run itself.
		s.logger.Warnf("Automatic backup due at %s was missed, running now", state.NextRunAt.Format(time.RFC3339))
		s.armAtLocked(now, *state.NextRunAt)
		s.mu.Unlock()
		return nil
	}
	next, err := s.armLocked(cfg)
	s.mu.Unlock()
	if err != nil {
		return domain.NewScheduleConfigError("cannot compute the next run", err)
	}

	s.logger.Infof("Automatic backups scheduled, next run at %s", next.Format(time.RFC3339))
	s.saveState(ctx, func(st *domain.ScheduleState) {
		st.NextRunAt = optionalTime(next)
	})
	return nil
}

// Stop cancels the pending timer, if any.
func (s *Schedule) Stop() {
	s.mu.Lock()
	s.disarmLocked()
	s.mu.Unlock()
}

// NextRun reports the instant the armed timer fires.
func (s *Schedule) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next, s.token != nil
}

func (s *Schedule) State(ctx context.Context) (domain.ScheduleState, error) {
	state, err := domain.GetValue(ctx, s.store, domain.ScheduleStateKey, domain.ScheduleState{})
	if err != nil {
		return state, domain.NewStorageError("failed to read schedule state", err)
	}
	return state, nil
}

func (s *Schedule) armLocked(cfg domain.ScheduleConfig) (time.Time, error) {
	next, err := scheduler.NextRun(cfg.Frequency, cfg.Time, s.clock.Now())
	if err != nil {
		return time.Time{}, err
	}
	s.armAtLocked(next, next)
	return next, nil
}

// rearmLocked arms the run that follows anchor, the scheduled instant that
// just fired. Weekly and monthly runs keep their weekday and day of month
// even when the backup finishes after midnight.
func (s *Schedule) rearmLocked(cfg domain.ScheduleConfig, anchor time.Time) (time.Time, error) {
	if anchor.IsZero() {
		return s.armLocked(cfg)
	}

	now := s.clock.Now()
	next, err := scheduler.NextRun(cfg.Frequency, cfg.Time, anchor)
	for err == nil && !next.After(now) {
		next, err = scheduler.NextRun(cfg.Frequency, cfg.Time, next)
	}
	if err != nil {
		return time.Time{}, err
	}
	s.armAtLocked(next, next)
	return next, nil
}

func (s *Schedule) armAtLocked(when, anchor time.Time) {
	s.generation++
	gen := s.generation
	s.next = when
	s.anchor = anchor
	s.token = s.timer.At(when, func() { s.fire(gen) })
}

func (s *Schedule) disarmLocked() {
	if s.token != nil {
		s.token.Cancel()
		s.token = nil
	}
	s.generation++
	s.next = time.Time{}
	s.anchor = time.Time{}
}

func (s *Schedule) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.token = nil
	ctx := s.ctx
	anchor := s.anchor
	s.mu.Unlock()

	runErr := s.run(ctx)
	ranAt := s.clock.Now()

	// Re-read: the configuration may have changed while the backup ran.
	cfg, err := s.Get(ctx)
	if err != nil {
		s.logger.Errorf("Cannot re-arm automatic backups: %v", err)
	}

	var next time.Time
	s.mu.Lock()
	if err == nil && gen == s.generation && cfg.Enabled {
		if next, err = s.rearmLocked(cfg, anchor); err != nil {
			s.logger.Errorf("Cannot re-arm automatic backups: %v", err)
		}
	}
	s.mu.Unlock()

	s.saveState(ctx, func(st *domain.ScheduleState) {
		st.LastRunAt = &ranAt
		st.LastError = ""
		if runErr != nil {
			st.LastError = runErr.Error()
		}
		if !next.IsZero() {
			st.NextRunAt = &next
		}
	})
}

func (s *Schedule) run(ctx context.Context) error {
	cfg, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		return nil
	}

	now := s.clock.Now()
	s.logger.Infof("=== Triggered automatic backup ===")
	if _, err := s.creator.Create(ctx, CreateRequest{
		Name:        "Automatic backup " + now.Format("2006-01-02 15:04"),
		Description: fmt.Sprintf("Created by the %s backup schedule", cfg.Frequency),
		Options:     domain.AllData(),
		Automatic:   true,
	}); err != nil {
		return err
	}

	if _, err := s.cleanup.Apply(ctx, cfg); err != nil {
		return err
	}
	return nil
}

func (s *Schedule) saveState(ctx context.Context, mutate func(*domain.ScheduleState)) {
	state, err := s.State(ctx)
	if err != nil {
		s.logger.Warnf("Cannot update schedule state: %v", err)
		return
	}
	mutate(&state)
	if err := domain.PutValue(ctx, s.store, domain.ScheduleStateKey, state); err != nil {
		s.logger.Warnf("Cannot update schedule state: %v", err)
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
