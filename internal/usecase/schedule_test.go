package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/semmidev/omran/internal/domain"

	. "github.com/smartystreets/goconvey/convey"
)

func dailyAt(hhmm string) domain.ScheduleConfig {
	cfg := domain.DefaultSchedule()
	cfg.Enabled = true
	cfg.Time = hhmm
	return cfg
}

func TestScheduleValidation(t *testing.T) {
	Convey("Given the default schedule", t, func() {
		f := newFixture()

		Convey("Get returns the default before anything is saved", func() {
			cfg, err := f.sched.Get(f.ctx)
			So(err, ShouldBeNil)
			So(cfg, ShouldResemble, domain.DefaultSchedule())
		})

		Convey("An invalid configuration is rejected and the previous one kept", func() {
			So(f.sched.Apply(f.ctx, dailyAt("03:30")), ShouldBeNil)

			bad := dailyAt("25:00")
			bad.Frequency = "hourly"
			bad.MaxBackups = 0
			err := f.sched.Apply(f.ctx, bad)
			So(domain.KindOf(err), ShouldEqual, domain.KindScheduleConfig)
			So(domain.Message(err), ShouldContainSubstring, "frequency")
			So(domain.Message(err), ShouldContainSubstring, "time")
			So(domain.Message(err), ShouldContainSubstring, "maxBackups")

			cfg, err := f.sched.Get(f.ctx)
			So(err, ShouldBeNil)
			So(cfg.Time, ShouldEqual, "03:30")

			next, armed := f.sched.NextRun()
			So(armed, ShouldBeTrue)
			So(next, ShouldEqual, time.Date(2026, 1, 5, 3, 30, 0, 0, time.UTC))
		})
	})
}

func TestScheduleTimer(t *testing.T) {
	Convey("Given a daily 02:00 schedule at 01:00", t, func() {
		f := newFixture()
		f.put("customers", []any{"c1"})
		defer f.sched.Stop()

		So(f.sched.Apply(f.ctx, dailyAt("02:00")), ShouldBeNil)

		next, armed := f.sched.NextRun()
		So(armed, ShouldBeTrue)
		So(next, ShouldEqual, time.Date(2026, 1, 5, 2, 0, 0, 0, time.UTC))

		state, err := f.sched.State(f.ctx)
		So(err, ShouldBeNil)
		So(state.NextRunAt, ShouldNotBeNil)
		So(state.NextRunAt.Equal(next), ShouldBeTrue)

		Convey("When the instant arrives an automatic backup is created and the timer re-arms", func() {
			So(f.clock.WaitAdvance(time.Hour, time.Second, 1), ShouldBeNil)

			So(eventually(func() bool { return f.count() == 1 }), ShouldBeTrue)
			list, _ := f.repo.List(f.ctx)
			So(list[0].IsAutomatic, ShouldBeTrue)
			So(list[0].Name, ShouldEqual, "Automatic backup 2026-01-05 02:00")
			So(list[0].DataTypes, ShouldHaveLength, len(domain.DataGroups)+1)

			So(eventually(func() bool {
				next, armed := f.sched.NextRun()
				return armed && next.Equal(time.Date(2026, 1, 6, 2, 0, 0, 0, time.UTC))
			}), ShouldBeTrue)

			So(eventually(func() bool {
				st, err := f.sched.State(f.ctx)
				return err == nil && st.LastRunAt != nil && st.LastError == ""
			}), ShouldBeTrue)
		})

		Convey("A weekly run finishing after midnight keeps its weekday", func() {
			cfg := dailyAt("23:59")
			cfg.Frequency = domain.FrequencyWeekly
			So(f.sched.Apply(f.ctx, cfg), ShouldBeNil)

			next, armed := f.sched.NextRun()
			So(armed, ShouldBeTrue)
			So(next, ShouldEqual, time.Date(2026, 1, 5, 23, 59, 0, 0, time.UTC))

			// The clock reads Tuesday 00:01 by the time the run re-arms.
			So(f.clock.WaitAdvance(23*time.Hour+time.Minute, time.Second, 1), ShouldBeNil)
			So(eventually(func() bool { return f.count() == 1 }), ShouldBeTrue)

			So(eventually(func() bool {
				next, armed := f.sched.NextRun()
				return armed && next.Equal(time.Date(2026, 1, 12, 23, 59, 0, 0, time.UTC))
			}), ShouldBeTrue)
		})

		Convey("Disabling cancels the pending timer", func() {
			cfg := dailyAt("02:00")
			cfg.Enabled = false
			So(f.sched.Apply(f.ctx, cfg), ShouldBeNil)

			_, armed := f.sched.NextRun()
			So(armed, ShouldBeFalse)

			f.clock.Advance(2 * time.Hour)
			time.Sleep(50 * time.Millisecond)
			So(f.count(), ShouldEqual, 0)
		})

		Convey("Re-applying replaces the timer instead of adding one", func() {
			So(f.sched.Apply(f.ctx, dailyAt("01:30")), ShouldBeNil)

			So(f.clock.WaitAdvance(time.Hour, time.Second, 1), ShouldBeNil)
			So(eventually(func() bool { return f.count() == 1 }), ShouldBeTrue)
			time.Sleep(50 * time.Millisecond)
			So(f.count(), ShouldEqual, 1)
		})

		Convey("Retention runs after the automatic backup", func() {
			cfg := dailyAt("02:00")
			cfg.MaxBackups = 1
			So(f.sched.Apply(f.ctx, cfg), ShouldBeNil)

			_, err := f.backup.Create(f.ctx, CreateRequest{Name: "manual", Options: salesAndSettings()})
			So(err, ShouldBeNil)

			So(f.clock.WaitAdvance(time.Hour, time.Second, 1), ShouldBeNil)
			So(eventually(func() bool {
				list, err := f.repo.List(f.ctx)
				return err == nil && len(list) == 1 && strings.HasPrefix(list[0].Name, "Automatic backup")
			}), ShouldBeTrue)
		})
	})
}

func TestScheduleStart(t *testing.T) {
	Convey("Given a persisted enabled schedule", t, func() {
		f := newFixture()
		f.put("customers", []any{"c1"})
		f.put(domain.ScheduleKey, dailyAt("02:00"))
		defer f.sched.Stop()

		Convey("Start arms the next instant", func() {
			So(f.sched.Start(f.ctx), ShouldBeNil)
			next, armed := f.sched.NextRun()
			So(armed, ShouldBeTrue)
			So(next, ShouldEqual, time.Date(2026, 1, 5, 2, 0, 0, 0, time.UTC))
			So(f.count(), ShouldEqual, 0)
		})

		Convey("A run missed while the process was down fires at Start", func() {
			missed := epoch.Add(-23 * time.Hour)
			f.put(domain.ScheduleStateKey, domain.ScheduleState{NextRunAt: &missed})

			So(f.sched.Start(f.ctx), ShouldBeNil)
			So(eventually(func() bool { return f.count() == 1 }), ShouldBeTrue)

			So(eventually(func() bool {
				next, armed := f.sched.NextRun()
				return armed && next.Equal(time.Date(2026, 1, 5, 2, 0, 0, 0, time.UTC))
			}), ShouldBeTrue)
		})

		Convey("A disabled schedule does not arm", func() {
			f.put(domain.ScheduleKey, domain.DefaultSchedule())
			So(f.sched.Start(f.ctx), ShouldBeNil)
			_, armed := f.sched.NextRun()
			So(armed, ShouldBeFalse)
		})
	})
}

func TestCleanup(t *testing.T) {
	Convey("Given five backups created a minute apart", t, func() {
		f := newFixture()
		f.put("customers", []any{"c1"})

		var ids []string
		for i := 0; i < 5; i++ {
			meta, err := f.backup.Create(f.ctx, CreateRequest{Name: "b", Options: salesAndSettings()})
			So(err, ShouldBeNil)
			ids = append(ids, meta.ID)
			f.clock.Advance(time.Minute)
		}

		Convey("Retention keeps the three newest", func() {
			cfg := domain.DefaultSchedule()
			cfg.MaxBackups = 3

			deleted, err := f.cleanup.Apply(f.ctx, cfg)
			So(err, ShouldBeNil)
			So(deleted, ShouldEqual, 2)

			list, _ := f.repo.List(f.ctx)
			So(list, ShouldHaveLength, 3)
			So(list[0].ID, ShouldEqual, ids[4])
			So(list[1].ID, ShouldEqual, ids[3])
			So(list[2].ID, ShouldEqual, ids[2])
		})

		Convey("Nothing is deleted when auto cleanup is off", func() {
			cfg := domain.DefaultSchedule()
			cfg.MaxBackups = 1
			cfg.AutoCleanup = false

			deleted, err := f.cleanup.Apply(f.ctx, cfg)
			So(err, ShouldBeNil)
			So(deleted, ShouldEqual, 0)
			So(f.count(), ShouldEqual, 5)
		})

		Convey("Execute uses the persisted configuration", func() {
			cfg := domain.DefaultSchedule()
			cfg.MaxBackups = 2
			f.put(domain.ScheduleKey, cfg)

			So(f.cleanup.Execute(f.ctx), ShouldBeNil)
			So(f.count(), ShouldEqual, 2)
		})
	})
}
