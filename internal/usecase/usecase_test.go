package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/juju/clock/testclock"

	"github.com/semmidev/omran/internal/adapter/database"
	"github.com/semmidev/omran/internal/adapter/repository"
	"github.com/semmidev/omran/internal/adapter/sealer"
	"github.com/semmidev/omran/internal/domain"
	"github.com/semmidev/omran/internal/infrastructure/logger"
	"github.com/semmidev/omran/internal/infrastructure/metrics"
	"github.com/semmidev/omran/internal/infrastructure/notifier"
)

var epoch = time.Date(2026, 1, 5, 1, 0, 0, 0, time.UTC)

type fixture struct {
	ctx     context.Context
	store   *database.MemoryStore
	repo    *repository.Backups
	hub     *notifier.Hub
	clock   *testclock.Clock
	local   *fakeSink
	opener  *fakeOpener
	backup  *Backup
	restore *Restore
	cleanup *Cleanup
	sched   *Schedule
	export  *Export
	imports *Import
}

func newFixture(sinks ...domain.Sink) *fixture {
	f := &fixture{
		ctx:    context.Background(),
		store:  database.NewMemory(),
		hub:    notifier.New(),
		clock:  testclock.NewClock(epoch),
		local:  &fakeSink{name: ChannelFile},
		opener: &fakeOpener{},
	}
	f.repo = repository.NewBackups(f.store)

	log := logger.NewNop()
	rec := metrics.New()
	seal := sealer.New()

	f.backup = NewBackup(NewCollector(f.store), f.repo, f.hub, f.clock, log, rec, 0)
	f.restore = NewRestore(f.repo, f.store, f.backup, f.hub, log, rec, false)
	f.cleanup = NewCleanup(f.repo, f.store, f.hub, log, rec)
	f.sched = NewSchedule(f.store, f.backup, f.cleanup, f.clock, log, true)
	f.export = NewExport(f.repo, f.local, sinks, seal, f.opener, f.clock, log, rec)
	f.imports = NewImport(f.repo, seal, f.hub, f.clock, log, rec, 0)
	return f
}

func (f *fixture) put(key string, v any) {
	if err := domain.PutValue(f.ctx, f.store, key, v); err != nil {
		panic(err)
	}
}

func (f *fixture) value(key string) any {
	v, err := domain.GetValue[any](f.ctx, f.store, key, nil)
	if err != nil {
		panic(err)
	}
	return v
}

func (f *fixture) count() int {
	list, err := f.repo.List(f.ctx)
	if err != nil {
		panic(err)
	}
	return len(list)
}

func salesAndSettings() domain.BackupOptions {
	return domain.BackupOptions{IncludeSalesData: true, IncludeSettings: true}
}

type fakeSink struct {
	name string
	dest string
	err  error

	mu  sync.Mutex
	got []domain.Delivery
}

func (s *fakeSink) Name() string        { return s.name }
func (s *fakeSink) Destination() string { return s.dest }

func (s *fakeSink) Deliver(_ context.Context, d domain.Delivery) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.got = append(s.got, d)
	return "fake://" + s.name + "/" + d.Filename, nil
}

func (s *fakeSink) deliveries() []domain.Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Delivery(nil), s.got...)
}

type fakeOpener struct {
	mu     sync.Mutex
	opened []string
}

func (o *fakeOpener) Open(rawURL string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, rawURL)
	return nil
}

func (o *fakeOpener) urls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

var errUnavailable = errors.New("service unavailable")

// eventually polls cond until it holds or a second passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
