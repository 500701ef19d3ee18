package storage

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
)

const (
	defaultMaxFailures = 3
	defaultOpenTimeout = time.Minute
)

type Logger interface {
	Warnf(template string, args ...interface{})
}

// BreakerSink stops calling a remote channel after repeated failures, so a
// dead service fails fast into the local fallback.
type BreakerSink struct {
	sink domain.Sink
	cb   *gobreaker.CircuitBreaker[string]
}

func WithBreaker(sink domain.Sink, cfg config.BreakerConfig, logger Logger) *BreakerSink {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}

	settings := gobreaker.Settings{
		Name:        sink.Name(),
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("Channel %s circuit %s -> %s", name, from, to)
		},
	}

	return &BreakerSink{
		sink: sink,
		cb:   gobreaker.NewCircuitBreaker[string](settings),
	}
}

func (b *BreakerSink) Name() string {
	return b.sink.Name()
}

func (b *BreakerSink) Destination() string {
	return b.sink.Destination()
}

func (b *BreakerSink) Deliver(ctx context.Context, d domain.Delivery) (string, error) {
	location, err := b.cb.Execute(func() (string, error) {
		return b.sink.Deliver(ctx, d)
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", b.sink.Name(), err)
	}
	return location, nil
}

func (b *BreakerSink) State() gobreaker.State {
	return b.cb.State()
}
