package scheduler

import (
	"time"

	"github.com/juju/clock"
)

// CancelToken disarms a pending one-shot job.
type CancelToken interface {
	// Cancel reports whether the job was still pending.
	Cancel() bool
}

// Timer arms one-shot jobs against an injectable clock.
type Timer struct {
	clock clock.Clock
}

func NewTimer(clk clock.Clock) *Timer {
	return &Timer{clock: clk}
}

// At runs job once at the given instant; instants in the past fire
// immediately.
func (t *Timer) At(when time.Time, job func()) CancelToken {
	d := when.Sub(t.clock.Now())
	if d < 0 {
		d = 0
	}
	return token{t.clock.AfterFunc(d, job)}
}

type token struct {
	timer clock.Timer
}

func (t token) Cancel() bool {
	return t.timer.Stop()
}
