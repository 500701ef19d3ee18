package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/semmidev/omran/internal/config"
	"github.com/semmidev/omran/internal/domain"
	"github.com/semmidev/omran/internal/infrastructure/logger"

	. "github.com/smartystreets/goconvey/convey"
)

type flakySink struct {
	calls int
	err   error
}

func (f *flakySink) Name() string        { return "flaky" }
func (f *flakySink) Destination() string { return "https://example.com/flaky" }

func (f *flakySink) Deliver(context.Context, domain.Delivery) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "flaky://ok", nil
}

func TestBreakerSink(t *testing.T) {
	Convey("Given a sink behind a breaker that trips after two failures", t, func() {
		inner := &flakySink{err: errors.New("timeout")}
		sink := WithBreaker(inner, config.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Hour}, logger.NewNop())
		ctx := context.Background()

		So(sink.Name(), ShouldEqual, "flaky")
		So(sink.Destination(), ShouldEqual, "https://example.com/flaky")

		Convey("Successful deliveries pass through", func() {
			inner.err = nil
			location, err := sink.Deliver(ctx, domain.Delivery{Filename: "a.omran"})
			So(err, ShouldBeNil)
			So(location, ShouldEqual, "flaky://ok")
			So(sink.State(), ShouldEqual, gobreaker.StateClosed)
		})

		Convey("After the threshold the remote is no longer called", func() {
			for i := 0; i < 2; i++ {
				_, err := sink.Deliver(ctx, domain.Delivery{})
				So(err, ShouldNotBeNil)
			}
			So(sink.State(), ShouldEqual, gobreaker.StateOpen)

			_, err := sink.Deliver(ctx, domain.Delivery{})
			So(errors.Is(err, gobreaker.ErrOpenState), ShouldBeTrue)
			So(inner.calls, ShouldEqual, 2)
		})
	})
}
