package notifier

import (
	"testing"
	"time"

	"github.com/semmidev/omran/internal/domain"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHub(t *testing.T) {
	Convey("Given a hub with a data-restored subscriber", t, func() {
		hub := New()
		got := make(chan string, 4)
		unsubscribe := hub.Subscribe(domain.TopicDataRestored, func(topic string) {
			got <- topic
		})

		Convey("Publishing the topic reaches the subscriber", func() {
			hub.Publish(domain.TopicDataRestored)

			select {
			case topic := <-got:
				So(topic, ShouldEqual, domain.TopicDataRestored)
			case <-time.After(time.Second):
				So("no notification received", ShouldBeEmpty)
			}
		})

		Convey("Other topics are not delivered", func() {
			hub.Publish(domain.TopicBackupCreated)

			select {
			case topic := <-got:
				So(topic, ShouldBeEmpty)
			case <-time.After(100 * time.Millisecond):
			}
		})

		Convey("Unsubscribed handlers stop receiving", func() {
			unsubscribe()
			hub.Publish(domain.TopicDataRestored)

			select {
			case topic := <-got:
				So(topic, ShouldBeEmpty)
			case <-time.After(100 * time.Millisecond):
			}
		})
	})
}
