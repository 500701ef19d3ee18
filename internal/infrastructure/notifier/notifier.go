package notifier

import (
	"github.com/juju/pubsub/v2"
)

// Hub broadcasts payload-less notifications such as "data-restored" to every
// subscriber in the process.
type Hub struct {
	hub *pubsub.SimpleHub
}

func New() *Hub {
	return &Hub{hub: pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{})}
}

// Publish delivers topic asynchronously; it never blocks on subscribers.
func (h *Hub) Publish(topic string) {
	_ = h.hub.Publish(topic, nil)
}

// Subscribe registers fn for topic and returns the function that removes it.
func (h *Hub) Subscribe(topic string, fn func(topic string)) func() {
	return h.hub.Subscribe(topic, func(t string, _ interface{}) {
		fn(t)
	})
}
