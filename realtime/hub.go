// Package realtime fans committed post mutations out to connected
// websocket clients. Delivery is best effort: only clients connected at
// publish time are offered the event, and a stalled client never delays
// the publisher or other clients.
package realtime

import (
	"github.com/juju/pubsub/v2"
	"github.com/labstack/gommon/log"

	"feedboard/domain"
)

const postsTopic = "posts"

// Hub is the process-wide publish point for post events. It is
// constructed once at startup and handed to whatever produces or
// consumes events; it keeps no state of its own.
type Hub struct {
	hub *pubsub.SimpleHub
	log *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New("realtime")
	}
	return &Hub{
		hub: pubsub.NewSimpleHub(nil),
		log: logger,
	}
}

// Publish offers the event to every current subscriber, in publish
// order per subscriber. The returned waiter blocks until all
// subscribers have processed the event; request paths ignore it.
func (h *Hub) Publish(ev domain.PostEvent) func() {
	return h.hub.Publish(postsTopic, ev)
}

// Subscribe registers fn for every subsequently published event and
// returns its unsubscribe func. Past events are never replayed.
func (h *Hub) Subscribe(fn func(domain.PostEvent)) func() {
	return h.hub.Subscribe(postsTopic, func(topic string, data interface{}) {
		ev, ok := data.(domain.PostEvent)
		if !ok {
			h.log.Errorf("topic %s carried %T, expected PostEvent", topic, data)
			return
		}
		fn(ev)
	})
}
