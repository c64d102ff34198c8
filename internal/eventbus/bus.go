package eventbus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// Topic names published by the domain services. Listeners subscribe to
// these at process start, before the HTTP server accepts traffic.
const (
	TopicCommentCreated = "comment.created"
	TopicMessageSent    = "message.sent"
	TopicVoteCast       = "vote.cast"
)

var publishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roundtable_eventbus_publish_total",
	Help: "Events published per topic.",
}, []string{"topic"})

// Handler receives the payload published for a topic. Handlers run on the
// publisher's goroutine; anything slow must hand off work itself.
type Handler func(payload any)

// Bus is a synchronous in-process publish/subscribe register. It decouples
// the services that know when something happened from the listeners that
// know what to do about it. A Bus is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logrus.Logger
}

func New(log *logrus.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for a topic. Multiple handlers per topic
// are allowed and are invoked in registration order.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish invokes every handler registered for topic, in registration
// order, on the caller's goroutine. A panicking handler is recovered and
// logged so it cannot take down its siblings or the publisher.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := b.handlers[topic]
	b.mu.RUnlock()

	publishTotal.WithLabelValues(topic).Inc()

	for i, h := range handlers {
		b.dispatch(topic, i, h, payload)
	}
}

func (b *Bus) dispatch(topic string, idx int, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"topic":   topic,
				"handler": idx,
				"panic":   r,
			}).Error("event handler panicked")
		}
	}()
	h(payload)
}
