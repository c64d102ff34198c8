package message

import (
	"github.com/sirupsen/logrus"

	"github.com/SAPAAAA/Roundtable-sub001/internal/eventbus"
	"github.com/SAPAAAA/Roundtable-sub001/internal/realtime"
)

// Pusher is satisfied by the connection registry.
type Pusher interface {
	Push(userID int, env realtime.Envelope)
}

// Listener pushes freshly persisted direct messages to the recipients'
// live connections. Offline recipients are simply skipped; the durable
// row is their recovery path on next history fetch.
type Listener struct {
	pusher Pusher
	log    *logrus.Logger
}

func NewListener(pusher Pusher, log *logrus.Logger) *Listener {
	return &Listener{pusher: pusher, log: log}
}

func (l *Listener) Register(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.TopicMessageSent, l.onMessageSent)
}

func (l *Listener) onMessageSent(payload any) {
	ev, ok := payload.(*SentEvent)
	if !ok || ev.Message == nil {
		l.log.WithField("topic", eventbus.TopicMessageSent).Warn("unexpected payload type, dropping")
		return
	}
	for _, recipientID := range ev.Recipients {
		l.pusher.Push(recipientID, realtime.Envelope{
			Type:    realtime.TypeChatMessage,
			Message: ev.Message,
		})
	}
}
