package notification

import (
	"github.com/sirupsen/logrus"

	"github.com/SAPAAAA/Roundtable-sub001/internal/comment"
	"github.com/SAPAAAA/Roundtable-sub001/internal/eventbus"
)

// Listener bridges the event bus to the notification service. It is
// registered once at process start and lives for the process lifetime.
type Listener struct {
	service *Service
	log     *logrus.Logger
}

func NewListener(service *Service, log *logrus.Logger) *Listener {
	return &Listener{service: service, log: log}
}

func (l *Listener) Register(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.TopicCommentCreated, l.onCommentCreated)
}

func (l *Listener) onCommentCreated(payload any) {
	ev, ok := payload.(*comment.CreatedEvent)
	if !ok || ev.Comment == nil {
		l.log.WithField("topic", eventbus.TopicCommentCreated).Warn("unexpected payload type, dropping")
		return
	}
	l.service.NotifyNewComment(ev.Comment)
}
