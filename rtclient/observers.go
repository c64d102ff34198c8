package rtclient

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SAPAAAA/Roundtable-sub001/internal/realtime"
)

// ChatMessage mirrors the wire body of a NEW_CHAT_MESSAGE frame.
type ChatMessage struct {
	ID             int       `json:"id"`
	ConversationID int       `json:"conversation_id"`
	SenderID       int       `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Notification mirrors the wire body of a NEW_COMMENT_NOTIFICATION frame.
type Notification struct {
	ID          int       `json:"id"`
	RecipientID int       `json:"recipient_id"`
	ActorID     *int      `json:"actor_id"`
	Type        string    `json:"type"`
	TargetType  string    `json:"target_type"`
	TargetID    int       `json:"target_id"`
	Content     string    `json:"content"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatObserver translates chat frames into exactly one callback per valid
// payload. Frames with a different discriminant are ignored; malformed
// bodies are dropped and logged, never raised.
type ChatObserver struct {
	onMessage func(ChatMessage)
	log       *logrus.Logger
}

func NewChatObserver(onMessage func(ChatMessage), log *logrus.Logger) *ChatObserver {
	return &ChatObserver{onMessage: onMessage, log: log}
}

func (o *ChatObserver) Update(env Envelope) {
	if env.Type != realtime.TypeChatMessage {
		return
	}
	var m ChatMessage
	if err := json.Unmarshal(env.Message, &m); err != nil {
		o.log.WithError(err).Warn("malformed chat payload dropped")
		return
	}
	if m.ID == 0 || m.ConversationID == 0 || m.Content == "" {
		o.log.Warn("incomplete chat payload dropped")
		return
	}
	o.onMessage(m)
}

// NotificationObserver translates notification frames into one callback
// per valid payload, same contract as ChatObserver.
type NotificationObserver struct {
	onNotification func(Notification)
	log            *logrus.Logger
}

func NewNotificationObserver(onNotification func(Notification), log *logrus.Logger) *NotificationObserver {
	return &NotificationObserver{onNotification: onNotification, log: log}
}

func (o *NotificationObserver) Update(env Envelope) {
	if env.Type != realtime.TypeCommentNotification {
		return
	}
	var n Notification
	if err := json.Unmarshal(env.Notification, &n); err != nil {
		o.log.WithError(err).Warn("malformed notification payload dropped")
		return
	}
	if n.ID == 0 || n.RecipientID == 0 || n.Type == "" {
		o.log.Warn("incomplete notification payload dropped")
		return
	}
	o.onNotification(n)
}
