package message

import "time"

type Conversation struct {
	ID        int       `json:"id"`
	Type      string    `json:"type"` // 'private' or 'group'
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID             int       `json:"id"`
	ConversationID int       `json:"conversation_id"`
	SenderID       int       `json:"sender_id"`
	SenderName     string    `json:"sender_name"` // Denormalized for UI speed (fetched via JOIN)
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// SentEvent is published after a message's durable insert has succeeded.
// Recipients are the other participants of the conversation, resolved at
// send time so the listener does not go back to the database.
type SentEvent struct {
	Message    *Message
	Recipients []int
}

type StartConversationRequest struct {
	TargetID int `json:"target_id" validate:"required,gt=0"`
}

type SendRequest struct {
	ConversationID int    `json:"conversation_id" validate:"required,gt=0"`
	Content        string `json:"content" validate:"required,min=1,max=4000"`
}
