package realtime

// Wire discriminants. Every frame on the live channel is one JSON envelope
// tagged with one of these, except the literal "ping"/"pong" keepalive pair.
const (
	TypeCommentNotification = "NEW_COMMENT_NOTIFICATION"
	TypeChatMessage         = "NEW_CHAT_MESSAGE"
)

// Keepalive frames are raw text, not JSON.
const (
	PingFrame = "ping"
	PongFrame = "pong"
)

// Envelope is the discriminated payload sent over a live connection. The
// body field matching the Type is set; the other is omitted.
type Envelope struct {
	Type         string `json:"type"`
	Notification any    `json:"notification,omitempty"`
	Message      any    `json:"message,omitempty"`
}
