package notification

import "time"

type Type string

// TypeMessage, TypeSystem and TypeReportUpdate are part of the stored enum
// but have no producer here; chat delivery is push-only and moderation
// reports live outside this service.
const (
	TypeCommentReply Type = "comment_reply"
	TypePostReply    Type = "post_reply"
	TypeMention      Type = "mention"
	TypeMessage      Type = "message"
	TypeModInvite    Type = "mod_invite"
	TypeSystem       Type = "system"
	TypeReportUpdate Type = "report_update"
)

// Notification is the durable record. The live push carries a projection
// of it; the row is the source of truth when the push is lost.
type Notification struct {
	ID          int       `json:"id"`
	RecipientID int       `json:"recipient_id"`
	ActorID     *int      `json:"actor_id,omitempty"` // nil for system or unattributed events
	Type        Type      `json:"type"`
	TargetType  string    `json:"target_type"` // 'post', 'comment', 'subtable', 'conversation'
	TargetID    int       `json:"target_id"`
	Content     string    `json:"content"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// FetchOptions narrows and pages a notification listing. IsRead nil means
// both read and unread.
type FetchOptions struct {
	Limit  int
	Offset int
	IsRead *bool
}
