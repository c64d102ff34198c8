package comment

import "time"

type Comment struct {
	ID         int       `json:"id"`
	PostID     int       `json:"post_id"`
	ParentID   *int      `json:"parent_id,omitempty"` // nil for a top-level comment
	AuthorID   int       `json:"author_id"`
	AuthorName string    `json:"author_name"` // Denormalized for UI speed (fetched via JOIN)
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreatedEvent is published on the bus after a comment's durable insert
// has succeeded. Listeners receive the persisted comment, never a draft.
type CreatedEvent struct {
	Comment *Comment
}

type CreateRequest struct {
	PostID   int    `json:"post_id" validate:"required,gt=0"`
	ParentID *int   `json:"parent_id" validate:"omitempty,gt=0"`
	Body     string `json:"body" validate:"required,min=1,max=10000"`
}
