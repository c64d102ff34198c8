package sub

import "time"

type Subtable struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   int       `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateRequest struct {
	Name        string `json:"name" validate:"required,alphanum,min=3,max=50"`
	Description string `json:"description" validate:"max=500"`
}

type InviteModeratorRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
}
