package post

import "time"

type Post struct {
	ID         int       `json:"id"`
	SubtableID int       `json:"subtable_id"`
	AuthorID   int       `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateRequest struct {
	SubtableID int    `json:"subtable_id" validate:"required,gt=0"`
	Title      string `json:"title" validate:"required,min=1,max=300"`
	Body       string `json:"body" validate:"max=40000"`
}
