package comment

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("comment not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, c *Comment) (*Comment, error) {
	query := `
		INSERT INTO comments (post_id, parent_id, author_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, c.PostID, c.ParentID, c.AuthorID, c.Body).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) GetAuthor(ctx context.Context, id int) (int, error) {
	var authorID int
	err := r.db.QueryRowContext(ctx,
		`SELECT author_id FROM comments WHERE id = $1`, id).Scan(&authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return authorID, err
}

func (r *Repository) ListByPost(ctx context.Context, postID int) ([]*Comment, error) {
	query := `
		SELECT c.id, c.post_id, c.parent_id, c.author_id, u.username, c.body, c.created_at
		FROM comments c
		JOIN users u ON c.author_id = u.id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		c := &Comment{}
		if err := rows.Scan(&c.ID, &c.PostID, &c.ParentID, &c.AuthorID, &c.AuthorName, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
