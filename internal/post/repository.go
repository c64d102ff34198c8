package post

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("post not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *Post) (*Post, error) {
	query := `
		INSERT INTO posts (subtable_id, author_id, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, p.SubtableID, p.AuthorID, p.Title, p.Body).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) GetByID(ctx context.Context, id int) (*Post, error) {
	p := &Post{}
	query := `
		SELECT p.id, p.subtable_id, p.author_id, u.username, p.title, p.body, p.created_at,
		       COALESCE((SELECT SUM(value) FROM votes WHERE target_type = 'post' AND target_id = p.id), 0)
		FROM posts p
		JOIN users u ON p.author_id = u.id
		WHERE p.id = $1
	`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.SubtableID, &p.AuthorID, &p.AuthorName, &p.Title, &p.Body, &p.CreatedAt, &p.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetMeta is the narrow lookup the notify flow depends on.
func (r *Repository) GetMeta(ctx context.Context, postID int) (int, string, error) {
	var authorID int
	var title string
	err := r.db.QueryRowContext(ctx,
		`SELECT author_id, title FROM posts WHERE id = $1`, postID).
		Scan(&authorID, &title)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	return authorID, title, err
}

func (r *Repository) ListBySubtable(ctx context.Context, subtableID, limit, offset int) ([]*Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	query := `
		SELECT p.id, p.subtable_id, p.author_id, u.username, p.title, p.body, p.created_at,
		       COALESCE((SELECT SUM(value) FROM votes WHERE target_type = 'post' AND target_id = p.id), 0)
		FROM posts p
		JOIN users u ON p.author_id = u.id
		WHERE p.subtable_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, subtableID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		p := &Post{}
		if err := rows.Scan(&p.ID, &p.SubtableID, &p.AuthorID, &p.AuthorName, &p.Title, &p.Body, &p.CreatedAt, &p.Score); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
