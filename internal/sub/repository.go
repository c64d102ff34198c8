package sub

import (
	"context"
	"database/sql"
	"errors"
)

var (
	ErrNotFound         = errors.New("subtable not found")
	ErrAlreadyModerator = errors.New("user is already a moderator")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, s *Subtable) (*Subtable, error) {
	query := `
		INSERT INTO subtables (name, description, creator_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, s.Name, s.Description, s.CreatorID).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) GetByName(ctx context.Context, name string) (*Subtable, error) {
	s := &Subtable{}
	query := `SELECT id, name, description, creator_id, created_at FROM subtables WHERE name = $1`
	err := r.db.QueryRowContext(ctx, query, name).
		Scan(&s.ID, &s.Name, &s.Description, &s.CreatorID, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) Subscribe(ctx context.Context, subtableID, userID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (subtable_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (subtable_id, user_id) DO NOTHING
	`, subtableID, userID)
	return err
}

func (r *Repository) Unsubscribe(ctx context.Context, subtableID, userID int) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM subscriptions WHERE subtable_id = $1 AND user_id = $2
	`, subtableID, userID)
	return err
}

func (r *Repository) AddModerator(ctx context.Context, subtableID, userID, invitedBy int) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO moderators (subtable_id, user_id, invited_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (subtable_id, user_id) DO NOTHING
	`, subtableID, userID, invitedBy)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyModerator
	}
	return nil
}
