package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("notification not found")

// Store is the durable side of the delivery layer. Insert runs inside its
// own transaction; a notification is only ever pushed after Insert has
// returned, so a live push can never precede its committed row.
type Store interface {
	Insert(ctx context.Context, n *Notification) (*Notification, error)
	Fetch(ctx context.Context, recipientID int, opts FetchOptions) ([]*Notification, error)
	Count(ctx context.Context, recipientID int, isRead *bool) (int, error)
	MarkRead(ctx context.Context, id, recipientID int) error
}

type sqlStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Insert(ctx context.Context, n *Notification) (*Notification, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO notifications (recipient_id, actor_id, type, target_type, target_id, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_read, created_at
	`
	err = tx.QueryRowContext(ctx, query,
		n.RecipientID, n.ActorID, n.Type, n.TargetType, n.TargetID, n.Content,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (s *sqlStore) Fetch(ctx context.Context, recipientID int, opts FetchOptions) ([]*Notification, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 25
	}

	query := `
		SELECT id, recipient_id, actor_id, type, target_type, target_id, content, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1 AND ($2::boolean IS NULL OR is_read = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := s.db.QueryContext(ctx, query, recipientID, opts.IsRead, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.ActorID, &n.Type, &n.TargetType,
			&n.TargetID, &n.Content, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *sqlStore) Count(ctx context.Context, recipientID int, isRead *bool) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND ($2::boolean IS NULL OR is_read = $2)
	`
	var count int
	err := s.db.QueryRowContext(ctx, query, recipientID, isRead).Scan(&count)
	return count, err
}

func (s *sqlStore) MarkRead(ctx context.Context, id, recipientID int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`,
		id, recipientID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
