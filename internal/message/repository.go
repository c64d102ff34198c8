package message

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("conversation not found")
	ErrNotParticipant = errors.New("user is not a participant")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindOrCreatePrivate returns the private conversation between two users,
// creating it (with both participants) in one transaction if absent.
func (r *Repository) FindOrCreatePrivate(ctx context.Context, userA, userB int) (int, error) {
	var id int
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id FROM conversations c
		JOIN participants pa ON pa.conversation_id = c.id AND pa.user_id = $1
		JOIN participants pb ON pb.conversation_id = c.id AND pb.user_id = $2
		WHERE c.type = 'private'
		LIMIT 1
	`, userA, userB).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO conversations (type) VALUES ('private') RETURNING id`).Scan(&id); err != nil {
		return 0, fmt.Errorf("create conversation: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO participants (conversation_id, user_id) VALUES ($1, $2), ($1, $3)`,
		id, userA, userB); err != nil {
		return 0, fmt.Errorf("add participants: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (r *Repository) Participants(ctx context.Context, conversationID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM participants WHERE conversation_id = $1`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return ids, rows.Err()
}

func (r *Repository) Save(ctx context.Context, m *Message) (*Message, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, m.ConversationID, m.SenderID, m.Content).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Repository) ListByConversation(ctx context.Context, conversationID, limit int) ([]*Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, u.username, m.content, m.created_at
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderName, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *Repository) ListConversations(ctx context.Context, userID int) ([]*Conversation, error) {
	query := `
		SELECT c.id, c.type, c.created_at
		FROM conversations c
		JOIN participants p ON p.conversation_id = c.id
		WHERE p.user_id = $1
		ORDER BY c.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		c := &Conversation{}
		if err := rows.Scan(&c.ID, &c.Type, &c.CreatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}
