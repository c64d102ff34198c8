package vote

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SAPAAAA/Roundtable-sub001/internal/eventbus"
)

const (
	TargetPost    = "post"
	TargetComment = "comment"
)

type CastRequest struct {
	TargetType string `json:"target_type" validate:"required,oneof=post comment"`
	TargetID   int    `json:"target_id" validate:"required,gt=0"`
	Value      int    `json:"value" validate:"required,oneof=-1 1"`
}

// CastEvent is published after a vote's durable upsert commits.
type CastEvent struct {
	TargetType string
	TargetID   int
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert records the voter's current stance; re-voting overwrites.
func (r *Repository) Upsert(ctx context.Context, userID int, req *CastRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO votes (user_id, target_type, target_id, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, target_type, target_id) DO UPDATE SET value = EXCLUDED.value
	`, userID, req.TargetType, req.TargetID, req.Value)
	return err
}

func (r *Repository) ComputeScore(ctx context.Context, targetType string, targetID int) (int, error) {
	var score int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(value), 0) FROM votes
		WHERE target_type = $1 AND target_id = $2
	`, targetType, targetID).Scan(&score)
	return score, err
}

// Service casts votes: durable write first, then an event for the score
// cache listener. A failed write surfaces; the event never fails a vote.
type Service struct {
	repo *Repository
	bus  *eventbus.Bus
}

func NewService(repo *Repository, bus *eventbus.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

func (s *Service) Cast(ctx context.Context, userID int, req *CastRequest) error {
	if err := s.repo.Upsert(ctx, userID, req); err != nil {
		return fmt.Errorf("cast vote: %w", err)
	}
	s.bus.Publish(eventbus.TopicVoteCast, &CastEvent{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
	})
	return nil
}
