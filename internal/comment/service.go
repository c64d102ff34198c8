package comment

import (
	"context"
	"fmt"

	"github.com/SAPAAAA/Roundtable-sub001/internal/eventbus"
)

// Service creates comments. The durable insert is the business operation:
// its errors surface to the caller. The published event is strictly
// additive; nothing downstream of Publish can fail a created comment.
type Service struct {
	repo *Repository
	bus  *eventbus.Bus
}

func NewService(repo *Repository, bus *eventbus.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

func (s *Service) Create(ctx context.Context, authorID int, authorName string, req *CreateRequest) (*Comment, error) {
	if req.ParentID != nil {
		if _, err := s.repo.GetAuthor(ctx, *req.ParentID); err != nil {
			return nil, fmt.Errorf("resolve parent comment: %w", err)
		}
	}

	c := &Comment{
		PostID:     req.PostID,
		ParentID:   req.ParentID,
		AuthorID:   authorID,
		AuthorName: authorName,
		Body:       req.Body,
	}
	c, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.bus.Publish(eventbus.TopicCommentCreated, &CreatedEvent{Comment: c})
	return c, nil
}

func (s *Service) ListByPost(ctx context.Context, postID int) ([]*Comment, error) {
	return s.repo.ListByPost(ctx, postID)
}
