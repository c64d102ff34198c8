package message

import (
	"context"
	"fmt"

	"github.com/SAPAAAA/Roundtable-sub001/internal/eventbus"
)

type Service struct {
	repo *Repository
	bus  *eventbus.Bus
}

func NewService(repo *Repository, bus *eventbus.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

func (s *Service) StartConversation(ctx context.Context, userID, targetID int) (int, error) {
	if userID == targetID {
		return 0, fmt.Errorf("cannot start a conversation with yourself")
	}
	return s.repo.FindOrCreatePrivate(ctx, userID, targetID)
}

// Send durably persists the message, then publishes it for live delivery.
// The sender must be a participant; the recipient list excludes them so
// the delivery listener never echoes a message back to its author.
func (s *Service) Send(ctx context.Context, senderID int, senderName string, req *SendRequest) (*Message, error) {
	participants, err := s.repo.Participants(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	var recipients []int
	isParticipant := false
	for _, id := range participants {
		if id == senderID {
			isParticipant = true
			continue
		}
		recipients = append(recipients, id)
	}
	if !isParticipant {
		return nil, ErrNotParticipant
	}

	m := &Message{
		ConversationID: req.ConversationID,
		SenderID:       senderID,
		SenderName:     senderName,
		Content:        req.Content,
	}
	m, err = s.repo.Save(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	s.bus.Publish(eventbus.TopicMessageSent, &SentEvent{Message: m, Recipients: recipients})
	return m, nil
}

func (s *Service) History(ctx context.Context, userID, conversationID, limit int) ([]*Message, error) {
	participants, err := s.repo.Participants(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	member := false
	for _, id := range participants {
		if id == userID {
			member = true
			break
		}
	}
	if !member {
		return nil, ErrNotParticipant
	}
	return s.repo.ListByConversation(ctx, conversationID, limit)
}

func (s *Service) Conversations(ctx context.Context, userID int) ([]*Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}
