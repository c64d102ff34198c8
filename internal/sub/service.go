package sub

import (
	"context"
	"fmt"
)

// ModInviteNotifier is the slice of the notification service this package
// needs. The notification itself is best-effort; the moderator row is the
// durable operation.
type ModInviteNotifier interface {
	NotifyModInvite(recipientID, actorID int, subtableID int, subtableName string)
}

// UserLookup resolves the invited username outside this package.
type UserLookup interface {
	GetIDByUsername(ctx context.Context, username string) (int, error)
}

// Store is the persistence surface the service drives. *Repository is the
// production implementation.
type Store interface {
	Create(ctx context.Context, s *Subtable) (*Subtable, error)
	GetByName(ctx context.Context, name string) (*Subtable, error)
	AddModerator(ctx context.Context, subtableID, userID, invitedBy int) error
	Subscribe(ctx context.Context, subtableID, userID int) error
	Unsubscribe(ctx context.Context, subtableID, userID int) error
}

type Service struct {
	repo     Store
	users    UserLookup
	notifier ModInviteNotifier
}

func NewService(repo Store, users UserLookup, notifier ModInviteNotifier) *Service {
	return &Service{repo: repo, users: users, notifier: notifier}
}

func (s *Service) Create(ctx context.Context, creatorID int, req *CreateRequest) (*Subtable, error) {
	st := &Subtable{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   creatorID,
	}
	st, err := s.repo.Create(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("create subtable: %w", err)
	}
	// The creator moderates their own subtable from day one.
	if err := s.repo.AddModerator(ctx, st.ID, creatorID, creatorID); err != nil && err != ErrAlreadyModerator {
		return nil, fmt.Errorf("add creator as moderator: %w", err)
	}
	return st, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (*Subtable, error) {
	return s.repo.GetByName(ctx, name)
}

// Subscribe records the user's membership in the subtable's feed.
// Subscribing twice is not an error.
func (s *Service) Subscribe(ctx context.Context, subtableName string, userID int) error {
	st, err := s.repo.GetByName(ctx, subtableName)
	if err != nil {
		return err
	}
	return s.repo.Subscribe(ctx, st.ID, userID)
}

func (s *Service) Unsubscribe(ctx context.Context, subtableName string, userID int) error {
	st, err := s.repo.GetByName(ctx, subtableName)
	if err != nil {
		return err
	}
	return s.repo.Unsubscribe(ctx, st.ID, userID)
}

// InviteModerator durably records the invite, then notifies the invitee.
// The notify call happens only after the insert succeeded and its outcome
// is deliberately discarded.
func (s *Service) InviteModerator(ctx context.Context, subtableName string, inviterID int, req *InviteModeratorRequest) error {
	st, err := s.repo.GetByName(ctx, subtableName)
	if err != nil {
		return err
	}

	inviteeID, err := s.users.GetIDByUsername(ctx, req.Username)
	if err != nil {
		return fmt.Errorf("resolve invitee: %w", err)
	}

	if err := s.repo.AddModerator(ctx, st.ID, inviteeID, inviterID); err != nil {
		return err
	}

	s.notifier.NotifyModInvite(inviteeID, inviterID, st.ID, st.Name)
	return nil
}
