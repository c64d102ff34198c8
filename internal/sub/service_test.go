package sub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subscription struct {
	subtableID int
	userID     int
}

type stubStore struct {
	byName        map[string]*Subtable
	createErr     error
	moderators    []subscription
	moderatorErr  error
	subscriptions []subscription
	subscribeErr  error
}

func (s *stubStore) Create(_ context.Context, st *Subtable) (*Subtable, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	st.ID = len(s.byName) + 1
	st.CreatedAt = time.Now()
	if s.byName == nil {
		s.byName = map[string]*Subtable{}
	}
	s.byName[st.Name] = st
	return st, nil
}

func (s *stubStore) GetByName(_ context.Context, name string) (*Subtable, error) {
	st, ok := s.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	return st, nil
}

func (s *stubStore) AddModerator(_ context.Context, subtableID, userID, _ int) error {
	if s.moderatorErr != nil {
		return s.moderatorErr
	}
	s.moderators = append(s.moderators, subscription{subtableID: subtableID, userID: userID})
	return nil
}

func (s *stubStore) Subscribe(_ context.Context, subtableID, userID int) error {
	if s.subscribeErr != nil {
		return s.subscribeErr
	}
	s.subscriptions = append(s.subscriptions, subscription{subtableID: subtableID, userID: userID})
	return nil
}

func (s *stubStore) Unsubscribe(_ context.Context, subtableID, userID int) error {
	kept := s.subscriptions[:0]
	for _, sub := range s.subscriptions {
		if sub.subtableID != subtableID || sub.userID != userID {
			kept = append(kept, sub)
		}
	}
	s.subscriptions = kept
	return nil
}

type stubUsers struct {
	ids map[string]int
}

func (u *stubUsers) GetIDByUsername(_ context.Context, username string) (int, error) {
	id, ok := u.ids[username]
	if !ok {
		return 0, errors.New("user not found")
	}
	return id, nil
}

type recordedInvite struct {
	recipientID int
	actorID     int
	subtableID  int
}

type stubNotifier struct {
	invites []recordedInvite
}

func (n *stubNotifier) NotifyModInvite(recipientID, actorID int, subtableID int, _ string) {
	n.invites = append(n.invites, recordedInvite{recipientID: recipientID, actorID: actorID, subtableID: subtableID})
}

func TestCreateMakesCreatorModerator(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, &stubUsers{}, &stubNotifier{})

	st, err := svc.Create(context.Background(), 9, &CreateRequest{Name: "golang"})
	require.NoError(t, err)

	require.Len(t, store.moderators, 1)
	assert.Equal(t, subscription{subtableID: st.ID, userID: 9}, store.moderators[0])
}

func TestSubscribeResolvesNameAndRecords(t *testing.T) {
	store := &stubStore{byName: map[string]*Subtable{
		"golang": {ID: 4, Name: "golang"},
	}}
	svc := NewService(store, &stubUsers{}, &stubNotifier{})

	require.NoError(t, svc.Subscribe(context.Background(), "golang", 7))

	require.Len(t, store.subscriptions, 1)
	assert.Equal(t, subscription{subtableID: 4, userID: 7}, store.subscriptions[0])
}

func TestSubscribeUnknownSubtable(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, &stubUsers{}, &stubNotifier{})

	err := svc.Subscribe(context.Background(), "nope", 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.subscriptions)
}

func TestUnsubscribeRemovesMembership(t *testing.T) {
	store := &stubStore{
		byName:        map[string]*Subtable{"golang": {ID: 4, Name: "golang"}},
		subscriptions: []subscription{{subtableID: 4, userID: 7}},
	}
	svc := NewService(store, &stubUsers{}, &stubNotifier{})

	require.NoError(t, svc.Unsubscribe(context.Background(), "golang", 7))
	assert.Empty(t, store.subscriptions)
}

func TestInviteModeratorNotifiesAfterInsert(t *testing.T) {
	store := &stubStore{byName: map[string]*Subtable{
		"golang": {ID: 4, Name: "golang"},
	}}
	notifier := &stubNotifier{}
	svc := NewService(store, &stubUsers{ids: map[string]int{"bob": 12}}, notifier)

	err := svc.InviteModerator(context.Background(), "golang", 9, &InviteModeratorRequest{Username: "bob"})
	require.NoError(t, err)

	require.Len(t, notifier.invites, 1)
	assert.Equal(t, recordedInvite{recipientID: 12, actorID: 9, subtableID: 4}, notifier.invites[0])
}

func TestInviteModeratorFailedInsertDoesNotNotify(t *testing.T) {
	store := &stubStore{
		byName:       map[string]*Subtable{"golang": {ID: 4, Name: "golang"}},
		moderatorErr: ErrAlreadyModerator,
	}
	notifier := &stubNotifier{}
	svc := NewService(store, &stubUsers{ids: map[string]int{"bob": 12}}, notifier)

	err := svc.InviteModerator(context.Background(), "golang", 9, &InviteModeratorRequest{Username: "bob"})
	assert.ErrorIs(t, err, ErrAlreadyModerator)
	assert.Empty(t, notifier.invites)
}
