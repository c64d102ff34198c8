package notification

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/SAPAAAA/Roundtable-sub001/internal/comment"
	"github.com/SAPAAAA/Roundtable-sub001/internal/realtime"
)

const (
	notifyTimeout  = 5 * time.Second
	unreadCacheTTL = time.Minute
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]{3,50})`)

// Pusher is the delivery side of the registry. Push never fails from the
// caller's perspective; the service discards its outcome on purpose.
type Pusher interface {
	Push(userID int, env realtime.Envelope)
}

// PostResolver supplies the post metadata the notify flow needs.
type PostResolver interface {
	GetMeta(ctx context.Context, postID int) (authorID int, title string, err error)
}

// UserResolver resolves identities for attribution and mention scanning.
type UserResolver interface {
	GetUsername(ctx context.Context, userID int) (string, error)
	GetIDByUsername(ctx context.Context, username string) (int, error)
}

// Service owns the durable notification records and the notify-on-action
// protocol: persist first, push after, and never let either failure reach
// the domain operation that triggered it.
type Service struct {
	store  Store
	pusher Pusher
	posts  PostResolver
	users  UserResolver
	cache  *redis.Client
	log    *logrus.Logger
}

func NewService(store Store, pusher Pusher, posts PostResolver, users UserResolver, cache *redis.Client, log *logrus.Logger) *Service {
	return &Service{
		store:  store,
		pusher: pusher,
		posts:  posts,
		users:  users,
		cache:  cache,
		log:    log,
	}
}

// NotifyNewComment runs the full notify flow for a freshly persisted
// comment: a reply notification for the post author, then a mention
// notification per @username in the body. The comment itself has already
// succeeded, so every failure in here is logged and swallowed — the flow
// degrades to "no notification sent", never to a failed comment.
func (s *Service) NotifyNewComment(c *comment.Comment) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	postAuthorID, title, err := s.posts.GetMeta(ctx, c.PostID)
	if err != nil {
		s.log.WithError(err).WithField("post_id", c.PostID).Warn("notify: post unresolvable, skipping")
		return
	}

	actorID, actorName := s.resolveActor(ctx, c.AuthorID)

	// No self-notification.
	if c.AuthorID != postAuthorID {
		typ := TypePostReply
		content := fmt.Sprintf("%s replied to your post %q", displayName(actorName), title)
		if c.ParentID != nil {
			typ = TypeCommentReply
			content = fmt.Sprintf("%s replied to a comment on your post %q", displayName(actorName), title)
		}

		n := &Notification{
			RecipientID: postAuthorID,
			ActorID:     actorID,
			Type:        typ,
			TargetType:  "comment",
			TargetID:    c.ID,
			Content:     content,
		}
		s.persistAndPush(ctx, n)
	}

	s.notifyMentions(ctx, c, actorID, actorName, postAuthorID)
}

// NotifyModInvite records and pushes a moderator invitation. Fire and
// forget, same contract as the comment flow.
func (s *Service) NotifyModInvite(recipientID, actorID int, subtableID int, subtableName string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	_, actorName := s.resolveActor(ctx, actorID)
	n := &Notification{
		RecipientID: recipientID,
		ActorID:     &actorID,
		Type:        TypeModInvite,
		TargetType:  "subtable",
		TargetID:    subtableID,
		Content:     fmt.Sprintf("%s invited you to moderate t/%s", displayName(actorName), subtableName),
	}
	s.persistAndPush(ctx, n)
}

func (s *Service) notifyMentions(ctx context.Context, c *comment.Comment, actorID *int, actorName string, postAuthorID int) {
	seen := map[int]bool{
		c.AuthorID:   true, // no self-mention
		postAuthorID: true, // already notified about the reply
	}
	for _, m := range mentionPattern.FindAllStringSubmatch(c.Body, -1) {
		mentionedID, err := s.users.GetIDByUsername(ctx, m[1])
		if err != nil {
			continue // not a real user, just an @-shaped token
		}
		if seen[mentionedID] {
			continue
		}
		seen[mentionedID] = true

		n := &Notification{
			RecipientID: mentionedID,
			ActorID:     actorID,
			Type:        TypeMention,
			TargetType:  "comment",
			TargetID:    c.ID,
			Content:     fmt.Sprintf("%s mentioned you in a comment", displayName(actorName)),
		}
		s.persistAndPush(ctx, n)
	}
}

// persistAndPush is the ordering heart of the delivery layer: the durable
// insert commits first, and only then is a live push attempted. A failed
// insert means no push; a failed push changes nothing durable.
func (s *Service) persistAndPush(ctx context.Context, n *Notification) {
	persisted, err := s.store.Insert(ctx, n)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"recipient_id": n.RecipientID,
			"type":         n.Type,
		}).Error("notification insert failed")
		return
	}

	s.invalidateUnread(ctx, persisted.RecipientID)
	s.pusher.Push(persisted.RecipientID, realtime.Envelope{
		Type:         realtime.TypeCommentNotification,
		Notification: persisted,
	})
}

func (s *Service) resolveActor(ctx context.Context, userID int) (*int, string) {
	name, err := s.users.GetUsername(ctx, userID)
	if err != nil {
		// Null attribution beats no notification.
		s.log.WithError(err).WithField("user_id", userID).Warn("notify: actor unresolvable")
		return nil, ""
	}
	id := userID
	return &id, name
}

func displayName(name string) string {
	if name == "" {
		return "Someone"
	}
	return "u/" + name
}

// GetForUser returns one page of notifications plus the total matching
// count, for hydrating client state on page load or reconnect.
func (s *Service) GetForUser(ctx context.Context, recipientID int, opts FetchOptions) ([]*Notification, int, error) {
	notifications, err := s.store.Fetch(ctx, recipientID, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, recipientID, opts.IsRead)
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// UnreadCount reads through a short-lived Redis cache; the badge in the
// page header polls this on every load.
func (s *Service) UnreadCount(ctx context.Context, recipientID int) (int, error) {
	key := unreadKey(recipientID)
	if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
		if count, convErr := strconv.Atoi(cached); convErr == nil {
			return count, nil
		}
	}

	unread := false
	count, err := s.store.Count(ctx, recipientID, &unread)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, key, count, unreadCacheTTL).Err(); err != nil {
		s.log.WithError(err).Debug("unread cache set failed")
	}
	return count, nil
}

func (s *Service) MarkRead(ctx context.Context, id, recipientID int) error {
	if err := s.store.MarkRead(ctx, id, recipientID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, recipientID)
	return nil
}

func (s *Service) invalidateUnread(ctx context.Context, recipientID int) {
	if err := s.cache.Del(ctx, unreadKey(recipientID)).Err(); err != nil {
		s.log.WithError(err).Debug("unread cache invalidate failed")
	}
}

func unreadKey(recipientID int) string {
	return fmt.Sprintf("notifications:unread:%d", recipientID)
}
