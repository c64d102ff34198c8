package vote

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/SAPAAAA/Roundtable-sub001/internal/eventbus"
)

const scoreCacheTTL = 5 * time.Minute

// ScoreSource recomputes a target's score from the durable store.
type ScoreSource interface {
	ComputeScore(ctx context.Context, targetType string, targetID int) (int, error)
}

// ScoreCache keeps hot post/comment scores in Redis so listing pages do
// not recompute SUM(value) per row. It is refreshed by the vote.cast
// listener; a stale or missing entry just falls back to the database.
type ScoreCache struct {
	repo  ScoreSource
	cache *redis.Client
	log   *logrus.Logger
}

func NewScoreCache(repo ScoreSource, cache *redis.Client, log *logrus.Logger) *ScoreCache {
	return &ScoreCache{repo: repo, cache: cache, log: log}
}

func (sc *ScoreCache) Register(bus *eventbus.Bus) {
	bus.Subscribe(eventbus.TopicVoteCast, sc.onVoteCast)
}

func (sc *ScoreCache) onVoteCast(payload any) {
	ev, ok := payload.(*CastEvent)
	if !ok {
		sc.log.WithField("topic", eventbus.TopicVoteCast).Warn("unexpected payload type, dropping")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	score, err := sc.repo.ComputeScore(ctx, ev.TargetType, ev.TargetID)
	if err != nil {
		sc.log.WithError(err).Warn("score recompute failed")
		return
	}
	if err := sc.cache.Set(ctx, scoreKey(ev.TargetType, ev.TargetID), score, scoreCacheTTL).Err(); err != nil {
		sc.log.WithError(err).Debug("score cache set failed")
	}
}

// Score reads through the cache.
func (sc *ScoreCache) Score(ctx context.Context, targetType string, targetID int) (int, error) {
	if cached, err := sc.cache.Get(ctx, scoreKey(targetType, targetID)).Int(); err == nil {
		return cached, nil
	}
	score, err := sc.repo.ComputeScore(ctx, targetType, targetID)
	if err != nil {
		return 0, err
	}
	if err := sc.cache.Set(ctx, scoreKey(targetType, targetID), score, scoreCacheTTL).Err(); err != nil {
		sc.log.WithError(err).Debug("score cache set failed")
	}
	return score, nil
}

func scoreKey(targetType string, targetID int) string {
	return fmt.Sprintf("score:%s:%d", targetType, targetID)
}
