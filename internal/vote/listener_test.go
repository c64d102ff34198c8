package vote

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAPAAAA/Roundtable-sub001/internal/eventbus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type stubScores struct {
	scores map[string]int
	err    error
	calls  int
}

func (s *stubScores) ComputeScore(_ context.Context, targetType string, targetID int) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.scores[scoreKey(targetType, targetID)], nil
}

func newCache(t *testing.T, source *stubScores) *ScoreCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewScoreCache(source, client, testLogger())
}

func TestVoteCastRefreshesScoreCache(t *testing.T) {
	source := &stubScores{scores: map[string]int{scoreKey(TargetPost, 1): 5}}
	cache := newCache(t, source)
	bus := eventbus.New(testLogger())
	cache.Register(bus)

	bus.Publish(eventbus.TopicVoteCast, &CastEvent{TargetType: TargetPost, TargetID: 1})

	// The listener warmed the cache; reading must not hit the source again.
	source.calls = 0
	score, err := cache.Score(context.Background(), TargetPost, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, score)
	assert.Zero(t, source.calls)
}

func TestScoreFallsBackToSourceOnCacheMiss(t *testing.T) {
	source := &stubScores{scores: map[string]int{scoreKey(TargetComment, 2): -3}}
	cache := newCache(t, source)

	score, err := cache.Score(context.Background(), TargetComment, 2)
	require.NoError(t, err)
	assert.Equal(t, -3, score)
	assert.Equal(t, 1, source.calls)

	// Second read comes from the cache.
	_, err = cache.Score(context.Background(), TargetComment, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)
}

func TestScoreSurfacesSourceError(t *testing.T) {
	source := &stubScores{err: errors.New("db down")}
	cache := newCache(t, source)

	_, err := cache.Score(context.Background(), TargetPost, 1)
	assert.Error(t, err)
}

func TestListenerIgnoresUnexpectedPayload(t *testing.T) {
	source := &stubScores{scores: map[string]int{}}
	cache := newCache(t, source)
	bus := eventbus.New(testLogger())
	cache.Register(bus)

	assert.NotPanics(t, func() {
		bus.Publish(eventbus.TopicVoteCast, 42)
	})
	assert.Zero(t, source.calls)
}
