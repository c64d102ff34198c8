package message

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAPAAAA/Roundtable-sub001/internal/eventbus"
	"github.com/SAPAAAA/Roundtable-sub001/internal/realtime"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type recordedPush struct {
	userID int
	env    realtime.Envelope
}

type stubPusher struct {
	pushes []recordedPush
}

func (p *stubPusher) Push(userID int, env realtime.Envelope) {
	p.pushes = append(p.pushes, recordedPush{userID: userID, env: env})
}

func TestListenerPushesToEveryRecipient(t *testing.T) {
	pusher := &stubPusher{}
	bus := eventbus.New(testLogger())
	NewListener(pusher, testLogger()).Register(bus)

	m := &Message{ID: 1, ConversationID: 7, SenderID: 1, Content: "hello", CreatedAt: time.Now()}
	bus.Publish(eventbus.TopicMessageSent, &SentEvent{Message: m, Recipients: []int{2, 3}})

	require.Len(t, pusher.pushes, 2)
	assert.Equal(t, 2, pusher.pushes[0].userID)
	assert.Equal(t, 3, pusher.pushes[1].userID)
	for _, p := range pusher.pushes {
		assert.Equal(t, realtime.TypeChatMessage, p.env.Type)
		assert.Same(t, m, p.env.Message)
	}
}

func TestListenerDropsUnexpectedPayload(t *testing.T) {
	pusher := &stubPusher{}
	bus := eventbus.New(testLogger())
	NewListener(pusher, testLogger()).Register(bus)

	assert.NotPanics(t, func() {
		bus.Publish(eventbus.TopicMessageSent, "not an event")
		bus.Publish(eventbus.TopicMessageSent, &SentEvent{Message: nil})
	})
	assert.Empty(t, pusher.pushes)
}
