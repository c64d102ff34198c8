package eventbus

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestPublishInvokesHandlersInOrder(t *testing.T) {
	bus := New(testLogger())

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe("topic", func(payload any) {
			order = append(order, i)
		})
	}

	bus.Publish("topic", "payload")

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPublishPassesPayload(t *testing.T) {
	bus := New(testLogger())

	type event struct{ Value int }
	var got *event
	bus.Subscribe("topic", func(payload any) {
		got, _ = payload.(*event)
	})

	bus.Publish("topic", &event{Value: 42})

	assert.NotNil(t, got)
	assert.Equal(t, 42, got.Value)
}

func TestPanickingHandlerDoesNotBlockSiblings(t *testing.T) {
	bus := New(testLogger())

	var calls []string
	bus.Subscribe("topic", func(any) { calls = append(calls, "first") })
	bus.Subscribe("topic", func(any) { panic("boom") })
	bus.Subscribe("topic", func(any) { calls = append(calls, "third") })

	assert.NotPanics(t, func() {
		bus.Publish("topic", nil)
	})
	assert.Equal(t, []string{"first", "third"}, calls)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := New(testLogger())
	assert.NotPanics(t, func() {
		bus.Publish("nobody-home", "payload")
	})
}

func TestHandlersAreScopedToTheirTopic(t *testing.T) {
	bus := New(testLogger())

	var aCalls, bCalls int
	bus.Subscribe("a", func(any) { aCalls++ })
	bus.Subscribe("b", func(any) { bCalls++ })

	bus.Publish("a", nil)
	bus.Publish("a", nil)
	bus.Publish("b", nil)

	assert.Equal(t, 2, aCalls)
	assert.Equal(t, 1, bCalls)
}
