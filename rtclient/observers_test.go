package rtclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatEnvelope(t *testing.T, body string) Envelope {
	t.Helper()
	return Envelope{Type: "NEW_CHAT_MESSAGE", Message: json.RawMessage(body)}
}

func TestChatObserverInvokesCallbackOncePerValidPayload(t *testing.T) {
	var got []ChatMessage
	o := NewChatObserver(func(m ChatMessage) { got = append(got, m) }, testLogger())

	o.Update(chatEnvelope(t, `{"id":1,"conversation_id":2,"sender_id":3,"content":"hi"}`))

	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Content)
}

func TestChatObserverDropsIncompletePayload(t *testing.T) {
	var calls int
	o := NewChatObserver(func(ChatMessage) { calls++ }, testLogger())

	o.Update(chatEnvelope(t, `{}`))
	o.Update(chatEnvelope(t, `{"id":1}`))
	o.Update(chatEnvelope(t, `not json`))

	assert.Zero(t, calls)
}

func TestChatObserverIgnoresOtherDiscriminants(t *testing.T) {
	var calls int
	o := NewChatObserver(func(ChatMessage) { calls++ }, testLogger())

	o.Update(Envelope{Type: "NEW_COMMENT_NOTIFICATION", Notification: json.RawMessage(`{"id":1}`)})

	assert.Zero(t, calls)
}

func TestNotificationObserverValidatesRequiredFields(t *testing.T) {
	var got []Notification
	o := NewNotificationObserver(func(n Notification) { got = append(got, n) }, testLogger())

	valid := `{"id":4,"recipient_id":2,"type":"post_reply","content":"u/alice replied"}`
	o.Update(Envelope{Type: "NEW_COMMENT_NOTIFICATION", Notification: json.RawMessage(valid)})
	o.Update(Envelope{Type: "NEW_COMMENT_NOTIFICATION", Notification: json.RawMessage(`{"id":4}`)})

	require.Len(t, got, 1)
	assert.Equal(t, "post_reply", got[0].Type)
}
