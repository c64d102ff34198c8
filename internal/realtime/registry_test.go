package realtime

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newWsServer upgrades every request and registers the connection under
// the user_id query param, mirroring what ServeWs does after auth.
func newWsServer(t *testing.T, registry *Registry) (*httptest.Server, chan *Client) {
	t.Helper()
	clients := make(chan *Client, 16)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.Atoi(r.URL.Query().Get("user_id"))
		if err != nil {
			http.Error(w, "bad user_id", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(registry, conn, userID, "tester", testLogger())
		registry.Register(client)
		clients <- client
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(ts.Close)
	return ts, clients
}

func dialWs(t *testing.T, ts *httptest.Server, userID int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "?user_id=" + strconv.Itoa(userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func waitConnected(t *testing.T, registry *Registry, userID int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return registry.Connected(userID)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPushDeliversToRegisteredUser(t *testing.T) {
	registry := NewRegistry(testLogger())
	ts, _ := newWsServer(t, registry)

	conn := dialWs(t, ts, 1)
	waitConnected(t, registry, 1)

	registry.Push(1, Envelope{Type: TypeChatMessage, Message: map[string]string{"content": "hi"}})

	msg := readEnvelope(t, conn)
	assert.Equal(t, TypeChatMessage, msg["type"])
}

func TestPushToUnknownUserIsDropped(t *testing.T) {
	registry := NewRegistry(testLogger())

	done := make(chan struct{})
	go func() {
		registry.Push(99, Envelope{Type: TypeChatMessage})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push to unknown user blocked")
	}
}

func TestRegisterTakeoverReplacesConnection(t *testing.T) {
	registry := NewRegistry(testLogger())
	ts, _ := newWsServer(t, registry)

	connA := dialWs(t, ts, 1)
	waitConnected(t, registry, 1)

	connB := dialWs(t, ts, 1)

	// The superseded connection receives the takeover close code.
	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := connA.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, CloseSuperseded, closeErr.Code)

	// Only the replacement is reachable.
	waitConnected(t, registry, 1)
	registry.Push(1, Envelope{Type: TypeChatMessage, Message: map[string]string{"content": "to B"}})
	msg := readEnvelope(t, connB)
	assert.Equal(t, TypeChatMessage, msg["type"])
}

func TestUnregisterIsIdempotent(t *testing.T) {
	registry := NewRegistry(testLogger())
	ts, clients := newWsServer(t, registry)

	dialWs(t, ts, 7)
	waitConnected(t, registry, 7)
	client := <-clients

	registry.Unregister(client)
	assert.False(t, registry.Connected(7))
	assert.NotPanics(t, func() { registry.Unregister(client) })
}

func TestStaleUnregisterDoesNotEvictSuccessor(t *testing.T) {
	registry := NewRegistry(testLogger())
	ts, clients := newWsServer(t, registry)

	dialWs(t, ts, 3)
	waitConnected(t, registry, 3)
	first := <-clients

	dialWs(t, ts, 3)
	require.Eventually(t, func() bool { return len(clients) > 0 }, 2*time.Second, 10*time.Millisecond)
	<-clients

	// The superseded connection's cleanup path runs after the takeover.
	registry.Unregister(first)
	assert.True(t, registry.Connected(3))
}

func TestCloseIsSafeUnderConcurrentPushLoad(t *testing.T) {
	registry := NewRegistry(testLogger())
	ts, clients := newWsServer(t, registry)

	// Keep the write pump busy so close frames from other goroutines
	// overlap in-flight writes on the same connection.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				registry.Push(1, Envelope{Type: TypeChatMessage, Message: map[string]string{"content": "flood"}})
			}
		}
	}()

	// Each dial supersedes the previous connection, closing it while the
	// pusher above is still feeding its pump.
	for i := 0; i < 10; i++ {
		conn := dialWs(t, ts, 1)
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		select {
		case <-clients:
		case <-time.After(2 * time.Second):
			t.Fatal("server never registered connection")
		}
	}

	close(stop)
	wg.Wait()
	registry.Shutdown()
}

func TestShutdownClosesEverything(t *testing.T) {
	registry := NewRegistry(testLogger())
	ts, _ := newWsServer(t, registry)

	connA := dialWs(t, ts, 1)
	connB := dialWs(t, ts, 2)
	waitConnected(t, registry, 1)
	waitConnected(t, registry, 2)

	registry.Shutdown()

	for _, conn := range []*websocket.Conn{connA, connB} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := conn.ReadMessage()
		require.Error(t, err)
		closeErr, ok := err.(*websocket.CloseError)
		require.True(t, ok, "expected close error, got %v", err)
		assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
	}
	assert.False(t, registry.Connected(1))
	assert.False(t, registry.Connected(2))
}

func TestClientAnswersKeepaliveProbe(t *testing.T) {
	registry := NewRegistry(testLogger())
	ts, _ := newWsServer(t, registry)

	conn := dialWs(t, ts, 5)
	waitConnected(t, registry, 5)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(PingFrame)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, PongFrame, string(data))
}
