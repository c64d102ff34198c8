package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// Close code sent to a connection that was replaced by a newer one for the
// same user. It sits in the application-reserved range so clients treat it
// as final and do not reconnect into a duplicate-delivery fight.
const CloseSuperseded = 4001

var (
	pushDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roundtable_push_delivered_total",
		Help: "Live pushes handed to a connected client.",
	})
	pushDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roundtable_push_dropped_total",
		Help: "Live pushes dropped, by reason.",
	}, []string{"reason"})
)

// Registry is the single source of truth for which users are currently
// reachable over a live connection. It holds at most one connection per
// user; registering a second one for the same user force-closes the first.
//
// Every method is fire-and-forget from the caller's point of view: the
// registry never returns an error and never blocks on network I/O, so a
// failed or absent push can never affect the domain operation that
// triggered it.
type Registry struct {
	mu      sync.RWMutex
	clients map[int]*Client
	log     *logrus.Logger
}

func NewRegistry(log *logrus.Logger) *Registry {
	return &Registry{
		clients: make(map[int]*Client),
		log:     log,
	}
}

// Register stores c as the live connection for its user. Any previous
// connection for the same user is superseded: it is removed from the map
// first, then closed, so no window exists where both are reachable.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	prev := r.clients[c.UserID]
	r.clients[c.UserID] = c
	r.mu.Unlock()

	if prev != nil {
		prev.close(CloseSuperseded, "session superseded")
		r.log.WithFields(logrus.Fields{
			"user_id": c.UserID,
			"conn_id": prev.ID,
		}).Info("superseded previous connection")
	}
	r.log.WithFields(logrus.Fields{
		"user_id": c.UserID,
		"conn_id": c.ID,
	}).Info("connection registered")
}

// Unregister removes c if it is still the current connection for its user.
// A superseded connection unregistering late must not evict its successor.
// Idempotent; safe to call for a client that was never registered.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	current, ok := r.clients[c.UserID]
	if ok && current == c {
		delete(r.clients, c.UserID)
	}
	r.mu.Unlock()

	c.close(websocket.CloseNormalClosure, "")
	if ok && current == c {
		r.log.WithFields(logrus.Fields{
			"user_id": c.UserID,
			"conn_id": c.ID,
		}).Info("connection unregistered")
	}
}

// Push delivers env to userID's live connection if one exists. Delivery is
// best-effort and at-most-once: an offline user, a closed connection, or a
// full send buffer drops the push, logged and counted but never surfaced.
func (r *Registry) Push(userID int, env Envelope) {
	r.mu.RLock()
	c := r.clients[userID]
	r.mu.RUnlock()

	if c == nil {
		pushDropped.WithLabelValues("offline").Inc()
		r.log.WithFields(logrus.Fields{
			"user_id": userID,
			"type":    env.Type,
		}).Debug("push dropped, user offline")
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		pushDropped.WithLabelValues("marshal").Inc()
		r.log.WithError(err).WithField("type", env.Type).Error("push payload marshal failed")
		return
	}

	select {
	case c.send <- data:
		pushDelivered.Inc()
	default:
		// Send buffer full means the reader on the other end is gone or
		// wedged; drop the connection so it self-heals on reconnect.
		pushDropped.WithLabelValues("backpressure").Inc()
		r.log.WithFields(logrus.Fields{
			"user_id": userID,
			"conn_id": c.ID,
		}).Warn("push dropped, send buffer full; dropping connection")
		r.Unregister(c)
	}
}

// Connected reports whether userID currently has a live connection.
func (r *Registry) Connected(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[userID] != nil
}

// Shutdown closes every live connection with a "going away" code and
// clears the map. Called only during orderly process termination.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	r.clients = make(map[int]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
	r.log.WithField("count", len(clients)).Info("registry shut down")
}
