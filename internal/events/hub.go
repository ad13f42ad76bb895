// Package events fans distribution reports out to websocket subscribers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/battlewithbytes/webbrand/internal/distribute"
)

const (
	defaultBuffer = 16
	writeTimeout  = 5 * time.Second
)

// Event is the message written to subscribers.
type Event struct {
	Type   string             `json:"type"`
	Report *distribute.Report `json:"report"`
}

// Hub keeps the set of connected subscribers.
type Hub struct {
	log            zerolog.Logger
	originPatterns []string
	buffer         int

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	msgs      chan []byte
	closeSlow func()
}

// Option configures a Hub.
type Option func(*Hub)

// WithOriginPatterns sets the host patterns accepted for cross-origin
// websocket handshakes.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.originPatterns = patterns }
}

// WithBuffer sets how many messages may queue per subscriber before it is
// dropped.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger, opts ...Option) *Hub {
	h := &Hub{
		log:    logger.With().Str("component", "events").Logger(),
		buffer: defaultBuffer,
		subs:   make(map[*subscriber]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Publish queues a report for every subscriber. Subscribers whose queue is
// full are disconnected.
func (h *Hub) Publish(rep *distribute.Report) {
	msg, err := json.Marshal(Event{Type: "run", Report: rep})
	if err != nil {
		h.log.Error().Err(err).Msg("encoding event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.msgs <- msg:
		default:
			delete(h.subs, s)
			go s.closeSlow()
		}
	}
}

// Observer adapts Publish to a distribute.Options observer.
func (h *Hub) Observer() func(*distribute.Report) {
	return h.Publish
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ServeHTTP upgrades the request and streams events until the client goes
// away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer closes.
	ctx := conn.CloseRead(r.Context())

	s := &subscriber{
		msgs: make(chan []byte, h.buffer),
		closeSlow: func() {
			conn.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with events")
		},
	}
	if !h.add(s) {
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	defer h.remove(s)

	for {
		select {
		case msg, ok := <-s.msgs:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "shutting down")
				return
			}
			if err := write(ctx, conn, msg); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.log.Debug().Err(err).Msg("writing event")
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		close(s.msgs)
		delete(h.subs, s)
	}
}

func (h *Hub) add(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[s] = struct{}{}
	return true
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}
