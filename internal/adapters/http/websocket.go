package http

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/parkpass/internal/adapters/nats"
	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/pkg/metrics"
)

// wsCommand is a client request on the relay socket.
//
//	{"action":"subscribe","channel":"failed"}
//	{"action":"unsubscribe","channel":"all"}
//	{"action":"watch","request_id":"..."}
type wsCommand struct {
	Action    string `json:"action"`
	Channel   string `json:"channel,omitempty"` // all | computed | failed (default all)
	RequestID string `json:"request_id,omitempty"`
}

// wsEvent is a relayed route event.
type wsEvent struct {
	Channel string            `json:"channel"`
	Event   json.RawMessage   `json:"event"`
	Summary string            `json:"summary,omitempty"`
	Code    *domain.ErrorCode `json:"code,omitempty"`
}

// channelSubject maps a client channel name to a NATS subject.
func channelSubject(channel string) (string, bool) {
	switch channel {
	case "", "all":
		return natsadapter.SubjectRoutesAll, true
	case "computed":
		return natsadapter.SubjectRoutesComputed, true
	case "failed":
		return natsadapter.SubjectRoutesFailed, true
	}
	return "", false
}

// subjectChannel is the inverse of channelSubject for a concrete event subject.
func subjectChannel(subject string) string {
	switch {
	case strings.HasSuffix(subject, ".failed"):
		return "failed"
	case strings.HasSuffix(subject, ".computed"):
		return "computed"
	}
	return "all"
}

// wsRelay forwards route events from NATS to one client. The relay holds a
// single subscription to every route subject and filters by the channels
// the client asked for, so overlapping channels never deliver an event twice.
type wsRelay struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	channels map[string]bool // all | computed | failed
	watch    string          // only relay this request ID when set
}

func newRelay(conn *websocket.Conn) *wsRelay {
	return &wsRelay{conn: conn, channels: map[string]bool{"all": true}}
}

func (r *wsRelay) send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteMessage(websocket.TextMessage, data)
}

func (r *wsRelay) reply(key, value string) {
	_ = r.send(map[string]string{key: value})
}

// accepts reports whether an event on subject for requestID should reach
// the client.
func (r *wsRelay) accepts(subject, requestID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watch != "" && requestID != r.watch {
		return false
	}
	return r.channels["all"] || r.channels[subjectChannel(subject)]
}

func (r *wsRelay) forward(msg *nats.Msg) {
	var event domain.RouteEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return
	}
	if !r.accepts(msg.Subject, event.RequestID) {
		return
	}

	out := wsEvent{
		Channel: subjectChannel(msg.Subject),
		Event:   json.RawMessage(msg.Data),
		Summary: event.Result.Summary(),
	}
	if !event.Result.OK {
		out.Code = &event.Result.Error
	}
	_ = r.send(out)
}

// subscribe adds channel and reports whether it was new.
func (r *wsRelay) subscribe(channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channels[channel] {
		return false
	}
	r.channels[channel] = true
	return true
}

// unsubscribe removes channel and reports whether it was present.
func (r *wsRelay) unsubscribe(channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.channels[channel] {
		return false
	}
	delete(r.channels, channel)
	return true
}

func (r *wsRelay) setWatch(requestID string) {
	r.mu.Lock()
	r.watch = requestID
	r.mu.Unlock()
}

// handle applies cmd and returns the key and text of the reply.
func (r *wsRelay) handle(cmd wsCommand) (string, string) {
	if cmd.Action == "watch" {
		r.setWatch(cmd.RequestID)
		if cmd.RequestID == "" {
			return "status", "watching all requests"
		}
		return "status", "watching " + cmd.RequestID
	}

	channel := cmd.Channel
	if channel == "" {
		channel = "all"
	}
	subject, ok := channelSubject(channel)
	if !ok {
		return "error", "unknown channel: " + cmd.Channel
	}

	switch cmd.Action {
	case "subscribe":
		if !r.subscribe(channel) {
			return "status", "already subscribed " + subject
		}
		return "status", "subscribed " + subject
	case "unsubscribe":
		if !r.unsubscribe(channel) {
			return "error", "not subscribed to " + subject
		}
		return "status", "unsubscribed " + subject
	}
	return "error", "unknown action: " + cmd.Action
}

// keepAlive pings the client until done is closed or a write fails.
func (r *wsRelay) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.writeMu.Lock()
			err := r.conn.WriteMessage(websocket.PingMessage, nil)
			r.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// WebSocketHandler relays parking.routes.* events to connected clients.
// Clients start subscribed to every event and can narrow the stream by
// channel or to a single request ID.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remote := c.RemoteAddr().String()
		slog.Debug("ws client connected", "remote", remote)

		r := newRelay(c)
		sub, err := nc.Subscribe(natsadapter.SubjectRoutesAll, r.forward)
		if err != nil {
			slog.Warn("ws subscribe failed", "error", err)
			return
		}
		defer func() { _ = sub.Unsubscribe() }()

		done := make(chan struct{})
		defer close(done)
		go r.keepAlive(done)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			var cmd wsCommand
			if err := json.Unmarshal(msg, &cmd); err != nil {
				r.reply("error", "invalid JSON")
				continue
			}
			r.reply(r.handle(cmd))
		}

		slog.Debug("ws client disconnected", "remote", remote)
	}
}
