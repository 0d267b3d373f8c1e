// Package broadcast delivers outbound messages to connections grouped into
// audiences
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
)

// Audience names a group of subscribers
type Audience string

// Global is the audience every registered connection belongs to
const Global Audience = "global"

// RoomAudience returns the audience for a room's occupants
func RoomAudience(name string) Audience {
	return Audience(roomPrefix + name)
}

const roomPrefix = "room:"

// RoomName returns the room a room audience belongs to
func (a Audience) RoomName() (string, bool) {
	return strings.CutPrefix(string(a), roomPrefix)
}

// Fanout tracks subscribers and the audiences they belong to
type Fanout struct {
	mu          sync.RWMutex
	subscribers map[model.ConnectionID]*Subscriber
	audiences   map[Audience]map[model.ConnectionID]*Subscriber
	queueSize   int
	logger      *slog.Logger
}

// New creates a Fanout whose subscribers queue up to queueSize messages
func New(queueSize int, logger *slog.Logger) *Fanout {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Fanout{
		subscribers: make(map[model.ConnectionID]*Subscriber),
		audiences:   make(map[Audience]map[model.ConnectionID]*Subscriber),
		queueSize:   queueSize,
		logger:      logger.With(slog.String("component", "broadcast")),
	}
}

// Register creates the subscriber for a connection and adds it to the
// global audience. Registering an ID twice replaces the old subscriber.
func (f *Fanout) Register(id model.ConnectionID) *Subscriber {
	sub := newSubscriber(id, f.queueSize)

	f.mu.Lock()
	old := f.detach(id)
	f.subscribers[id] = sub
	f.join(Global, sub)
	count := len(f.subscribers)
	f.mu.Unlock()

	if old != nil {
		old.close()
	}
	f.logger.Debug("subscriber registered", slog.String("connection_id", string(id)), slog.Int("total", count))
	return sub
}

// Remove drops a connection from every audience and closes its queue
func (f *Fanout) Remove(id model.ConnectionID) {
	f.mu.Lock()
	sub := f.detach(id)
	count := len(f.subscribers)
	f.mu.Unlock()

	if sub == nil {
		return
	}
	sub.close()
	f.logger.Debug("subscriber removed",
		slog.String("connection_id", string(id)),
		slog.Duration("connection_duration", time.Since(sub.connectedAt)),
		slog.Int("dropped", sub.Dropped()),
		slog.Int("total", count),
	)
}

// Subscribe adds a registered connection to an audience. It reports false
// when the connection is not registered.
func (f *Fanout) Subscribe(aud Audience, id model.ConnectionID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscribers[id]
	if !ok {
		return false
	}
	f.join(aud, sub)
	return true
}

// Unsubscribe removes a connection from an audience
func (f *Fanout) Unsubscribe(aud Audience, id model.ConnectionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscribers[id]
	if !ok {
		return
	}
	f.leave(aud, sub)
}

// Publish enqueues msg for every current member of the audience and returns
// how many subscribers received it. Membership is captured before any
// message is queued, so later changes do not affect this call.
func (f *Fanout) Publish(aud Audience, msg []byte) int {
	f.mu.RLock()
	members := make([]*Subscriber, 0, len(f.audiences[aud]))
	for _, sub := range f.audiences[aud] {
		members = append(members, sub)
	}
	f.mu.RUnlock()

	sent, evicted := 0, 0
	for _, sub := range members {
		queued, dropped := sub.enqueue(msg)
		if queued {
			sent++
		}
		if dropped {
			evicted++
		}
	}
	if evicted > 0 {
		f.logger.Warn("broadcast evicted queued messages",
			slog.String("audience", string(aud)),
			slog.Int("sent", sent),
			slog.Int("subscribers_overflowed", evicted),
		)
	}
	return sent
}

// PublishJSON encodes v once and publishes it
func (f *Fanout) PublishJSON(aud Audience, v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return f.Publish(aud, data), nil
}

// Send enqueues msg for a single connection
func (f *Fanout) Send(id model.ConnectionID, msg []byte) bool {
	f.mu.RLock()
	sub, ok := f.subscribers[id]
	f.mu.RUnlock()
	if !ok {
		return false
	}
	queued, dropped := sub.enqueue(msg)
	if dropped {
		f.logger.Warn("direct send evicted queued message", slog.String("connection_id", string(id)))
	}
	return queued
}

// Members returns the connection IDs in an audience, sorted
func (f *Fanout) Members(aud Audience) []model.ConnectionID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]model.ConnectionID, 0, len(f.audiences[aud]))
	for id := range f.audiences[aud] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Audiences returns the audiences a connection belongs to, sorted
func (f *Fanout) Audiences(id model.ConnectionID) []Audience {
	f.mu.RLock()
	defer f.mu.RUnlock()
	sub, ok := f.subscribers[id]
	if !ok {
		return nil
	}
	auds := make([]Audience, 0, len(sub.audiences))
	for aud := range sub.audiences {
		auds = append(auds, aud)
	}
	sort.Slice(auds, func(i, j int) bool { return auds[i] < auds[j] })
	return auds
}

// SubscriberCount returns the number of registered connections
func (f *Fanout) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

// Close removes every subscriber
func (f *Fanout) Close() {
	f.mu.Lock()
	subs := make([]*Subscriber, 0, len(f.subscribers))
	for id := range f.subscribers {
		subs = append(subs, f.detach(id))
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	f.logger.Info("fanout closed", slog.Int("disconnected", len(subs)))
}

// join, leave and detach require f.mu held for writing

func (f *Fanout) join(aud Audience, sub *Subscriber) {
	members, ok := f.audiences[aud]
	if !ok {
		members = make(map[model.ConnectionID]*Subscriber)
		f.audiences[aud] = members
	}
	members[sub.id] = sub
	sub.audiences[aud] = struct{}{}
}

func (f *Fanout) leave(aud Audience, sub *Subscriber) {
	delete(sub.audiences, aud)
	members, ok := f.audiences[aud]
	if !ok {
		return
	}
	delete(members, sub.id)
	if len(members) == 0 {
		delete(f.audiences, aud)
	}
}

func (f *Fanout) detach(id model.ConnectionID) *Subscriber {
	sub, ok := f.subscribers[id]
	if !ok {
		return nil
	}
	for aud := range sub.audiences {
		f.leave(aud, sub)
	}
	delete(f.subscribers, id)
	return sub
}
