package broadcast

import (
	"sync"
	"time"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
)

// DefaultQueueSize is the outbound queue capacity of a subscriber
const DefaultQueueSize = 256

// Subscriber is one connection's bounded outbound queue. When the queue is
// full the oldest message is discarded so publishers never block.
type Subscriber struct {
	id          model.ConnectionID
	connectedAt time.Time

	mu      sync.Mutex
	send    chan []byte
	closed  bool
	dropped int

	// guarded by Fanout.mu
	audiences map[Audience]struct{}
}

func newSubscriber(id model.ConnectionID, capacity int) *Subscriber {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &Subscriber{
		id:          id,
		connectedAt: time.Now(),
		send:        make(chan []byte, capacity),
		audiences:   make(map[Audience]struct{}),
	}
}

// ID returns the connection the subscriber belongs to
func (s *Subscriber) ID() model.ConnectionID {
	return s.id
}

// C returns the channel the writer drains. It is closed when the subscriber
// is removed.
func (s *Subscriber) C() <-chan []byte {
	return s.send
}

// Dropped returns how many messages were discarded on overflow
func (s *Subscriber) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// enqueue adds msg, evicting the oldest queued message when full. It
// reports whether msg was queued.
func (s *Subscriber) enqueue(msg []byte) (queued bool, evicted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, false
	}
	for {
		select {
		case s.send <- msg:
			return true, evicted
		default:
		}
		select {
		case <-s.send:
			s.dropped++
			evicted = true
		default:
		}
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}
