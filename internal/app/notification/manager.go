// Package notification provides the signal manager that fans player signals out to subscribers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Notification is a single emitted signal.
type Notification struct {
	SequenceNo uint64
	Name       string
	At         time.Time
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// StreamFunc adapts a function to a Stream.
type StreamFunc func(*Notification) error

// Send calls f(n).
func (f StreamFunc) Send(n *Notification) error { return f(n) }

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
	names  map[string]bool // empty means every signal
}

func (s *subscription) wants(name string) bool {
	return len(s.names) == 0 || s.names[name]
}

// Manager manages signal subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
}

// NewManager creates a new signal manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   500 * time.Millisecond,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
// With no names the subscriber receives every signal.
func (m *Manager) Subscribe(stream Stream, names ...string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	filter := make(map[string]bool, len(names))
	for _, n := range names {
		filter[n] = true
	}
	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
		names:  filter,
	}
	return id
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Emit broadcasts the named signal without blocking the caller.
func (m *Manager) Emit(name string) {
	n := &Notification{
		SequenceNo: m.NextSequenceNo(),
		Name:       name,
		At:         time.Now(),
	}
	zlog.Debug().Msgf("notification: emit %s (#%d)", name, n.SequenceNo)
	go m.Broadcast(n)
}

// Broadcast sends a notification to all interested subscribers.
// Each stream send is done in a goroutine with a timeout to prevent blocking.
func (m *Manager) Broadcast(notification *Notification) {
	if notification.SequenceNo == 0 {
		notification.SequenceNo = m.NextSequenceNo()
	}

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if sub.wants(notification.Name) {
			subs = append(subs, sub)
		}
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Warn().Err(err).Msgf("notification: send to %s failed", s.id)
				}
			case <-ctx.Done():
				zlog.Warn().Msgf("notification: send to %s timed out", s.id)
			}
		}(sub)
	}

	wg.Wait()
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
