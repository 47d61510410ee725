// ABOUTME: Session event notifications for transports and state persistence
// ABOUTME: Explicit subscriber list of buffered channels, non-blocking emits
package session

import "sync"

// Event is a session-level notification
type Event int

const (
	// EventNewSet fires when the playlist position changes
	EventNewSet Event = iota
	// EventChangedState fires when the anchor or forward offset changes
	// without a playlist change
	EventChangedState
	// EventFinished fires when the playlist has run past its last set
	EventFinished
)

// Notifier fans session events out to subscribers. Slow subscribers drop
// events rather than block the session.
type Notifier struct {
	mu   sync.Mutex
	subs []chan Event
}

// NewNotifier creates an empty notifier
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers a new subscriber channel
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 8)
	n.mu.Lock()
	n.subs = append(n.subs, ch)
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, sub := range n.subs {
		if sub == ch {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

// Emit sends an event to every subscriber without blocking
func (n *Notifier) Emit(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sub := range n.subs {
		select {
		case sub <- e:
		default:
		}
	}
}
