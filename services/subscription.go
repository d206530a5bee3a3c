package services

import (
	"sync"
	"time"
)

const defaultDebounce = 250 * time.Millisecond

// Subscription is the handle returned by SubscribeUpdates. Events arrive on
// Events() after the debounce interval has quieted. Dispose releases the
// subscription exactly once; further calls are no-ops.
type Subscription struct {
	events  chan []TaskEvent
	once    sync.Once
	release func()
}

// Events delivers batches of debounced task events. The channel closes when
// the subscription is disposed or the notifier shuts down.
func (s *Subscription) Events() <-chan []TaskEvent {
	return s.events
}

// Dispose unsubscribes and closes the event channel. Safe to call multiple
// times and from teardown paths racing each other.
func (s *Subscription) Dispose() {
	s.once.Do(s.release)
}

// taskNotifier fans debounced task events out to subscribers. Events
// published within the debounce window are batched into one delivery.
type taskNotifier struct {
	mu       sync.Mutex
	interval time.Duration
	pending  []TaskEvent
	timer    *time.Timer
	subs     map[int]chan []TaskEvent
	nextID   int
	closed   bool
}

func newTaskNotifier(interval time.Duration) *taskNotifier {
	if interval <= 0 {
		interval = defaultDebounce
	}
	return &taskNotifier{
		interval: interval,
		subs:     make(map[int]chan []TaskEvent),
	}
}

// publish queues an event and (re)arms the debounce timer. The flush fires
// once the burst has quieted for the full interval.
func (n *taskNotifier) publish(ev TaskEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.pending = append(n.pending, ev)
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.interval, n.flush)
}

func (n *taskNotifier) flush() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || len(n.pending) == 0 {
		return
	}
	batch := n.pending
	n.pending = nil

	// Sends are non-blocking, so holding the lock here is safe and keeps
	// flush from racing a concurrent close of a subscriber channel.
	for _, ch := range n.subs {
		select {
		case ch <- batch:
		default: // drop rather than block when a subscriber is not draining
		}
	}
}

func (n *taskNotifier) subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan []TaskEvent, 8)
	if n.closed {
		close(ch)
		return &Subscription{events: ch, release: func() {}}
	}

	id := n.nextID
	n.nextID++
	n.subs[id] = ch

	return &Subscription{
		events: ch,
		release: func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if _, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(ch)
			}
		},
	}
}

func (n *taskNotifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	if n.timer != nil {
		n.timer.Stop()
	}
	for id, ch := range n.subs {
		delete(n.subs, id)
		close(ch)
	}
}
