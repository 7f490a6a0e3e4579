package events

import (
	"sync"

	"github.com/Temutjin2k/ride-hail-driver/internal/domain/models"
)

const defaultBuffer = 32

// Dispatcher fans session events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event and the drop is reported to
// the OnDrop hook.
type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool

	onDrop func(sub string, e models.Event)
}

// Subscription is a single observer. Events arrive in publish order.
type Subscription struct {
	name string
	ch   chan models.Event
	d    *Dispatcher
	once sync.Once
}

type Option func(*Dispatcher)

// WithDropHook sets a callback invoked (under the dispatcher read lock) for every
// event a subscriber could not take.
func WithDropHook(fn func(sub string, e models.Event)) Option {
	return func(d *Dispatcher) {
		d.onDrop = fn
	}
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		subs: make(map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers an observer with the given buffer size.
// Subscribing to a closed dispatcher returns an already closed subscription.
func (d *Dispatcher) Subscribe(name string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	sub := &Subscription{
		name: name,
		ch:   make(chan models.Event, buffer),
		d:    d,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	d.subs[sub] = struct{}{}
	return sub
}

// Publish delivers e to every subscriber without blocking.
func (d *Dispatcher) Publish(e models.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}
	for sub := range d.subs {
		select {
		case sub.ch <- e:
		default:
			if d.onDrop != nil {
				d.onDrop(sub.name, e)
			}
		}
	}
}

// Len returns the number of live subscriptions.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Close closes every subscription channel.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	for sub := range d.subs {
		sub.once.Do(func() { close(sub.ch) })
		delete(d.subs, sub)
	}
}

// Events returns the channel the subscriber reads from. It is closed on
// Close or when the dispatcher shuts down.
func (s *Subscription) Events() <-chan models.Event {
	return s.ch
}

func (s *Subscription) Name() string {
	return s.name
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	delete(s.d.subs, s)
	s.once.Do(func() { close(s.ch) })
}
