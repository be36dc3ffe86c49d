package docstore

import (
	"sync"

	"github.com/google/uuid"
)

// WatchKeeper contains the reactive half of the contract. Each watch call
// attaches a listener to a broadcast group derived from its scope; listeners
// on the same scope share one group. The current value is queued as the
// first emission before the call returns, so a subscriber always observes
// the snapshot it attached against before any later mutation.
type WatchKeeper interface {
	// WatchDoc follows a single document over time. The event's Exists
	// field is false while the document is absent.
	WatchDoc(collection, id string) (*Subscription[DocEvent], error)

	// WatchCollection follows the whole id to document mapping.
	WatchCollection(collection string) (*Subscription[CollectionEvent], error)

	// WatchQuery follows the set of documents matching the filter. Filters
	// that are equal as sets of conditions share one broadcast group.
	WatchQuery(collection string, where Where) (*Subscription[QueryEvent], error)
}

// DocEvent is one emission of a single-document watch.
type DocEvent struct {
	Collection string
	ID         string
	Exists     bool
	Doc        Document
}

// CollectionEvent is one emission of a whole-collection watch.
// Docs is nil while the collection is empty.
type CollectionEvent struct {
	Collection string
	Docs       map[string]Document
}

// QueryEvent is one emission of a filtered watch.
type QueryEvent struct {
	Collection string
	Matches    []Match
}

// Subscription is one listener attached to a broadcast group. Emissions
// arrive on C in mutation order; Cancel detaches this listener only and is
// safe to call more than once.
type Subscription[T any] struct {
	id     uuid.UUID
	ch     chan T
	cancel func(uuid.UUID)
	once   sync.Once
}

// NewSubscription wires a listener handle. Engines create subscriptions
// through their hub; callers only ever consume them.
func NewSubscription[T any](buffer int, cancel func(uuid.UUID)) *Subscription[T] {
	return &Subscription[T]{
		id:     uuid.New(),
		ch:     make(chan T, buffer),
		cancel: cancel,
	}
}

// ID identifies this listener within its broadcast group.
func (s *Subscription[T]) ID() uuid.UUID { return s.id }

// C is the stream of emissions. It is closed when the subscription is
// cancelled or the hub shuts down.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Send queues an emission without blocking. When the subscriber has fallen
// behind far enough to fill the buffer the emission is dropped; delivery is
// best-effort at-most-once per mutation.
func (s *Subscription[T]) Send(v T) {
	select {
	case s.ch <- v:
	default:
	}
}

// CloseChan releases the channel. Called by the owning hub after the
// listener has been detached.
func (s *Subscription[T]) CloseChan() { close(s.ch) }

// Cancel detaches the listener. No further emissions arrive on C after
// Cancel returns.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel(s.id)
		}
	})
}
