package realtime

import (
	"context"
	"sync"
)

// Dispatcher is the in-process event bus. Publishing is fire-and-forget: no
// persistence, no delivery confirmation, and a silent no-op when a board has
// no subscribers. Events for one board reach each subscriber in publish
// order; a subscriber that cannot keep up loses messages rather than
// blocking the publisher and must self-heal from the snapshot query.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*subscriber
	nextID      int64
	bufferSize  int
}

// Subscription describes one established board stream. UserID must already be
// resolved by the transport handshake: an empty user id means the connection
// never authenticated and receives nothing.
type Subscription struct {
	UserID  string
	BoardID string
}

type subscriber struct {
	id     int64
	stream chan Envelope
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[string]map[int64]*subscriber),
		bufferSize:  32,
	}
}

// Subscribe registers a board-scoped stream. Unauthenticated subscriptions
// get an already-closed channel. The stream is torn down when ctx ends or
// the returned cleanup runs.
func (d *Dispatcher) Subscribe(ctx context.Context, sub Subscription) (<-chan Envelope, func()) {
	boardID := NormalizeBoardID(sub.BoardID)
	if sub.UserID == "" || boardID == "" {
		ch := make(chan Envelope)
		close(ch)
		return ch, func() {}
	}
	entry := &subscriber{
		id:     d.nextSequence(),
		stream: make(chan Envelope, d.bufferSize),
	}
	d.register(boardID, entry)
	cleanup := func() {
		d.unregister(boardID, entry.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return entry.stream, cleanup
}

// Publish delivers the envelope to every subscriber of the envelope's board.
func (d *Dispatcher) Publish(envelope Envelope) {
	boardID := NormalizeBoardID(envelope.BoardID)
	if boardID == "" || envelope.Kind == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[boardID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*subscriber, 0, len(subscribers))
	for _, entry := range subscribers {
		copies = append(copies, entry)
	}
	d.mu.RUnlock()
	for _, entry := range copies {
		select {
		case entry.stream <- envelope:
		default:
		}
	}
}

func (d *Dispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *Dispatcher) register(boardID string, entry *subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[boardID]; !ok {
		d.subscribers[boardID] = make(map[int64]*subscriber)
	}
	d.subscribers[boardID][entry.id] = entry
}

func (d *Dispatcher) unregister(boardID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[boardID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, boardID)
		}
	}
	d.mu.Unlock()
}
