package settings

import "sync"

// Broker fans settings changes out to subscribers.
//
// Delivery is synchronous and in registration order. Publishes are
// serialised, so each subscriber sees changes in the order they happened
// and exactly once per change.
type Broker struct {
	mu     sync.Mutex
	subs   []*subscriber
	latest *Snapshot
	nextID uint64

	publishMu sync.Mutex
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

// NewBroker creates a broker with no snapshot loaded yet.
func NewBroker() *Broker {
	return &Broker{}
}

// Subscribe registers fn and returns a function that removes it.
// If a snapshot has already been published, fn receives it before Subscribe returns.
func (b *Broker) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.Lock()
	b.nextID++
	sub := &subscriber{id: b.nextID, fn: fn}
	b.subs = append(b.subs, sub)
	latest := b.latest
	b.mu.Unlock()

	if latest != nil {
		fn(*latest)
	}

	return func() { b.remove(sub.id) }
}

// Publish records s as the latest snapshot and delivers it to every subscriber.
func (b *Broker) Publish(s Snapshot) {
	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	b.mu.Lock()
	b.latest = &s
	subs := make([]*subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.fn(s)
	}
}

// Current returns the latest published snapshot, or DefaultSnapshot if none.
func (b *Broker) Current() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.latest == nil {
		return DefaultSnapshot()
	}
	return *b.latest
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
