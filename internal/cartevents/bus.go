// Package cartevents broadcasts cart change notifications to subscribers of a
// cart key.
package cartevents

import "sync"

// Bus fans out change signals per cart key. Signals carry no payload:
// subscribers re-read the cart when notified.
//
// Publish never blocks. A subscriber that has not drained its previous signal
// receives one coalesced signal.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]chan struct{}
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[uint64]chan struct{})}
}

// Subscribe registers interest in key. The returned channel receives a value
// after each Publish(key). cancel unregisters and closes the channel; it is
// safe to call more than once.
func (b *Bus) Subscribe(key string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	set, ok := b.subs[key]
	if !ok {
		set = make(map[uint64]chan struct{})
		b.subs[key] = set
	}
	set[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[key]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(b.subs, key)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish signals every subscriber of key.
func (b *Bus) Publish(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of active subscriptions for key.
func (b *Bus) Subscribers(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key])
}
