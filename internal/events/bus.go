package events

import (
	"log"
	"sync"
	"time"
)

// Bus is a synchronous fan-out channel for progress events. Callbacks run
// in-line at publish time, in subscription order. A panicking subscriber is
// logged and skipped; it never stops delivery to the others.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
	order  []int
	logger *log.Logger
}

func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{
		subs:   make(map[int]func(Event)),
		logger: logger,
	}
}

// Subscribe registers a callback and returns the function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.Lock()
	callbacks := make([]func(Event), 0, len(b.order))
	for _, id := range b.order {
		if fn, ok := b.subs[id]; ok {
			callbacks = append(callbacks, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range callbacks {
		b.deliver(fn, ev)
	}
}

func (b *Bus) deliver(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Printf("[events] subscriber panic on %s event: %v", ev.Type, r)
		}
	}()
	fn(ev)
}
