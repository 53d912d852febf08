package events

import "sync"

// Bus fans out events to a fixed set of emitters and to dynamic subscribers.
// Slow subscribers drop events rather than block the publisher.
type Bus struct {
	mu      sync.RWMutex
	sinks   []Emitter
	subs    map[uint64]chan Event
	nextSub uint64
}

// NewBus returns a bus forwarding to the provided sinks.
func NewBus(sinks ...Emitter) *Bus {
	filtered := make([]Emitter, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			filtered = append(filtered, sink)
		}
	}
	return &Bus{sinks: filtered, subs: make(map[uint64]chan Event)}
}

// Emit implements Emitter.
func (b *Bus) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sink := range b.sinks {
		sink.Emit(evt)
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a buffered channel receiving every subsequent event.
// The returned cancel function must be called to release the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}
