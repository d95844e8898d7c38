package inproc

import (
	"errors"
	"sync"

	"github.com/dimasergei/agentiq/internal/domain"
)

var ErrSubscriberQueueFull = errors.New("subscriber queue is full")

// Bus fans simulation events out to every registered subscriber. Publishing
// never blocks; a subscriber that falls behind loses events and the caller
// gets ErrSubscriberQueueFull.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan domain.SimulationEvent
	buffer int
}

func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[string]chan domain.SimulationEvent),
		buffer: buffer,
	}
}

func (b *Bus) Subscribe(id string) <-chan domain.SimulationEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		return ch
	}
	ch := make(chan domain.SimulationEvent, b.buffer)
	b.subs[id] = ch
	return ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}

func (b *Bus) Publish(evt domain.SimulationEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var err error
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			err = ErrSubscriberQueueFull
		}
	}
	return err
}
