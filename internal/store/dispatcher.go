package store

import (
	"context"
	"sync"
)

// Dispatcher fans object events out to per-board subscribers. Delivery
// is non-blocking: a subscriber that falls behind its buffer misses
// events rather than stalling writers; the initial listing on session
// start covers any gap.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*dispatcherSubscriber
	nextID      int64
	bufferSize  int
}

type dispatcherSubscriber struct {
	id          int64
	eventType   EventType
	excludeUser string
	stream      chan ObjectEvent
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		subscribers: make(map[string]map[int64]*dispatcherSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers for events of the given type on one board,
// excluding events originated by excludeUser (echo suppression). An
// empty eventType subscribes to every event type; an empty excludeUser
// disables the origin filter. The returned cancel is idempotent and
// safe to call while a delivery is in flight.
func (dispatcher *Dispatcher) Subscribe(ctx context.Context, boardID string, eventType EventType, excludeUser string) (<-chan ObjectEvent, func()) {
	if boardID == "" {
		ch := make(chan ObjectEvent)
		close(ch)
		return ch, func() {}
	}
	subscriber := &dispatcherSubscriber{
		id:          dispatcher.nextSequence(),
		eventType:   eventType,
		excludeUser: excludeUser,
		stream:      make(chan ObjectEvent, dispatcher.bufferSize),
	}
	dispatcher.registerSubscriber(boardID, subscriber)
	cleanup := func() {
		dispatcher.unregisterSubscriber(boardID, subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers an event to every matching subscriber of the board.
func (dispatcher *Dispatcher) Publish(boardID string, event ObjectEvent) {
	if boardID == "" || event.Type == "" {
		return
	}
	dispatcher.mu.RLock()
	subscribers := dispatcher.subscribers[boardID]
	if len(subscribers) == 0 {
		dispatcher.mu.RUnlock()
		return
	}
	copies := make([]*dispatcherSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	dispatcher.mu.RUnlock()
	for _, subscriber := range copies {
		if subscriber.eventType != "" && subscriber.eventType != event.Type {
			continue
		}
		if subscriber.excludeUser != "" && subscriber.excludeUser == event.Object.UpdatedBy {
			continue
		}
		select {
		case subscriber.stream <- event:
		default:
		}
	}
}

func (dispatcher *Dispatcher) nextSequence() int64 {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	dispatcher.nextID++
	return dispatcher.nextID
}

func (dispatcher *Dispatcher) registerSubscriber(boardID string, subscriber *dispatcherSubscriber) {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if _, ok := dispatcher.subscribers[boardID]; !ok {
		dispatcher.subscribers[boardID] = make(map[int64]*dispatcherSubscriber)
	}
	dispatcher.subscribers[boardID][subscriber.id] = subscriber
}

func (dispatcher *Dispatcher) unregisterSubscriber(boardID string, subscriberID int64) {
	dispatcher.mu.Lock()
	subscribers := dispatcher.subscribers[boardID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(dispatcher.subscribers, boardID)
		}
	}
	dispatcher.mu.Unlock()
}
