package aggregator

import (
	"sync"

	"github.com/cipherscore/cipherscore-node/log"
	"github.com/cipherscore/cipherscore-node/types"
)

// EventSubscription is a live feed of audit events. Events are delivered
// in order on C; slow consumers drop events rather than block the
// aggregator.
type EventSubscription struct {
	C      chan *types.Event
	id     int
	cancel func()
	once   sync.Once
}

// Close cancels the subscription and closes C.
func (s *EventSubscription) Close() {
	s.once.Do(s.cancel)
}

type eventDispatcher struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*EventSubscription
}

func newEventDispatcher() *eventDispatcher {
	return &eventDispatcher{subs: make(map[int]*EventSubscription)}
}

// subscribe registers a new subscription with the given channel buffer.
func (d *eventDispatcher) subscribe(buffer int) *EventSubscription {
	if buffer <= 0 {
		buffer = 64
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	sub := &EventSubscription{
		C:  make(chan *types.Event, buffer),
		id: id,
	}
	sub.cancel = func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(sub.C)
		}
	}
	d.subs[id] = sub
	return sub
}

// publish fans out an event to all subscribers without blocking.
func (d *eventDispatcher) publish(ev *types.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, sub := range d.subs {
		select {
		case sub.C <- ev:
		default:
			log.Warnw("event subscriber too slow, dropping event",
				"subscriber", sub.id, "seq", ev.Seq, "type", string(ev.Type))
		}
	}
}

// SubscribeEvents returns a live subscription to the audit event feed.
// The caller must Close the subscription when done.
func (a *Aggregator) SubscribeEvents(buffer int) *EventSubscription {
	return a.dispatcher.subscribe(buffer)
}
