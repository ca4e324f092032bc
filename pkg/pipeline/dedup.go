package pipeline

import (
	"container/list"
	"sync"
)

// Ledger remembers recently processed message identifiers so redelivered
// webhooks are acknowledged without a second reply. Capacity-bounded:
// once full, the least recently seen identifier is evicted, trading a
// small redelivery window for bounded memory.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently seen
	index    map[string]*list.Element
}

func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = 1
	}

	return &Ledger{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Seen records id and reports whether it was already present. The check
// and the insert happen under one lock so concurrent deliveries of the
// same id cannot both pass the duplicate gate.
func (l *Ledger) Seen(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if element, ok := l.index[id]; ok {
		l.order.MoveToFront(element)
		return true
	}

	l.index[id] = l.order.PushFront(id)
	if l.order.Len() > l.capacity {
		oldest := l.order.Back()
		l.order.Remove(oldest)
		delete(l.index, oldest.Value.(string))
	}

	return false
}

// Len returns the number of tracked identifiers.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.order.Len()
}
