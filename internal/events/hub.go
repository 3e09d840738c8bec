// Package events fans transaction state changes out to in-process subscribers,
// such as a checkout page streaming one transaction.
package events

import (
	"sync"

	"github.com/baharkarakas/paycore/internal/models"
)

type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
}

type subscriber struct {
	ch chan models.Transaction
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[*subscriber]struct{}{}, buffer: 4}
}

// Subscribe returns a channel of updates for one transaction and a cancel
// func that must be called to release it. Slow readers lose intermediate
// updates, never the channel.
func (h *Hub) Subscribe(txnID string) (<-chan models.Transaction, func()) {
	s := &subscriber{ch: make(chan models.Transaction, h.buffer)}

	h.mu.Lock()
	if h.subs[txnID] == nil {
		h.subs[txnID] = map[*subscriber]struct{}{}
	}
	h.subs[txnID][s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if set, ok := h.subs[txnID]; ok {
				delete(set, s)
				if len(set) == 0 {
					delete(h.subs, txnID)
				}
			}
			close(s.ch)
		})
	}
}

// Publish implements the services notifier hook.
func (h *Hub) Publish(tx models.Transaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[tx.ID] {
		select {
		case s.ch <- tx:
		default:
			// drop the oldest so the newest state always lands
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- tx:
			default:
			}
		}
	}
}

func (h *Hub) Subscribers(txnID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[txnID])
}
