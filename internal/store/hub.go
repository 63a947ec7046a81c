package store

import "sync"

// hub is the change-notification side-channel: a per-owner registry of
// refresh callbacks, fired after every committed write so all active
// subscriptions converge on the same snapshot.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]func()
}

func newHub() *hub {
	return &hub{subs: map[string]map[int]func(){}}
}

// add registers a refresh callback for ownerID and returns its remover.
// It does not fire the callback; the store does the initial delivery.
func (h *hub) add(ownerID string, fn func()) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = map[int]func(){}
	}
	h.subs[ownerID][id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs[ownerID], id)
		h.mu.Unlock()
	}
}

// notify fires every refresh callback registered for ownerID. Callbacks
// run outside the hub lock so they may re-enter the store.
func (h *hub) notify(ownerID string) {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.subs[ownerID]))
	for _, fn := range h.subs[ownerID] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
