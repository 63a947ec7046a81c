package services

import (
	"sync"

	"mermanager/internal/domain"
	"mermanager/internal/store"
)

// ReadModel mirrors the signed-in user's listings, driven by the store's
// full-snapshot notifications. Every delivery replaces the snapshot
// wholesale, so repeated or out-of-order deliveries are idempotent. It
// re-subscribes when the user changes, tearing down the prior
// subscription first so no duplicate callbacks survive.
type ReadModel struct {
	Store store.Store

	mu       sync.Mutex
	gen      int // bumped on every SetUser; stale deliveries are dropped
	user     *domain.User
	unsub    func()
	snapshot []domain.Listing
	watchers map[int]chan []domain.Listing
	next     int
}

func NewReadModel(st store.Store) *ReadModel {
	return &ReadModel{Store: st, watchers: map[int]chan []domain.Listing{}}
}

// SetUser switches the read model to a new owner (nil clears it).
func (m *ReadModel) SetUser(u *domain.User) error {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	old := m.unsub
	m.unsub = nil
	m.user = u
	m.snapshot = nil
	m.mu.Unlock()

	if old != nil {
		old()
	}
	if u == nil {
		m.fanout(nil)
		return nil
	}

	ownerID := u.ID
	unsub, err := m.Store.Subscribe(ownerID, func(ls []domain.Listing) {
		m.apply(gen, ls)
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.gen != gen {
		// user changed again while we were subscribing
		m.mu.Unlock()
		unsub()
		return nil
	}
	m.unsub = unsub
	m.mu.Unlock()
	return nil
}

func (m *ReadModel) apply(gen int, ls []domain.Listing) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.snapshot = ls
	m.mu.Unlock()
	m.fanout(ls)
}

// Current returns a copy of the ordered snapshot.
func (m *ReadModel) Current() []domain.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Listing, len(m.snapshot))
	copy(out, m.snapshot)
	return out
}

// User returns the owner the model is currently mirroring.
func (m *ReadModel) User() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

// Watch hands out a channel receiving each new snapshot, for SSE push.
// Slow receivers miss intermediate snapshots, never the latest ordering
// guarantee: each delivery is self-consistent and whole.
func (m *ReadModel) Watch() (<-chan []domain.Listing, func()) {
	ch := make(chan []domain.Listing, 1)
	m.mu.Lock()
	id := m.next
	m.next++
	m.watchers[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *ReadModel) fanout(ls []domain.Listing) {
	m.mu.Lock()
	chans := make([]chan []domain.Listing, 0, len(m.watchers))
	for _, ch := range m.watchers {
		chans = append(chans, ch)
	}
	m.mu.Unlock()

	for _, ch := range chans {
		// drop the stale buffered snapshot if the receiver is behind
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ls:
		default:
		}
	}
}
