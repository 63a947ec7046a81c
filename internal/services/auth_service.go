package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"mermanager/internal/domain"
	"mermanager/internal/store"
)

var ErrNoSession = errors.New("no signed-in user for session")

const (
	identityKey   = "user"
	sessionPrefix = "session:"
)

// AuthService wraps the external sign-in flow. The demo provider returns
// a fixed identity the way the original preview environment does; the
// signed-in identity is persisted in the store's identity bucket so it
// survives restarts. Subscribers get the current user immediately and on
// every sign-in/sign-out.
type AuthService struct {
	Store store.Store

	mu      sync.Mutex
	current *domain.User
	subs    map[int]func(*domain.User)
	next    int
}

func NewAuthService(st store.Store) *AuthService {
	s := &AuthService{Store: st, subs: map[int]func(*domain.User){}}
	// Restore a persisted identity from a previous run.
	if doc, err := st.LoadIdentity(context.Background(), identityKey); err == nil {
		var u domain.User
		if json.Unmarshal(doc, &u) == nil && u.ID != "" {
			s.current = &u
		}
	}
	return s
}

// Subscribe invokes fn once immediately with the current user (nil when
// signed out) and again on every auth change.
func (s *AuthService) Subscribe(fn func(*domain.User)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	cur := s.current
	s.mu.Unlock()

	fn(cur)
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SignIn runs the interactive provider flow for the given web session.
// The demo provider always yields the same identity.
func (s *AuthService) SignIn(ctx context.Context, sid string) (*domain.User, error) {
	u := &domain.User{
		ID:       "demo-user-123",
		Name:     "デモ ユーザー",
		Email:    "demo@example.com",
		PhotoURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=mer",
	}

	doc, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	if err := s.Store.SaveIdentity(ctx, identityKey, doc); err != nil {
		return nil, fmt.Errorf("persist identity: %w", err)
	}
	if err := s.Store.SaveIdentity(ctx, sessionPrefix+sid, []byte(u.ID)); err != nil {
		return nil, fmt.Errorf("bind session: %w", err)
	}

	s.mu.Lock()
	s.current = u
	s.mu.Unlock()
	s.broadcast(u)
	return u, nil
}

// SignOut clears the session binding and the persisted identity.
func (s *AuthService) SignOut(ctx context.Context, sid string) error {
	if err := s.Store.DeleteIdentity(ctx, sessionPrefix+sid); err != nil {
		return err
	}
	if err := s.Store.DeleteIdentity(ctx, identityKey); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.broadcast(nil)
	return nil
}

// CurrentUser resolves the signed-in user bound to a web session.
func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	uid, err := s.Store.LoadIdentity(ctx, sessionPrefix+sid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	doc, err := s.Store.LoadIdentity(ctx, identityKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	var u domain.User
	if err := json.Unmarshal(doc, &u); err != nil {
		return nil, err
	}
	if u.ID != string(uid) {
		return nil, ErrNoSession
	}
	return &u, nil
}

func (s *AuthService) broadcast(u *domain.User) {
	s.mu.Lock()
	fns := make([]func(*domain.User), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}
