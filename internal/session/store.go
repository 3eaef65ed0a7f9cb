package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ovenfresh/bakeshop/internal/auth"
)

// RoleResolver is satisfied by roles.Resolver.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID uint) (string, error)
}

type Identity struct {
	UserID   uint
	Username string
}

// State is the session snapshot. Role is empty when the user has no resolved
// role (lookup failed or signed out); such users are treated as non-admin.
// Loading is true only until the first auth notification has been fully
// processed and never flips back, so gated UIs render exactly once.
type State struct {
	Identity *Identity
	Role     string
	Loading  bool
}

// Store is the single source of identity truth. It consumes the auth
// service's change notifications; nothing else mutates its state. SignOut in
// particular only requests termination, the resulting SIGNED_OUT notification
// does the clearing.
type Store struct {
	auth     *auth.Service
	resolver RoleResolver
	log      *slog.Logger

	mu          sync.Mutex
	state       State
	subs        map[int]func(State)
	nextSub     int
	unsubscribe func()
}

func New(authSvc *auth.Service, resolver RoleResolver, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		auth:     authSvc,
		resolver: resolver,
		log:      log,
		state:    State{Loading: true},
		subs:     make(map[int]func(State)),
	}
	s.unsubscribe = authSvc.OnAuthChange(s.handleAuthChange)
	return s
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn for synchronous notification on every state change.
// The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SignOut requests backend session termination. Local state is left alone:
// the SIGNED_OUT notification is the sole trigger for clearing, which keeps a
// single writer and avoids dual-write races.
func (s *Store) SignOut(ctx context.Context, refreshToken string) error {
	return s.auth.Logout(ctx, refreshToken)
}

// Close detaches the store from the auth service's notifications.
func (s *Store) Close() {
	s.unsubscribe()
}

func (s *Store) handleAuthChange(n auth.Notification) {
	var identity *Identity
	var role string

	if n.Session != nil {
		identity = &Identity{UserID: n.Session.UserID, Username: n.Session.Username}
		resolved, err := s.resolver.ResolveRole(context.Background(), n.Session.UserID)
		if err != nil {
			// Role-less is survivable; the user just isn't an admin.
			s.log.Error("role lookup failed", "userID", n.Session.UserID, "error", err)
		} else {
			role = resolved
		}
	}

	s.mu.Lock()
	s.state = State{Identity: identity, Role: role, Loading: false}
	state := s.state
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	s.log.Info("auth state changed", "event", n.Event, "signed_in", identity != nil)

	for _, fn := range fns {
		fn(state)
	}
}
