package core

import (
	"sync"
	"time"
)

// AuthSnapshot is the immutable view delivered to observers after each
// completed mutation. Previous carries the username that was signed in
// before the change, so logout consumers still know who left.
type AuthSnapshot struct {
	Username      string
	Previous      string
	Authenticated bool
	ChangedAt     time.Time
}

// AuthObserver is a registered callback invoked after every login
// completion and every logout. Observers must not assume any relative
// order among themselves.
type AuthObserver func(AuthSnapshot)

// AuthState holds the current authenticated identity and fans change
// notifications out to registered observers.
//
// The authenticated flag is never stored separately: it is always
// derived from the presence of the current user, so the two cannot
// diverge. One instance is built at the application root and shared by
// reference for the process lifetime.
type AuthState struct {
	service AuthService

	mu          sync.Mutex
	currentUser string // empty = unauthenticated
	observers   map[string]AuthObserver
}

// NewAuthState builds an unauthenticated state backed by service.
func NewAuthState(service AuthService) *AuthState {
	return &AuthState{
		service:   service,
		observers: make(map[string]AuthObserver),
	}
}

// Login runs the authentication call, which may suspend for the
// simulated latency, then installs the returned identity and notifies
// observers. The lock is held only for the assignment, never across
// the suspension, so reads during the wait observe the previous value
// and overlapping logins resolve last-write-wins.
func (s *AuthState) Login(username, password string) (User, error) {
	user, err := s.service.Authenticate(username, password)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	prev := s.currentUser
	s.currentUser = user.Username
	snap := s.snapshotLocked(prev)
	targets := s.observersLocked()
	s.mu.Unlock()

	notify(targets, snap)
	return user, nil
}

// Logout clears the identity immediately. Calling it while already
// signed out leaves the value unchanged but still notifies.
func (s *AuthState) Logout() {
	s.mu.Lock()
	prev := s.currentUser
	s.currentUser = ""
	snap := s.snapshotLocked(prev)
	targets := s.observersLocked()
	s.mu.Unlock()

	notify(targets, snap)
}

// CurrentUser returns the signed-in username; ok is false when nobody
// is signed in. No side effects.
func (s *AuthState) CurrentUser() (username string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentUser, s.currentUser != ""
}

// IsAuthenticated reports whether an identity is present. Derived from
// the current user, per the invariant above.
func (s *AuthState) IsAuthenticated() bool {
	_, ok := s.CurrentUser()
	return ok
}

// DisplayName returns the username for presentation, or fallback
// (typically "Guest") when signed out.
func (s *AuthState) DisplayName(fallback string) string {
	if u, ok := s.CurrentUser(); ok {
		return u
	}
	return fallback
}

// Subscribe registers fn and returns an id usable with Unsubscribe.
// The callback fires after every subsequent mutation.
func (s *AuthState) Subscribe(fn AuthObserver) string {
	id := NewObserverID()
	s.mu.Lock()
	s.observers[id] = fn
	s.mu.Unlock()
	return id
}

// Unsubscribe removes the observer registered under id. After it
// returns, the callback is never invoked again. Unknown ids are
// ignored.
func (s *AuthState) Unsubscribe(id string) {
	s.mu.Lock()
	delete(s.observers, id)
	s.mu.Unlock()
}

// ObserverCount returns the number of registered observers.
func (s *AuthState) ObserverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

func (s *AuthState) snapshotLocked(prev string) AuthSnapshot {
	return AuthSnapshot{
		Username:      s.currentUser,
		Previous:      prev,
		Authenticated: s.currentUser != "",
		ChangedAt:     time.Now(),
	}
}

// observersLocked copies the callback set so notification can run
// without holding the lock (observers may call back into AuthState).
func (s *AuthState) observersLocked() []AuthObserver {
	targets := make([]AuthObserver, 0, len(s.observers))
	for _, fn := range s.observers {
		targets = append(targets, fn)
	}
	return targets
}

func notify(targets []AuthObserver, snap AuthSnapshot) {
	for _, fn := range targets {
		fn(snap)
	}
}
