package core

import (
	"sync"
	"testing"
	"time"
)

func newTestState(delay time.Duration) *AuthState {
	return NewAuthState(NewSimulatedAuthService(delay))
}

func TestInitialState(t *testing.T) {
	s := newTestState(0)

	if u, ok := s.CurrentUser(); ok || u != "" {
		t.Fatalf("fresh state has user %q (ok=%v), want none", u, ok)
	}
	if s.IsAuthenticated() {
		t.Fatalf("fresh state reports authenticated")
	}
	if got := s.DisplayName("Guest"); got != "Guest" {
		t.Fatalf("DisplayName = %q, want Guest", got)
	}
}

func TestLoginIgnoresPassword(t *testing.T) {
	s := newTestState(0)

	for _, password := range []string{"anything", ""} {
		user, err := s.Login("alice", password)
		if err != nil {
			t.Fatalf("login with password %q: %v", password, err)
		}
		if user.Username != "alice" {
			t.Fatalf("login returned user %q, want alice", user.Username)
		}
		if u, ok := s.CurrentUser(); !ok || u != "alice" {
			t.Fatalf("after login CurrentUser = %q (ok=%v), want alice", u, ok)
		}
		if !s.IsAuthenticated() {
			t.Fatalf("after login IsAuthenticated = false")
		}
		s.Logout()
	}
}

func TestLoginWaitsConfiguredDelay(t *testing.T) {
	const delay = 50 * time.Millisecond
	s := newTestState(delay)

	start := time.Now()
	if _, err := s.Login("alice", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Fatalf("login returned after %s, want at least %s", elapsed, delay)
	}
}

func TestReadsDuringLoginObservePreviousValue(t *testing.T) {
	s := newTestState(80 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Login("alice", "x")
	}()

	time.Sleep(20 * time.Millisecond)
	if s.IsAuthenticated() {
		t.Fatalf("state became authenticated before login completed")
	}
	<-done
	if u, ok := s.CurrentUser(); !ok || u != "alice" {
		t.Fatalf("after completion CurrentUser = %q (ok=%v), want alice", u, ok)
	}
}

func TestOverlappingLoginsLastWriteWins(t *testing.T) {
	s := newTestState(60 * time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.Login("first", "x")
	}()
	time.Sleep(25 * time.Millisecond)
	go func() {
		defer wg.Done()
		_, _ = s.Login("second", "x")
	}()
	wg.Wait()

	if u, _ := s.CurrentUser(); u != "second" {
		t.Fatalf("CurrentUser = %q, want second (later call wins)", u)
	}
}

func TestLogoutIsIdempotentSafe(t *testing.T) {
	s := newTestState(0)

	if _, err := s.Login("alice", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	s.Logout()
	if s.IsAuthenticated() {
		t.Fatalf("authenticated after logout")
	}
	// Second logout from an already signed-out state must be safe.
	s.Logout()
	if u, ok := s.CurrentUser(); ok || u != "" {
		t.Fatalf("after double logout CurrentUser = %q (ok=%v), want none", u, ok)
	}
}

func TestObserversNotifiedOncePerMutation(t *testing.T) {
	s := newTestState(0)

	var mu sync.Mutex
	counts := map[string]int{}
	record := func(name string) AuthObserver {
		return func(AuthSnapshot) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		}
	}
	s.Subscribe(record("a"))
	s.Subscribe(record("b"))

	if _, err := s.Login("alice", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	s.Logout()
	s.Logout() // already-signed-out logout still notifies

	// Read accessors must not notify.
	s.CurrentUser()
	s.IsAuthenticated()
	s.DisplayName("Guest")

	mu.Lock()
	defer mu.Unlock()
	for _, name := range []string{"a", "b"} {
		if counts[name] != 3 {
			t.Fatalf("observer %s notified %d times, want 3", name, counts[name])
		}
	}
}

func TestUnsubscribedObserverNotInvoked(t *testing.T) {
	s := newTestState(0)

	calls := 0
	id := s.Subscribe(func(AuthSnapshot) { calls++ })

	s.Logout()
	s.Unsubscribe(id)
	s.Logout()
	if _, err := s.Login("alice", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if calls != 1 {
		t.Fatalf("observer invoked %d times after unsubscribe, want 1 total", calls)
	}
	if n := s.ObserverCount(); n != 0 {
		t.Fatalf("ObserverCount = %d, want 0", n)
	}

	// Unknown ids are ignored.
	s.Unsubscribe("obs:does-not-exist")
}

func TestSnapshotCarriesPreviousUser(t *testing.T) {
	s := newTestState(0)

	var snaps []AuthSnapshot
	s.Subscribe(func(snap AuthSnapshot) { snaps = append(snaps, snap) })

	if _, err := s.Login("alice", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := s.Login("bob", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	s.Logout()

	want := []struct {
		username, previous string
		authenticated      bool
	}{
		{"alice", "", true},
		{"bob", "alice", true},
		{"", "bob", false},
	}
	if len(snaps) != len(want) {
		t.Fatalf("got %d snapshots, want %d", len(snaps), len(want))
	}
	for i, w := range want {
		got := snaps[i]
		if got.Username != w.username || got.Previous != w.previous || got.Authenticated != w.authenticated {
			t.Fatalf("snapshot %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestAuthenticatedAlwaysDerivedFromUser(t *testing.T) {
	s := newTestState(0)

	check := func(step string) {
		_, ok := s.CurrentUser()
		if s.IsAuthenticated() != ok {
			t.Fatalf("after %s: IsAuthenticated diverges from CurrentUser presence", step)
		}
	}

	check("init")
	for _, op := range []string{"login:alice", "logout", "logout", "login:bob", "login:carol", "logout"} {
		if op == "logout" {
			s.Logout()
		} else {
			if _, err := s.Login(op[len("login:"):], "x"); err != nil {
				t.Fatalf("%s: %v", op, err)
			}
		}
		check(op)
	}
}
