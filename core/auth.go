package core

import "time"

// User represents an authenticated principal returned to handlers and
// delivered to observers.
type User struct {
	Username string
	LoginAt  time.Time
}

// AuthService defines authentication behaviour.
//
// The prototype implementation never rejects: any username/password
// pair is accepted after a simulated latency. A real implementation is
// expected to return invalid-credential or transport errors here; the
// callers already propagate them.
type AuthService interface {
	Authenticate(username, password string) (User, error)
}
