package core

import (
	"time"
)

// SimulatedAuthService stands in for a remote identity provider.
// Authenticate waits a fixed delay and then accepts unconditionally;
// the password is received but never inspected. クレデンシャル検証は
// このプロトタイプの範囲外（拡張ポイント）。
type SimulatedAuthService struct {
	delay time.Duration
}

// NewSimulatedAuthService builds the placeholder service. A negative
// delay is treated as zero.
func NewSimulatedAuthService(delay time.Duration) *SimulatedAuthService {
	if delay < 0 {
		delay = 0
	}
	return &SimulatedAuthService{delay: delay}
}

// Authenticate simulates the network round-trip. Once started the wait
// always runs to completion; there is no cancellation or timeout path.
func (s *SimulatedAuthService) Authenticate(username, password string) (User, error) {
	_ = password // accepted, unused

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return User{Username: username, LoginAt: time.Now()}, nil
}
