package main

import (
	"flag"
	"fmt"
	"time"

	"tuis-auth-prototype/core"
)

// Terminal walkthrough of the state contract: subscribe an observer,
// sign in, show the Guest -> user transition, sign out. Needs no
// Postgres or Redis.
func main() {
	delay := flag.Duration("delay", 2*time.Second, "simulated authentication latency")
	username := flag.String("user", "alice", "username to sign in with")
	guest := flag.String("guest", "Guest", "display name while signed out")
	flag.Parse()

	state := core.NewAuthState(core.NewSimulatedAuthService(*delay))

	id := state.Subscribe(func(snap core.AuthSnapshot) {
		if snap.Authenticated {
			fmt.Printf("[observer] signed in: %s\n", snap.Username)
		} else {
			fmt.Printf("[observer] signed out (was: %q)\n", snap.Previous)
		}
	})

	fmt.Printf("display name: %s\n", state.DisplayName(*guest))
	fmt.Printf("signing in as %s (waiting %s)...\n", *username, *delay)

	// The password is accepted but never checked.
	if _, err := state.Login(*username, "anything"); err != nil {
		fmt.Printf("login failed: %v\n", err)
		return
	}
	fmt.Printf("display name: %s\n", state.DisplayName(*guest))

	state.Logout()
	fmt.Printf("display name: %s\n", state.DisplayName(*guest))

	state.Unsubscribe(id)
	state.Logout() // no observer output expected past this point
}
