package core

import (
	"context"
	"log"
	"time"
)

// Observer wiring. Side-effect failures are logged and swallowed:
// notification is fire-and-forget and never fails the mutation itself.

const observerTimeout = 3 * time.Second

// LogObserver writes every transition to the process log.
func LogObserver() AuthObserver {
	return func(snap AuthSnapshot) {
		if snap.Authenticated {
			log.Printf("auth: signed in user=%s", snap.Username)
		} else if snap.Previous != "" {
			log.Printf("auth: signed out user=%s", snap.Previous)
		} else {
			log.Printf("auth: signed out (no active user)")
		}
	}
}

// AuditObserver persists each transition to the audit trail.
func AuditObserver(repo AuthEventRepository) AuthObserver {
	return func(snap AuthSnapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
		defer cancel()

		username, kind := snap.Username, EventLogin
		if !snap.Authenticated {
			username, kind = snap.Previous, EventLogout
		}
		if err := repo.Insert(ctx, username, kind); err != nil {
			log.Printf("auth: audit insert failed: %v", err)
		}
	}
}

// PresenceObserver mirrors the signed-in user into the presence store.
// A login that replaces a different user clears the old flag first.
func PresenceObserver(store *PresenceStore) AuthObserver {
	return func(snap AuthSnapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
		defer cancel()

		if snap.Authenticated {
			if snap.Previous != "" && snap.Previous != snap.Username {
				if err := store.MarkOffline(ctx, snap.Previous); err != nil {
					log.Printf("presence: mark offline failed for %s: %v", snap.Previous, err)
				}
			}
			if err := store.MarkOnline(ctx, snap.Username); err != nil {
				log.Printf("presence: mark online failed for %s: %v", snap.Username, err)
			}
			return
		}
		if snap.Previous != "" {
			if err := store.MarkOffline(ctx, snap.Previous); err != nil {
				log.Printf("presence: mark offline failed for %s: %v", snap.Previous, err)
			}
		}
	}
}

// RecorderObserver appends each transition to the capped recent-event
// list in Redis.
func RecorderObserver(store *PresenceStore) AuthObserver {
	return func(snap AuthSnapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), observerTimeout)
		defer cancel()

		username, kind := snap.Username, EventLogin
		if !snap.Authenticated {
			username, kind = snap.Previous, EventLogout
		}
		ev := RecordedEvent{Username: username, Kind: kind, At: snap.ChangedAt}
		if err := store.RecordEvent(ctx, ev); err != nil {
			log.Printf("presence: record event failed: %v", err)
		}
	}
}
