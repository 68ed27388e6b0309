package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/sessions"

	"tuis-auth-prototype/core"
)

func main() {
	cfg := core.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			log.Fatalf("failed to apply config file: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	// State holder is built once here and passed by reference; nothing
	// else constructs one.
	state := core.NewAuthState(core.NewSimulatedAuthService(cfg.LoginDelay()))
	state.Subscribe(core.LogObserver())

	var events core.AuthEventRepository
	if cfg.AuditEnabled {
		db, err := core.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}
		defer db.Close()

		repo := core.NewPgAuthEventRepository(db)
		events = repo
		state.Subscribe(core.AuditObserver(repo))
	}

	var presence *core.PresenceStore
	if cfg.PresenceEnabled {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()

		presence = core.NewPresenceStore(redisClient)
		state.Subscribe(core.PresenceObserver(presence))
		state.Subscribe(core.RecorderObserver(presence))

		keeper := core.NewPresenceKeeper(presence)
		state.Subscribe(keeper.Observer())
		go keeper.Start(ctx)
	}

	// Gorilla cookie store for session management.
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))

	router := core.NewRouter(cfg, store, state, events, presence)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting auth prototype on %s (login delay %s)", addr, cfg.LoginDelay())
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
