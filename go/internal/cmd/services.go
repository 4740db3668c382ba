package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/communityfocus/focusd/go/internal/room/chatlog"
	"github.com/communityfocus/focusd/go/internal/room/gateway"
	"github.com/communityfocus/focusd/go/internal/room/relay"
	"github.com/communityfocus/focusd/go/internal/room/repository"
	"github.com/communityfocus/focusd/go/internal/room/timer"
)

// Services holds every wired component of the process.
type Services struct {
	Registry          *timer.Registry
	ConnectionManager *gateway.ConnectionManager
	WebSocketHandler  *gateway.WebSocketHandler
	Relay             *relay.JetStreamRelay
	Repo              *repository.Repository
}

func setupServices(cfg *Config, pool *pgxpool.Pool) (*Services, error) {
	repo := repository.NewRepository(pool)

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	chat := chatlog.New(repo, cm)

	var eventRelay *relay.JetStreamRelay
	var relaySink timer.Relay
	if cfg.NATS.Enabled {
		relayCfg := relay.DefaultConfig()
		relayCfg.URL = cfg.NATS.URL
		r, err := relay.NewJetStreamRelay(relayCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to set up event relay: %w", err)
		}
		eventRelay = r
		relaySink = r
	} else {
		log.Info().Msg("event relay disabled")
	}

	timerCfg := timer.DefaultConfig()
	timerCfg.ReapDelay = cfg.ReapDelay()
	if cfg.Timer.HeartbeatEvery > 0 {
		timerCfg.HeartbeatEvery = cfg.Timer.HeartbeatEvery
	}
	if cfg.Timer.HeartbeatQuietWindow > 0 {
		timerCfg.HeartbeatQuietWindow = cfg.Timer.HeartbeatQuietWindow
	}

	registry := timer.NewRegistry(timerCfg, clockwork.NewRealClock(), cm, repo, chat, relaySink)

	// The manager broadcasts for the registry and feeds it inbound events;
	// both exist before the loop closes.
	cm.AttachCore(registry)

	return &Services{
		Registry:          registry,
		ConnectionManager: cm,
		WebSocketHandler:  gateway.NewWebSocketHandler(cm),
		Relay:             eventRelay,
		Repo:              repo,
	}, nil
}
