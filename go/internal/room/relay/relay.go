package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/communityfocus/focusd/go/internal/room/events"
)

// Config holds JetStream settings for the room event relay.
type Config struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration
	PublishWait   time.Duration
}

// DefaultConfig returns the production relay settings.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		StreamName:    "ROOM_EVENTS",
		SubjectPrefix: "room.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		MaxAge:        24 * time.Hour,
		PublishWait:   5 * time.Second,
	}
}

// JetStreamRelay publishes room lifecycle events to a JetStream stream for
// out-of-process consumers. Delivery is at-most-once: publish failures are
// logged and dropped, never surfaced to the timer core.
type JetStreamRelay struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg Config
}

func NewJetStreamRelay(cfg Config) (*JetStreamRelay, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	r := &JetStreamRelay{nc: nc, js: js, cfg: cfg}
	if err := r.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return r, nil
}

func (r *JetStreamRelay) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        r.cfg.StreamName,
		Description: "Room timer lifecycle events",
		Subjects:    []string{fmt.Sprintf("%s.>", r.cfg.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      r.cfg.MaxAge,
		Storage:     jetstream.FileStorage,
	}

	if _, err := r.js.Stream(ctx, r.cfg.StreamName); err != nil {
		if _, err := r.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", r.cfg.StreamName).Msg("created JetStream stream")
	}
	return nil
}

// Publish sends an event to `<prefix>.<room>.<type>`. Non-blocking for the
// caller; the actual publish runs on its own goroutine with a deadline.
func (r *JetStreamRelay) Publish(event *events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("room", event.Room).Msg("failed to marshal relay event")
		return
	}
	subject := fmt.Sprintf("%s.%s.%s", r.cfg.SubjectPrefix, event.Room, event.Type)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.PublishWait)
		defer cancel()
		if _, err := r.js.Publish(ctx, subject, data); err != nil {
			log.Error().Err(err).Str("subject", subject).Msg("failed to publish room event")
			return
		}
		log.Debug().Str("subject", subject).Msg("published room event")
	}()
}

// Close drains the NATS connection.
func (r *JetStreamRelay) Close() {
	r.nc.Close()
}
