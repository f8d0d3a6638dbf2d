package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/railwatch/broker/internal/logger"
)

// Config holds NATS connection settings.
type Config struct {
	Enabled bool
	URL     string
}

// Publisher publishes broker domain events to NATS.
//
// When NATS is not configured or unreachable the publisher is disabled and
// every Publish call is a no-op, so callers never branch on availability.
type Publisher struct {
	conn    *nats.Conn
	enabled bool
}

// NewPublisher connects to NATS. If disabled by config or the connection
// fails, returns a disabled publisher and no error: the event feed is an
// optional surface.
func NewPublisher(cfg Config) (*Publisher, error) {
	if !cfg.Enabled || cfg.URL == "" {
		logger.Events().Info().Msg("NATS publishing disabled")
		return &Publisher{enabled: false}, nil
	}

	opts := []nats.Option{
		nats.Name("railwatch-broker"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Events().Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Events().Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		logger.Events().Warn().Err(err).Str("url", cfg.URL).
			Msg("Failed to connect to NATS, event publishing disabled")
		return &Publisher{enabled: false}, nil
	}

	logger.Events().Info().Str("url", conn.ConnectedUrl()).Msg("Connected to NATS")
	return &Publisher{conn: conn, enabled: true}, nil
}

// Publish marshals the event and publishes it on subject. Best-effort:
// failures are logged, never returned to the signaling path.
func (p *Publisher) Publish(subject string, event interface{}) {
	if !p.enabled {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Events().Error().Err(err).Str("subject", subject).Msg("Failed to marshal event")
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		logger.Events().Warn().Err(err).Str("subject", subject).Msg("Failed to publish event")
	}
}

// Close flushes and closes the NATS connection.
func (p *Publisher) Close() error {
	if !p.enabled || p.conn == nil {
		return nil
	}
	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("flush NATS connection: %w", err)
	}
	p.conn.Close()
	return nil
}
