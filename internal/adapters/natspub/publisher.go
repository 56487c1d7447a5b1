package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/gather-events/events-api/internal/ports/out/notifier"
)

// Publisher sends event-change notifications as JSON on "<prefix>.<kind>".
// Publish failures are logged at warn and returned; callers do not fail requests on them.
type Publisher struct {
	nc     *nats.Conn
	prefix string
	log    zerolog.Logger
}

func NewPublisher(url, prefix string, log zerolog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("events-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrlRedacted()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{nc: nc, prefix: normalizePrefix(prefix), log: log}, nil
}

// Subject returns the subject a notification of kind is published on.
func (p *Publisher) Subject(kind notifier.Kind) string {
	return subjectFor(p.prefix, kind)
}

func (p *Publisher) Publish(ctx context.Context, n notifier.Notification) error {
	if err := ctx.Err(); err != nil {
		p.log.Warn().Err(err).
			Str("kind", string(n.Kind)).
			Str("event_id", string(n.EventID)).
			Msg("notification dropped")
		return err
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := nats.NewMsg(p.Subject(n.Kind))
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	if err := p.nc.PublishMsg(msg); err != nil {
		p.log.Warn().Err(err).
			Str("subject", msg.Subject).
			Str("event_id", string(n.EventID)).
			Msg("publish notification failed")
		return fmt.Errorf("publish notification: %w", err)
	}
	p.log.Debug().Str("subject", msg.Subject).Msg("published notification")
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close(ctx context.Context) error {
	if p.nc == nil {
		return nil
	}
	defer p.nc.Close()
	if err := p.nc.FlushWithContext(ctx); err != nil && p.nc.IsConnected() {
		return fmt.Errorf("flush nats: %w", err)
	}
	return nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return "events"
	}
	return prefix
}

func subjectFor(prefix string, kind notifier.Kind) string {
	return prefix + "." + string(kind)
}
