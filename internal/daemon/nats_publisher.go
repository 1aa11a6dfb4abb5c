package daemon

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/presenced/internal/config"
	"git.home.luguber.info/inful/presenced/internal/foundation"
	"git.home.luguber.info/inful/presenced/internal/logfields"
	"git.home.luguber.info/inful/presenced/internal/status"
)

// NATSPublisher pushes active-status transitions to a NATS subject so
// other services can mirror presence without polling the HTTP API.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// presenceUpdate is the wire shape published on each transition.
type presenceUpdate struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Source string    `json:"source,omitempty"`
	Silent bool      `json:"silent,omitempty"`
	At     time.Time `json:"at"`
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("presenced"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, foundation.ConfigurationError("failed to connect to NATS").
			WithCause(err).
			WithComponent("nats_publisher").
			WithContext(foundation.Fields{"url": cfg.URL}).
			Build()
	}

	slog.Info("NATS publisher connected", logfields.Subject(cfg.Subject))
	return &NATSPublisher{conn: conn, subject: cfg.Subject}, nil
}

// Publish emits one transition. Errors are returned for the caller to log;
// the publisher itself never blocks arbitration.
func (p *NATSPublisher) Publish(change status.ActiveChange) error {
	update := presenceUpdate{
		From: change.FromLabel(),
		To:   change.ToLabel(),
		At:   change.At,
	}
	if change.To != nil {
		update.Source = string(change.To.Source)
		update.Silent = change.To.Silent
	}

	data, err := json.Marshal(update)
	if err != nil {
		return foundation.InternalError("failed to encode presence update").
			WithCause(err).
			WithComponent("nats_publisher").
			Build()
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return foundation.NewError(foundation.ErrorCodeExternal, "failed to publish presence update").
			WithCause(err).
			WithComponent("nats_publisher").
			Retryable().
			Build()
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		slog.Warn("NATS drain failed", logfields.Error(err))
		p.conn.Close()
	}
}
