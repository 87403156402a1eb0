package probe

import (
	"fmt"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/logging"
	"HttpSpectra/internal/model"

	"github.com/nats-io/nats.go"
)

// Publisher is responsible for publishing classified events to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("http-probe publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	logging.Infof("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish serializes an event and publishes it to the configured subject.
// Ignored events are dropped.
func (p *Publisher) Publish(ev model.Event) error {
	if ev.Kind == model.EventIgnore {
		return nil
	}
	data, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			logging.Warnf("Failed to drain NATS connection: %v", err)
		}
		logging.Infof("NATS connection drained and closed.")
	}
}
