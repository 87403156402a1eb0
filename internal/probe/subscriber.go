package probe

import (
	"fmt"
	"sync/atomic"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/logging"
	"HttpSpectra/internal/model"

	"github.com/nats-io/nats.go"
)

// EventHandler processes one received event.
type EventHandler func(ev model.Event)

// Subscriber is responsible for subscribing to a NATS subject and decoding events.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	closed  chan struct{}
	dropped atomic.Uint64
}

const drainTimeout = 5 * time.Second

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.ProbeConfig) (*Subscriber, error) {
	closed := make(chan struct{})
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("http-probe subscriber"),
		nats.DrainTimeout(drainTimeout),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATSURL, err)
	}
	logging.Infof("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject, closed: closed}, nil
}

// Start subscribes to the configured subject. NATS delivers the messages of
// one subscription sequentially, so handler sees events in publish order.
func (s *Subscriber) Start(handler EventHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		ev, err := DecodeEvent(msg.Data)
		if err != nil {
			s.dropped.Add(1)
			logging.Warnf("Error decoding event: %v", err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to '%s': %w", s.subject, err)
	}
	s.sub = sub
	logging.Infof("Subscribed to '%s'. Waiting for events...", s.subject)
	return nil
}

// Dropped returns the number of messages that could not be decoded.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Close drains the connection and waits for it to close. Handler calls may
// still be running if the drain times out.
func (s *Subscriber) Close() {
	if s.nc == nil {
		return
	}
	if err := s.nc.Drain(); err != nil {
		logging.Warnf("Failed to drain NATS connection: %v", err)
		s.nc.Close()
	}
	select {
	case <-s.closed:
		logging.Infof("NATS connection drained and closed.")
	case <-time.After(drainTimeout + time.Second):
		logging.Warnf("Timed out waiting for NATS connection to close")
	}
}
