package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber connects to NATS. Consumers are durable under the given name
// prefix; an empty prefix creates ephemeral consumers that only see new
// events.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, err := connect(url, "tifprobe-subscriber")
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

func (s *Subscriber) SubscribeScanCompleted(ctx context.Context, handler func(ctx context.Context, run *domain.ScanRun) error) error {
	return s.subscribe(subjectCompletedAny, "completed", func(data []byte) error {
		var run domain.ScanRun
		if err := json.Unmarshal(data, &run); err != nil {
			return err
		}
		return handler(ctx, &run)
	})
}

func (s *Subscriber) SubscribeMatchFound(ctx context.Context, handler func(ctx context.Context, event *domain.MatchEvent) error) error {
	return s.subscribe(subjectMatchAny, "match", func(data []byte) error {
		var event domain.MatchEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return err
		}
		return handler(ctx, &event)
	})
}

func (s *Subscriber) subscribe(subject, kind string, handle func([]byte) error) error {
	opts := []nats.SubOpt{nats.ManualAck(), nats.MaxDeliver(3)}
	if s.durable != "" {
		opts = append(opts, nats.Durable(s.durable+"-"+kind))
	} else {
		opts = append(opts, nats.DeliverNew())
	}

	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handle(msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, opts...)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
