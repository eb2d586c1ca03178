package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the scan stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url, "tifprobe-publisher")
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := streamConfig()
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishScanCompleted(ctx context.Context, run *domain.ScanRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectCompleted(run.Workflow), data, nats.Context(ctx), nats.MsgId(run.ID))
	return err
}

func (p *Publisher) PublishMatchFound(ctx context.Context, run *domain.ScanRun, match domain.Sample) error {
	data, err := json.Marshal(newMatchEvent(run, match, time.Now()))
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectMatch(run.Workflow), data, nats.Context(ctx), nats.MsgId(run.ID+"-match"))
	return err
}

func newMatchEvent(run *domain.ScanRun, match domain.Sample, at time.Time) *domain.MatchEvent {
	return &domain.MatchEvent{
		RunID:    run.ID,
		Workflow: run.Workflow,
		Path:     run.Path,
		Target:   run.Target,
		Sample:   match,
		At:       at.UTC(),
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
