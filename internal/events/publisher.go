// Package events publishes posting lifecycle events to NATS so downstream
// consumers (matchers, notifiers) see new and withdrawn postings without
// polling the store.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"azubimine/internal/config"
	"azubimine/internal/errors"
	"azubimine/internal/models"
	"azubimine/internal/telemetry"
)

var tracer = telemetry.GetTracer("azubimine/events")

const (
	NewPostingSubject      = "postings.new"
	InactivePostingSubject = "postings.inactive"
)

// InactiveEvent announces that a stored posting disappeared from its source.
type InactiveEvent struct {
	ID           string    `json:"id"`
	OriginalLink string    `json:"original_link"`
	DetectedAt   time.Time `json:"detected_at"`
}

type Publisher interface {
	PublishNewPosting(ctx context.Context, posting *models.JobPosting) error
	PublishInactive(ctx context.Context, id, originalLink string) error
	Close()
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewPublisher(cfg *config.Config, logger *zap.Logger) (Publisher, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, errors.Fatal("connecting to NATS", err)
	}

	return &natsPublisher{
		conn:   conn,
		logger: logger,
	}, nil
}

func (p *natsPublisher) PublishNewPosting(ctx context.Context, posting *models.JobPosting) error {
	_, span := tracer.Start(ctx, "PublishNewPosting")
	defer span.End()

	data, err := json.Marshal(posting)
	if err != nil {
		span.RecordError(err)
		return errors.Transient("marshaling posting event", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", NewPostingSubject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(NewPostingSubject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish new posting event",
			zap.String("id", posting.ID),
			zap.Error(err))
		return errors.Transient("publishing to NATS", err)
	}

	p.logger.Debug("published new posting event",
		zap.String("id", posting.ID),
		zap.String("subject", NewPostingSubject))
	return nil
}

func (p *natsPublisher) PublishInactive(ctx context.Context, id, originalLink string) error {
	_, span := tracer.Start(ctx, "PublishInactive")
	defer span.End()

	event := InactiveEvent{
		ID:           id,
		OriginalLink: originalLink,
		DetectedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return errors.Transient("marshaling inactive event", err)
	}

	if err := p.conn.Publish(InactivePostingSubject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish inactive event",
			zap.String("id", id),
			zap.Error(err))
		return errors.Transient("publishing to NATS", err)
	}

	p.logger.Debug("published inactive event",
		zap.String("id", id),
		zap.String("subject", InactivePostingSubject))
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
