package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubmissionEvent announces a stored submission
type SubmissionEvent struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Country     string         `json:"country"`
	Ecosystem   string         `json:"ecosystem"`
	AreaHa      float64        `json:"areaHa"`
	FileCounts  map[string]int `json:"fileCounts"`
	SubmittedBy *uuid.UUID     `json:"submittedBy,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Publisher delivers submission events to interested consumers
type Publisher interface {
	PublishSubmitted(ctx context.Context, ev SubmissionEvent) error
	Close()
}

// Noop discards every event
type Noop struct{}

func (Noop) PublishSubmitted(context.Context, SubmissionEvent) error { return nil }
func (Noop) Close()                                                   {}

// NATS publishes events as JSON on a single subject
type NATS struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

// Connect dials the NATS server at url
func Connect(url, subject string, logger *zap.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("bluecarbon-registry"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATS{conn: conn, subject: subject, logger: logger}, nil
}

// PublishSubmitted encodes ev and publishes it
func (p *NATS) PublishSubmitted(ctx context.Context, ev SubmissionEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATS) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain NATS connection", zap.Error(err))
		p.conn.Close()
	}
}
