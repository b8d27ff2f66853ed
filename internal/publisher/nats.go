// Package publisher sends scraper events to NATS JetStream.
package publisher

import (
	"context"
	"fmt"

	"github.com/blockedby/tgstore-scraper/internal/collector"
	natsclient "github.com/blockedby/tgstore-scraper/internal/nats"
)

// NATSClient interface to allow mocking
type NATSClient interface {
	Publish(ctx context.Context, subject string, data any) error
}

// NATSPublisher implements collector.EventPublisher
type NATSPublisher struct {
	js NATSClient
}

// NewNATSPublisher creates a new publisher
func NewNATSPublisher(client NATSClient) *NATSPublisher {
	return &NATSPublisher{js: client}
}

// PublishProductOrganized publishes an event for a product folder written to disk.
func (p *NATSPublisher) PublishProductOrganized(ctx context.Context, event collector.ProductOrganizedEvent) error {
	if err := p.js.Publish(ctx, natsclient.SubjectProducts, event); err != nil {
		return fmt.Errorf("publish product event: %w", err)
	}
	return nil
}

// PublishRunCompleted publishes the summary of a finished run.
func (p *NATSPublisher) PublishRunCompleted(ctx context.Context, event collector.RunCompletedEvent) error {
	if err := p.js.Publish(ctx, natsclient.SubjectRuns, event); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	return nil
}
