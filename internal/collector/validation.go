package collector

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/tgstore-scraper/internal/export"
	"github.com/blockedby/tgstore-scraper/internal/telegram"
)

// validation errors
var (
	ErrChannelRequired = errors.New("channel is required")
	ErrInvalidLimit    = errors.New("limit must be non-negative")
	ErrInvalidFormat   = errors.New("export_format must be csv or xlsx")
)

// ScrapeRequest represents a request to scrape a telegram channel
type ScrapeRequest struct {
	// Channel - username, @username or t.me link.
	Channel string `json:"channel"`

	// Limit - maximum messages to scan.
	// 0 means the default.
	Limit int `json:"limit,omitempty"`

	// OldestFirst - scan from the first message of the channel.
	OldestFirst bool `json:"oldest_first,omitempty"`

	// ExportFormat - csv (default) or xlsx.
	ExportFormat string `json:"export_format,omitempty"`

	// BigCommerce - also write a BigCommerce import file.
	BigCommerce bool `json:"bigcommerce,omitempty"`

	// ImageBaseURL - prefix for BigCommerce image columns.
	ImageBaseURL string `json:"image_base_url,omitempty"`
}

// Validate performs basic validation of the request
// does not check if channel exists (that requires network call)
func (r *ScrapeRequest) Validate() error {
	r.Channel = telegram.NormalizeUsername(r.Channel)
	if r.Channel == "" {
		return ErrChannelRequired
	}

	if r.Limit < 0 {
		return ErrInvalidLimit
	}

	if r.ExportFormat == "" {
		r.ExportFormat = string(export.FormatCSV)
	}
	if _, err := export.ParseFormat(r.ExportFormat); err != nil {
		return ErrInvalidFormat
	}

	return nil
}

// Options converts the request into scrape options over defaults.
func (r *ScrapeRequest) Options(defaults ScrapeOptions) ScrapeOptions {
	opts := defaults
	opts.Channel = r.Channel
	if r.Limit > 0 {
		opts.Limit = r.Limit
	}
	opts.OldestFirst = r.OldestFirst
	opts.ExportFormat = r.ExportFormat
	opts.BigCommerce = r.BigCommerce || defaults.BigCommerce
	if r.ImageBaseURL != "" {
		opts.ImageBaseURL = r.ImageBaseURL
	}
	return opts
}

// ScrapeResponse represents response to scrape request
type ScrapeResponse struct {
	ScrapeID  uuid.UUID `json:"scrape_id"`
	Status    string    `json:"status"` // "running"
	Channel   string    `json:"channel"`
	StartedAt time.Time `json:"started_at"`
}
