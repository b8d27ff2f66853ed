package collector

import (
	"errors"
	"testing"

	"github.com/blockedby/tgstore-scraper/internal/export"
)

// test scrape request validation
func TestScrapeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ScrapeRequest
		wantErr error
	}{
		{
			name:    "empty request - requires channel",
			req:     ScrapeRequest{},
			wantErr: ErrChannelRequired,
		},
		{
			name:    "only @",
			req:     ScrapeRequest{Channel: "@"},
			wantErr: ErrChannelRequired,
		},
		{
			name:    "valid channel only",
			req:     ScrapeRequest{Channel: "@sneaker_store"},
			wantErr: nil,
		},
		{
			name:    "valid t.me link",
			req:     ScrapeRequest{Channel: "https://t.me/sneaker_store"},
			wantErr: nil,
		},
		{
			name:    "valid with limit",
			req:     ScrapeRequest{Channel: "@test", Limit: 100},
			wantErr: nil,
		},
		{
			name:    "negative limit",
			req:     ScrapeRequest{Channel: "@test", Limit: -1},
			wantErr: ErrInvalidLimit,
		},
		{
			name:    "xlsx format",
			req:     ScrapeRequest{Channel: "@test", ExportFormat: "XLSX"},
			wantErr: nil,
		},
		{
			name:    "unknown format",
			req:     ScrapeRequest{Channel: "@test", ExportFormat: "json"},
			wantErr: ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScrapeRequest_Validate_Normalizes(t *testing.T) {
	req := ScrapeRequest{Channel: "https://t.me/sneaker_store"}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if req.Channel != "sneaker_store" {
		t.Errorf("Channel = %q, want sneaker_store", req.Channel)
	}
	if req.ExportFormat != "csv" {
		t.Errorf("ExportFormat = %q, want csv", req.ExportFormat)
	}
}

func TestScrapeRequest_Options(t *testing.T) {
	defaults := ScrapeOptions{
		Limit:        100,
		ImageBaseURL: "https://cdn.example.com",
		Profile:      export.DefaultProfile(),
	}

	t.Run("keeps defaults", func(t *testing.T) {
		req := ScrapeRequest{Channel: "shop", ExportFormat: "csv"}
		opts := req.Options(defaults)

		if opts.Limit != 100 {
			t.Errorf("Limit = %d, want 100", opts.Limit)
		}
		if opts.ImageBaseURL != "https://cdn.example.com" {
			t.Errorf("ImageBaseURL = %q", opts.ImageBaseURL)
		}
		if opts.Profile.PriceDivisor != 50 {
			t.Errorf("PriceDivisor = %v, want 50", opts.Profile.PriceDivisor)
		}
	})

	t.Run("request overrides", func(t *testing.T) {
		req := ScrapeRequest{Channel: "shop", Limit: 20, OldestFirst: true, ExportFormat: "xlsx", BigCommerce: true}
		opts := req.Options(defaults)

		if opts.Channel != "shop" || opts.Limit != 20 || !opts.OldestFirst || opts.ExportFormat != "xlsx" || !opts.BigCommerce {
			t.Errorf("Options() = %+v", opts)
		}
	})
}
