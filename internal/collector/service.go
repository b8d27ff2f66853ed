package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/blockedby/tgstore-scraper/internal/album"
	"github.com/blockedby/tgstore-scraper/internal/catalog"
	"github.com/blockedby/tgstore-scraper/internal/classifier"
	"github.com/blockedby/tgstore-scraper/internal/export"
	"github.com/blockedby/tgstore-scraper/internal/logger"
	"github.com/blockedby/tgstore-scraper/internal/models"
	"github.com/blockedby/tgstore-scraper/internal/organizer"
	"github.com/blockedby/tgstore-scraper/internal/pipeline"
	"github.com/blockedby/tgstore-scraper/internal/telegram"
)

// TelegramClient defines interface for telegram operations
type TelegramClient interface {
	ResolveChannel(ctx context.Context, ref string) (*telegram.Channel, error)
	GetHistory(ctx context.Context, channel telegram.Channel, req telegram.HistoryRequest) (telegram.HistoryPage, error)
	GetStatus() telegram.Status
}

// CatalogStore records runs and products. Optional.
type CatalogStore interface {
	CreateRun(ctx context.Context, run *catalog.Run) error
	SaveProduct(ctx context.Context, runID uuid.UUID, row models.ExportRow) error
	FinishRun(ctx context.Context, run *catalog.Run) error
}

// EventPublisher publishes scraper events. Optional.
type EventPublisher interface {
	PublishProductOrganized(ctx context.Context, event ProductOrganizedEvent) error
	PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error
}

// ProductOrganizedEvent is published for every complete product folder.
type ProductOrganizedEvent struct {
	RunID       uuid.UUID `json:"run_id"`
	Folder      string    `json:"folder"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Size        string    `json:"size,omitempty"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
}

// RunCompletedEvent is published once a run is over.
type RunCompletedEvent struct {
	RunID      uuid.UUID `json:"run_id"`
	Channel    string    `json:"channel"`
	Status     string    `json:"status"`
	Products   int       `json:"products"`
	Unparsed   int       `json:"unparsed"`
	Dropped    int       `json:"dropped"`
	Errors     int       `json:"errors"`
	ExportPath string    `json:"export_path,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Config holds the collaborators of a Service.
type Config struct {
	Telegram     TelegramClient
	Media        pipeline.MediaFetcher
	Organizer    *organizer.Organizer
	Fs           afero.Fs
	DownloadsDir string
	Catalog      CatalogStore   // nil disables the catalog sink
	Publisher    EventPublisher // nil disables events
	Pipeline     pipeline.Options
	FetchPolicy  pipeline.FetchPolicy
	Log          *logger.Logger
}

// Service orchestrates the scraping process
type Service struct {
	cfg Config
	log *logger.Logger
	now func() time.Time
}

// NewService creates a new collector service
func NewService(cfg Config) *Service {
	log := cfg.Log
	if log == nil {
		log = logger.Get()
	}
	if cfg.FetchPolicy.Attempts == 0 {
		cfg.FetchPolicy = pipeline.DefaultFetchPolicy()
	}
	return &Service{cfg: cfg, log: log, now: time.Now}
}

// ScrapeResult contains scraping statistics
type ScrapeResult struct {
	RunID       uuid.UUID `json:"run_id"`
	Channel     string    `json:"channel"`
	Posts       int       `json:"posts"`
	Products    int       `json:"products"`
	Unparsed    int       `json:"unparsed"`
	Dropped     int       `json:"dropped"`
	Errors      int       `json:"errors"`
	Fetched     int       `json:"fetched"`
	RetryWaits  int       `json:"retry_waits"`
	ExportPath  string    `json:"export_path,omitempty"`
	BigCommerce string    `json:"bigcommerce_path,omitempty"`
	Cancelled   bool      `json:"cancelled"`
	ScanError   string    `json:"scan_error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Status returns the catalog status of the run.
func (r *ScrapeResult) Status() string {
	switch {
	case r.Cancelled:
		return catalog.StatusCancelled
	case r.ScanError != "":
		return catalog.StatusFailed
	default:
		return catalog.StatusCompleted
	}
}

// Scrape performs one run over a channel: every post is grouped, classified
// and organized in arrival order, then the run export is written.
// A channel that cannot be resolved aborts the run. A transport error ends
// the scan but still exports what was organized. Cancellation skips the export.
func (s *Service) Scrape(ctx context.Context, opts ScrapeOptions) (*ScrapeResult, error) {
	if opts.ExportFormat == "" {
		opts.ExportFormat = string(export.FormatCSV)
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	format, err := export.ParseFormat(opts.ExportFormat)
	if err != nil {
		return nil, err
	}

	channel, err := s.cfg.Telegram.ResolveChannel(ctx, opts.Channel)
	if err != nil {
		return nil, fmt.Errorf("resolve channel: %w", err)
	}

	run := organizer.NewRun(s.now())
	result := &ScrapeResult{RunID: run.ID, Channel: opts.Channel, StartedAt: run.StartedAt}
	record := s.startCatalogRun(ctx, run, opts.Channel)

	s.log.Info().
		Str("run_id", run.ID.String()).
		Str("channel", opts.Channel).
		Int("limit", opts.Limit).
		Bool("oldest_first", opts.OldestFirst).
		Msg("starting scrape")

	src := telegram.NewHistorySource(s.cfg.Telegram, *channel, telegram.HistoryOptions{
		Limit:       opts.Limit,
		OldestFirst: opts.OldestFirst,
	})
	pipe := pipeline.New(src, s.cfg.Pipeline, s.log)
	fetcher := pipe.Fetcher(s.cfg.Media, s.cfg.FetchPolicy)
	grouper := album.NewGrouper(pipe)
	exporter := export.NewExporter(s.cfg.Fs, s.cfg.DownloadsDir)

	for {
		post, err := grouper.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				result.Cancelled = true
				break
			}
			result.ScanError = err.Error()
			s.log.Error().Err(err).Msg("scan stopped")
			// the open album is complete as far as it will ever be
			if post, ok := grouper.Flush(); ok {
				s.handlePost(ctx, run, post, fetcher, exporter, result)
			}
			break
		}

		s.handlePost(ctx, run, post, fetcher, exporter, result)
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
	}

	stats := pipe.Stats()
	result.Fetched = stats.Fetched
	result.RetryWaits = stats.RetryWaits
	result.Unparsed = run.Unparsed()

	if result.Cancelled {
		s.log.Warn().Int("products", result.Products).Msg("scrape cancelled, export skipped")
	} else {
		s.writeExports(opts, format, exporter, result)
	}

	result.FinishedAt = s.now()
	s.finish(record, result)

	s.log.Info().
		Int("fetched", result.Fetched).
		Int("posts", result.Posts).
		Int("products", result.Products).
		Int("unparsed", result.Unparsed).
		Int("dropped", result.Dropped).
		Int("errors", result.Errors).
		Str("export", result.ExportPath).
		Msg("scrape completed")

	return result, nil
}

func (s *Service) handlePost(ctx context.Context, run *organizer.Run, post models.Post, fetcher pipeline.MediaFetcher, exporter *export.Exporter, result *ScrapeResult) {
	result.Posts++
	cls := classifier.Classify(post)

	row, err := s.cfg.Organizer.Organize(ctx, run, cls, fetcher)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		result.Errors++
		s.log.Error().Err(err).Ints("message_ids", post.MessageIDs).Msg("failed to organize post")
		return
	}

	if _, ok := cls.(classifier.Dropped); ok {
		result.Dropped++
	}
	if row == nil {
		return
	}

	result.Products++
	exporter.Append(*row)
	s.sinkProduct(ctx, run.ID, *row)
}

// sinkProduct forwards a product to the optional catalog and event sinks.
// Sink failures never fail the run.
func (s *Service) sinkProduct(ctx context.Context, runID uuid.UUID, row models.ExportRow) {
	if s.cfg.Catalog != nil {
		if err := s.cfg.Catalog.SaveProduct(ctx, runID, row); err != nil {
			s.log.Warn().Err(err).Str("folder", row.Folder).Msg("failed to save product to catalog")
		}
	}
	if s.cfg.Publisher != nil {
		event := ProductOrganizedEvent{
			RunID:       runID,
			Folder:      row.Folder,
			Name:        row.Name,
			Price:       row.Price,
			Size:        row.Size,
			Description: row.Description,
			Images:      row.Images,
		}
		if err := s.cfg.Publisher.PublishProductOrganized(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("folder", row.Folder).Msg("failed to publish product event")
		}
	}
}

func (s *Service) writeExports(opts ScrapeOptions, format export.Format, exporter *export.Exporter, result *ScrapeResult) {
	path, err := exporter.Finalize(format)
	if err != nil {
		result.Errors++
		s.log.Error().Err(err).Msg("failed to write export")
	} else {
		result.ExportPath = path
	}

	if !opts.BigCommerce {
		return
	}

	profile := opts.Profile
	if opts.ImageBaseURL != "" {
		profile.ImageBaseURL = opts.ImageBaseURL
	}
	products := make([]export.Metadata, 0, exporter.Len())
	for _, row := range exporter.Rows() {
		products = append(products, export.Metadata{
			Folder:      row.Folder,
			Name:        row.Name,
			Price:       row.Price,
			Size:        row.Size,
			Description: row.Description,
			Images:      row.Images,
		})
	}
	bcPath, err := export.WriteFile(s.cfg.Fs, s.cfg.DownloadsDir, export.BigCommercePrefix,
		export.BigCommerceTable(products, profile), format, s.now())
	if err != nil {
		result.Errors++
		s.log.Error().Err(err).Msg("failed to write bigcommerce export")
		return
	}
	result.BigCommerce = bcPath
}

func (s *Service) startCatalogRun(ctx context.Context, run *organizer.Run, channel string) *catalog.Run {
	if s.cfg.Catalog == nil {
		return nil
	}
	record := &catalog.Run{ID: run.ID, Channel: channel, StartedAt: run.StartedAt}
	if err := s.cfg.Catalog.CreateRun(ctx, record); err != nil {
		s.log.Warn().Err(err).Msg("failed to record run in catalog")
	}
	return record
}

// finish closes the run in the sinks. It uses a fresh context so a cancelled
// run is still recorded.
func (s *Service) finish(record *catalog.Run, result *ScrapeResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if record != nil {
		record.Status = result.Status()
		record.Fetched = result.Fetched
		record.Products = result.Products
		record.Unparsed = result.Unparsed
		record.Dropped = result.Dropped
		record.Errors = result.Errors
		record.ExportPath = result.ExportPath
		if err := s.cfg.Catalog.FinishRun(ctx, record); err != nil {
			s.log.Warn().Err(err).Msg("failed to finish run in catalog")
		}
	}

	if s.cfg.Publisher != nil {
		event := RunCompletedEvent{
			RunID:      result.RunID,
			Channel:    result.Channel,
			Status:     result.Status(),
			Products:   result.Products,
			Unparsed:   result.Unparsed,
			Dropped:    result.Dropped,
			Errors:     result.Errors,
			ExportPath: result.ExportPath,
			FinishedAt: result.FinishedAt,
		}
		if err := s.cfg.Publisher.PublishRunCompleted(ctx, event); err != nil {
			s.log.Warn().Err(err).Msg("failed to publish run event")
		}
	}
}

// GetTelegramStatus returns the current Telegram connection status
func (s *Service) GetTelegramStatus() telegram.Status {
	return s.cfg.Telegram.GetStatus()
}
