// Package collector runs scrapes: it wires the message pipeline to the
// organizer and exporters, and exposes a single-run HTTP control API.
package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/tgstore-scraper/internal/export"
	"github.com/blockedby/tgstore-scraper/internal/telegram"
)

// DefaultLimit is the number of messages scanned when no limit is given.
const DefaultLimit = 100

// errors
var (
	ErrAlreadyRunning = errors.New("a scrape job is already running")
)

// ScrapeOptions holds options for a scrape job
type ScrapeOptions struct {
	Channel      string
	Limit        int
	OldestFirst  bool
	ExportFormat string
	BigCommerce  bool
	ImageBaseURL string
	Profile      export.Profile
}

// ScrapeJob represents an active scrape job
type ScrapeJob struct {
	ID        uuid.UUID
	StartedAt time.Time
	Options   ScrapeOptions
}

// JobOutcome is the result of the last finished job.
type JobOutcome struct {
	JobID  uuid.UUID     `json:"scrape_id"`
	Result *ScrapeResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Scraper defines the interface for scraping logic
type Scraper interface {
	Scrape(ctx context.Context, opts ScrapeOptions) (*ScrapeResult, error)
	GetTelegramStatus() telegram.Status
}

// ScrapeManager manages active scrape jobs
// ensures only one job runs at a time
// thread-safe
type ScrapeManager struct {
	mu       sync.Mutex
	current  *ScrapeJob
	last     *JobOutcome
	cancelFn context.CancelFunc
	done     chan struct{}
	scraper  Scraper
}

// NewScrapeManager creates a new scrape manager
func NewScrapeManager(scraper Scraper) *ScrapeManager {
	return &ScrapeManager{
		scraper: scraper,
	}
}

// Start starts a new scrape job
// returns ErrAlreadyRunning if a job is already running
func (m *ScrapeManager) Start(_ context.Context, opts ScrapeOptions) (*ScrapeJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, ErrAlreadyRunning
	}

	// detached from the request context: the job outlives the HTTP handler
	scrapeCtx, cancel := context.WithCancel(context.Background())
	m.cancelFn = cancel

	job := &ScrapeJob{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Options:   opts,
	}
	m.current = job
	m.done = make(chan struct{})

	go m.run(scrapeCtx, job, m.done)

	return job, nil
}

// Stop cancels the current scrape job
// safe to call when no job is running
func (m *ScrapeManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
}

// Wait blocks until the current job, if any, has finished or ctx is done.
func (m *ScrapeManager) Wait(ctx context.Context) error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Current returns the currently running job
// returns nil if no job is running
func (m *ScrapeManager) Current() *ScrapeJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Last returns the outcome of the last finished job, or nil.
func (m *ScrapeManager) Last() *JobOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// run executes the scrape job
// this is called in a goroutine
func (m *ScrapeManager) run(ctx context.Context, job *ScrapeJob, done chan struct{}) {
	outcome := &JobOutcome{JobID: job.ID}

	defer func() {
		m.mu.Lock()
		if m.current != nil && m.current.ID == job.ID {
			m.current = nil
			m.cancelFn = nil
		}
		m.last = outcome
		m.mu.Unlock()
		close(done)
	}()

	if m.scraper == nil {
		outcome.Error = "no scraper initialized"
		return
	}

	result, err := m.scraper.Scrape(ctx, job.Options)
	outcome.Result = result
	if err != nil {
		outcome.Error = err.Error()
	}
}

// GetTelegramStatus returns the current Telegram connection status
func (m *ScrapeManager) GetTelegramStatus() telegram.Status {
	if m.scraper == nil {
		return "UNKNOWN"
	}
	return m.scraper.GetTelegramStatus()
}
