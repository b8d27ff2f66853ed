// Package catalog records scrape runs and organized products in PostgreSQL.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/blockedby/tgstore-scraper/internal/models"
)

// Run statuses.
const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusFailed    = "FAILED"
)

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Run is a single scrape of one channel.
type Run struct {
	ID         uuid.UUID
	Channel    string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
	Fetched    int
	Products   int
	Unparsed   int
	Dropped    int
	Errors     int
	ExportPath string
}

// Repository handles scrape_runs and products tables.
type Repository struct {
	db DBTX
}

// NewRepository creates a new catalog repository.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// CreateRun inserts a run row in RUNNING state. A zero ID is replaced with a new UUID.
func (r *Repository) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.Status = StatusRunning

	_, err := r.db.Exec(ctx, `
		INSERT INTO scrape_runs (id, channel, status, started_at)
		VALUES ($1, $2, $3, $4)
	`, run.ID, run.Channel, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// SaveProduct upserts one organized product of a run.
func (r *Repository) SaveProduct(ctx context.Context, runID uuid.UUID, row models.ExportRow) error {
	images := row.Images
	if images == nil {
		images = []string{}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO products (run_id, folder, name, price, size, description, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, folder) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			size = EXCLUDED.size,
			description = EXCLUDED.description,
			images = EXCLUDED.images
	`, runID, row.Folder, row.Name, row.Price, row.Size, row.Description, images)
	if err != nil {
		return fmt.Errorf("save product %s: %w", row.Folder, err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run.
func (r *Repository) FinishRun(ctx context.Context, run *Run) error {
	now := time.Now()
	run.FinishedAt = &now

	tag, err := r.db.Exec(ctx, `
		UPDATE scrape_runs
		SET status = $2, finished_at = $3, fetched = $4, products = $5,
		    unparsed = $6, dropped = $7, errors = $8, export_path = $9
		WHERE id = $1
	`, run.ID, run.Status, now, run.Fetched, run.Products,
		run.Unparsed, run.Dropped, run.Errors, run.ExportPath)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run %s: not found", run.ID)
	}
	return nil
}
