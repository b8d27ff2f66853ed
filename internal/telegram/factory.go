package telegram

import (
	"context"
	"fmt"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"gorm.io/gorm"

	"github.com/blockedby/tgstore-scraper/internal/config"
)

// NewPersistentClient creates a telegram client whose session lives in db.
// Auth key refreshes are written back to the same sqlite file.
func NewPersistentClient(_ context.Context, cfg *config.Config, db *gorm.DB) (*gotgproto.Client, error) {
	client, err := gotgproto.NewClient(
		cfg.TGApiID,
		cfg.TGApiHash,
		gotgproto.ClientTypePhone(""), // empty = use stored session
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(db.Dialector),
			DisableCopyright: true,
			InMemory:         false,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return client, nil
}
