package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/celestix/gotgproto"
	"github.com/gotd/td/session"
	"gorm.io/gorm"

	"github.com/blockedby/tgstore-scraper/internal/config"
	"github.com/blockedby/tgstore-scraper/internal/logger"
)

// Status represents the Telegram client status.
type Status string

// Status constants define the possible states of the Telegram client.
const (
	StatusInitializing Status = "INITIALIZING"
	StatusReady        Status = "READY"
	StatusUnauthorized Status = "UNAUTHORIZED"
	StatusError        Status = "ERROR"
)

// ErrNoSession is returned by Init when the session file holds no login.
var ErrNoSession = errors.New("no telegram session stored, run tg-auth first")

// ClientFactory is a function that creates a telegram client.
type ClientFactory func(ctx context.Context, cfg *config.Config, db *gorm.DB) (*gotgproto.Client, error)

// QRClientFactory is a function that creates a raw telegram client for QR auth.
type QRClientFactory func(cfg *config.Config) (*QRClientBundle, error)

// Manager handles Telegram client lifecycle and the stored session.
type Manager struct {
	client *gotgproto.Client
	db     *gorm.DB
	cfg    *config.Config
	log    *logger.Logger

	status Status
	mu     sync.RWMutex

	clientFactory   ClientFactory
	qrClientFactory QRClientFactory

	qrInProgress atomic.Bool
	qrCancel     context.CancelFunc
	qrMu         sync.Mutex
}

// NewManager creates a new Telegram Manager over the session database.
func NewManager(cfg *config.Config, db *gorm.DB) *Manager {
	return &Manager{
		db:              db,
		cfg:             cfg,
		log:             logger.Get().Component("telegram"),
		status:          StatusInitializing,
		clientFactory:   NewPersistentClient,
		qrClientFactory: NewQRClient,
	}
}

// SetClientFactory allows overriding the client creation logic (e.g. for testing).
func (m *Manager) SetClientFactory(f ClientFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientFactory = f
}

// SetQRClientFactory allows overriding the QR client creation logic (e.g. for testing).
func (m *Manager) SetQRClientFactory(f QRClientFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qrClientFactory = f
}

// GetStatus returns the current Telegram client status.
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// GetClient returns the underlying Telegram client.
func (m *Manager) GetClient() *gotgproto.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// HasSession reports whether the session table holds a stored login.
func (m *Manager) HasSession() (bool, error) {
	if !m.db.Migrator().HasTable(sessionsTable) {
		return false, nil
	}
	var count int64
	if err := m.db.Table(sessionsTable).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check sessions table: %w", err)
	}
	return count > 0, nil
}

// Init connects using the stored session.
// Without a session it returns ErrNoSession and never starts an interactive login.
func (m *Manager) Init(ctx context.Context) error {
	m.setStatus(StatusInitializing)

	ok, err := m.HasSession()
	if err != nil {
		m.setStatus(StatusError)
		return err
	}
	if !ok {
		m.log.Info().Msg("telegram: no session in database, waiting for auth")
		m.setStatus(StatusUnauthorized)
		return ErrNoSession
	}

	m.mu.RLock()
	factory := m.clientFactory
	m.mu.RUnlock()

	client, err := factory(ctx, m.cfg, m.db)
	if err != nil {
		m.log.Warn().Err(err).Msg("telegram: failed to initialize persistent client")
		m.setStatus(StatusUnauthorized)
		return fmt.Errorf("connect with stored session: %w", err)
	}

	m.mu.Lock()
	m.client = client
	m.status = StatusReady
	m.mu.Unlock()

	m.log.Info().Msg("telegram: client is ready")
	return nil
}

// ImportSession stores gotd session data (from QR login or Telegram Desktop)
// so the next Init can use it.
func (m *Manager) ImportSession(data *session.Data) error {
	sess, err := ConvertToGotgprotoSession(data)
	if err != nil {
		return err
	}
	if err := m.db.AutoMigrate(sess); err != nil {
		return fmt.Errorf("migrate sessions table: %w", err)
	}
	// Version is the primary key, so Save replaces the stored row.
	if err := m.db.Save(sess).Error; err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Stop stops the Telegram client.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Stop()
		m.client = nil
	}
}
