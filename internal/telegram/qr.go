package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth/qrlogin"
	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstore-scraper/internal/config"
)

// QRClientBundle contains all components needed for QR authentication.
type QRClientBundle struct {
	Client     *telegram.Client
	Dispatcher tg.UpdateDispatcher
	Storage    *session.StorageMemory
}

// NewQRClient creates a raw td/telegram client suitable for QR authentication.
// Unlike gotgproto's NewClient, this does NOT attempt interactive CLI auth.
func NewQRClient(cfg *config.Config) (*QRClientBundle, error) {
	memStorage := &session.StorageMemory{}
	dispatcher := tg.NewUpdateDispatcher()

	client := telegram.NewClient(cfg.TGApiID, cfg.TGApiHash, telegram.Options{
		SessionStorage: memStorage,
		UpdateHandler:  &dispatcher,
	})

	return &QRClientBundle{
		Client:     client,
		Dispatcher: dispatcher,
		Storage:    memStorage,
	}, nil
}

// IsQRInProgress returns true if a QR login flow is currently in progress.
func (m *Manager) IsQRInProgress() bool {
	return m.qrInProgress.Load()
}

// StartQR runs the QR login flow and stores the resulting session.
// It blocks until login succeeds or ctx is canceled; onQRCode is called for
// every login token Telegram issues.
func (m *Manager) StartQR(ctx context.Context, onQRCode func(url string)) error {
	if m.GetStatus() == StatusReady {
		return fmt.Errorf("already logged in")
	}

	m.qrMu.Lock()
	if m.qrInProgress.Load() {
		m.qrMu.Unlock()
		return fmt.Errorf("QR login already in progress")
	}
	qrCtx, cancel := context.WithCancel(ctx)
	m.qrCancel = cancel
	m.qrInProgress.Store(true)
	m.qrMu.Unlock()

	defer func() {
		m.qrInProgress.Store(false)
		m.qrMu.Lock()
		if m.qrCancel != nil {
			m.qrCancel()
			m.qrCancel = nil
		}
		m.qrMu.Unlock()
	}()

	m.mu.RLock()
	factory := m.qrClientFactory
	m.mu.RUnlock()

	bundle, err := factory(m.cfg)
	if err != nil {
		return fmt.Errorf("create QR client: %w", err)
	}

	var sessionData *session.Data
	err = bundle.Client.Run(qrCtx, func(ctx context.Context) error {
		loggedIn := qrlogin.OnLoginToken(&bundle.Dispatcher)

		if _, err := bundle.Client.QR().Auth(ctx, loggedIn, func(_ context.Context, token qrlogin.Token) error {
			m.log.Info().Msg("telegram: QR token generated")
			onQRCode(token.URL())
			return nil
		}); err != nil {
			return err
		}

		loader := session.Loader{Storage: bundle.Storage}
		data, err := loader.Load(ctx)
		sessionData = data
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return context.Canceled
		}
		return fmt.Errorf("QR auth flow failed: %w", err)
	}
	if sessionData == nil {
		return fmt.Errorf("session data is nil after successful auth")
	}

	m.log.Info().Msg("telegram: saving session to database")
	return m.ImportSession(sessionData)
}

// CancelQR cancels any ongoing QR login flow.
func (m *Manager) CancelQR() {
	m.qrMu.Lock()
	defer m.qrMu.Unlock()

	if m.qrCancel != nil {
		m.qrCancel()
		m.qrCancel = nil
	}
	m.qrInProgress.Store(false)
}
