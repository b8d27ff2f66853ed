package telegram

import (
	"encoding/json"
	"fmt"

	"github.com/celestix/gotgproto/storage"
	"github.com/glebarez/sqlite"
	"github.com/gotd/td/session"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sessionsTable is where gotgproto's SqlSession keeps the auth key.
const sessionsTable = "sessions"

// OpenSessionDB opens (or creates) the sqlite file holding the session.
func OpenSessionDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open session db %s: %w", path, err)
	}
	return db, nil
}

// storedSession mirrors the envelope gotd's session.Loader reads back.
type storedSession struct {
	Version int
	Data    session.Data
}

// ConvertToGotgprotoSession wraps gotd session data into the row gotgproto
// stores in its sessions table.
func ConvertToGotgprotoSession(data *session.Data) (*storage.Session, error) {
	if data == nil {
		return nil, fmt.Errorf("session data is nil")
	}

	raw, err := json.Marshal(storedSession{Version: storage.LatestVersion, Data: *data})
	if err != nil {
		return nil, fmt.Errorf("marshal session data: %w", err)
	}

	return &storage.Session{
		Version: storage.LatestVersion,
		Data:    raw,
	}, nil
}
