package telegram

import (
	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstore-scraper/internal/models"
)

// Channel represents a resolved telegram channel.
type Channel struct {
	ID         int64  // channel id
	AccessHash int64  // access hash for api calls
	Username   string // channel username (without @)
	Title      string // channel title
}

// InputPeer returns the peer used in API requests for this channel.
func (c Channel) InputPeer() tg.InputPeerClass {
	return &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash}
}

// HistoryRequest selects one page of channel history.
type HistoryRequest struct {
	OffsetID  int // 0 = newest messages
	AddOffset int // negative values page towards newer messages
	Limit     int // max 100
}

// HistoryPage is one page of channel history.
// Count, MinID and MaxID cover every returned entry including service
// messages, which are not converted.
type HistoryPage struct {
	Messages []models.RawMessage
	Count    int
	MinID    int
	MaxID    int
}
