package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/tgerr"
)

// FloodWait reports whether err is a FLOOD_WAIT rpc error and how long
// Telegram asked to wait.
func FloodWait(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if d, ok := tgerr.AsFloodWait(err); ok {
		return d, true
	}

	// errors flattened to text by gotgproto lose their type,
	// e.g. "rpc error code 420: FLOOD_WAIT_15"
	str := err.Error()
	_, rest, found := strings.Cut(str, "FLOOD_WAIT_")
	if !found {
		return 0, false
	}
	var seconds int
	if _, err := fmt.Sscanf(strings.TrimSpace(rest), "%d", &seconds); err != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
