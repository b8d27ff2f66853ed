package models

import (
	"time"
)

// MediaKind describes the kind of media attached to a message.
type MediaKind string

// MediaKind constants.
const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
)

// Attachment is a reference to one media item of a message.
// Ref is opaque to everything except the transport that produced it.
type Attachment struct {
	MessageID int       // id of the message carrying the media
	Kind      MediaKind // photo or document
	Ref       any       // transport-specific file location
}

// RawMessage is one physical message as delivered by the upstream transport.
type RawMessage struct {
	ID          int          // message id (unique, increasing within a channel)
	Date        time.Time    // message creation timestamp
	Text        string       // caption or message text, may be empty
	GroupID     int64        // album group id, 0 when the message is not part of an album
	Attachments []Attachment // ordered media references, may be empty
}

// HasGroup reports whether the message belongs to an album.
func (m *RawMessage) HasGroup() bool {
	return m.GroupID != 0
}

// Post is one logical listing assembled from one or more raw messages.
type Post struct {
	Text        string       // text of the first member carrying non-empty text
	Attachments []Attachment // all members' attachments in arrival order
	MessageIDs  []int        // contributing raw message ids
	Date        time.Time    // date of the first member
}
