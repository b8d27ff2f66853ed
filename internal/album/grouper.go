// Package album groups physical messages into logical posts.
package album

import (
	"context"
	"errors"
	"io"

	"github.com/blockedby/tgstore-scraper/internal/models"
)

// MessageStream yields raw messages in arrival order and io.EOF when exhausted.
type MessageStream interface {
	Next(ctx context.Context) (models.RawMessage, error)
}

// Grouper turns a message stream into a stream of posts.
// Album members are expected to arrive contiguously: a group is closed as soon
// as a message outside of it (or the end of the stream) is seen.
// A Grouper is single pass and cannot be restarted.
type Grouper struct {
	src MessageStream

	open    *models.Post
	openID  int64
	pending *models.Post // singleton seen while closing an open group
	done    bool
}

// NewGrouper creates a grouper reading from src.
func NewGrouper(src MessageStream) *Grouper {
	return &Grouper{src: src}
}

// Next returns the next post, or io.EOF once the stream and every open group are drained.
// Errors from the underlying stream other than io.EOF are returned as is; the
// open group is kept so that a later call can continue.
func (g *Grouper) Next(ctx context.Context) (models.Post, error) {
	if g.pending != nil {
		post := *g.pending
		g.pending = nil
		return post, nil
	}

	for !g.done {
		msg, err := g.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			g.done = true
			break
		}
		if err != nil {
			return models.Post{}, err
		}

		if !msg.HasGroup() {
			single := newPost(msg)
			if closed, ok := g.close(); ok {
				g.pending = &single
				return closed, nil
			}
			return single, nil
		}

		if g.open != nil && g.openID == msg.GroupID {
			appendMember(g.open, msg)
			continue
		}

		closed, hadOpen := g.close()
		post := newPost(msg)
		g.open, g.openID = &post, msg.GroupID
		if hadOpen {
			return closed, nil
		}
	}

	if closed, ok := g.close(); ok {
		return closed, nil
	}
	return models.Post{}, io.EOF
}

// Flush returns the open group, if any, without reading further from the
// stream. It is used when the stream failed and will not be resumed.
func (g *Grouper) Flush() (models.Post, bool) {
	if g.pending != nil {
		post := *g.pending
		g.pending = nil
		return post, true
	}
	return g.close()
}

func (g *Grouper) close() (models.Post, bool) {
	if g.open == nil {
		return models.Post{}, false
	}
	post := *g.open
	g.open, g.openID = nil, 0
	return post, true
}

func newPost(msg models.RawMessage) models.Post {
	return models.Post{
		Text:        msg.Text,
		Attachments: append([]models.Attachment(nil), msg.Attachments...),
		MessageIDs:  []int{msg.ID},
		Date:        msg.Date,
	}
}

// appendMember adds an album member; its text is only used while the post has none.
func appendMember(post *models.Post, msg models.RawMessage) {
	post.Attachments = append(post.Attachments, msg.Attachments...)
	post.MessageIDs = append(post.MessageIDs, msg.ID)
	if post.Text == "" {
		post.Text = msg.Text
	}
}
