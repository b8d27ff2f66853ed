package telegram

import (
	"context"
	"io"
	"sort"

	"github.com/blockedby/tgstore-scraper/internal/models"
	"github.com/blockedby/tgstore-scraper/internal/pipeline"
)

// HistoryClient fetches pages of channel history.
type HistoryClient interface {
	GetHistory(ctx context.Context, channel Channel, req HistoryRequest) (HistoryPage, error)
}

// HistoryOptions bounds and orders a history scan.
type HistoryOptions struct {
	Limit       int  // messages to deliver
	OldestFirst bool // start from the first message of the channel
	PageSize    int  // default and max 100
}

// HistorySource streams channel messages page by page.
// It is single pass and not restartable.
type HistorySource struct {
	client  HistoryClient
	channel Channel
	opts    HistoryOptions

	buf       []models.RawMessage
	cursor    int
	delivered int
	done      bool
}

// NewHistorySource creates a source over channel.
func NewHistorySource(client HistoryClient, channel Channel, opts HistoryOptions) *HistorySource {
	if opts.PageSize <= 0 || opts.PageSize > maxPageSize {
		opts.PageSize = maxPageSize
	}
	return &HistorySource{client: client, channel: channel, opts: opts}
}

// Next returns the next message or io.EOF once the limit is reached or the
// history is exhausted. A FLOOD_WAIT while paging is returned as a
// pipeline.RetryAfterError and the same page is requested on the next call.
func (s *HistorySource) Next(ctx context.Context) (models.RawMessage, error) {
	for len(s.buf) == 0 {
		if s.done || s.delivered >= s.opts.Limit {
			return models.RawMessage{}, io.EOF
		}
		if err := s.fill(ctx); err != nil {
			if wait, ok := FloodWait(err); ok {
				return models.RawMessage{}, &pipeline.RetryAfterError{Wait: wait}
			}
			return models.RawMessage{}, err
		}
	}

	msg := s.buf[0]
	s.buf = s.buf[1:]
	s.delivered++
	return msg, nil
}

func (s *HistorySource) fill(ctx context.Context) error {
	n := min(s.opts.PageSize, s.opts.Limit-s.delivered)

	if s.opts.OldestFirst {
		return s.fillForward(ctx, n)
	}
	return s.fillBackward(ctx, n)
}

// fillBackward pages from the newest message towards older ones.
func (s *HistorySource) fillBackward(ctx context.Context, n int) error {
	page, err := s.client.GetHistory(ctx, s.channel, HistoryRequest{OffsetID: s.cursor, Limit: n})
	if err != nil {
		return err
	}
	if page.Count == 0 || (s.cursor != 0 && page.MinID >= s.cursor) {
		s.done = true
		return nil
	}
	s.cursor = page.MinID

	msgs := page.Messages
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ID > msgs[j].ID })
	s.buf = clip(msgs, n)
	return nil
}

// fillForward pages from the oldest message towards newer ones.
func (s *HistorySource) fillForward(ctx context.Context, n int) error {
	page, err := s.client.GetHistory(ctx, s.channel, HistoryRequest{
		OffsetID:  s.cursor + 1,
		AddOffset: -n,
		Limit:     n,
	})
	if err != nil {
		return err
	}
	if page.Count == 0 || page.MaxID <= s.cursor {
		s.done = true
		return nil
	}

	var msgs []models.RawMessage
	for _, m := range page.Messages {
		if m.ID > s.cursor {
			msgs = append(msgs, m)
		}
	}
	s.cursor = page.MaxID

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	s.buf = clip(msgs, n)
	return nil
}

func clip(msgs []models.RawMessage, n int) []models.RawMessage {
	if len(msgs) > n {
		return msgs[:n]
	}
	return msgs
}
