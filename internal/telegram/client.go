// Package telegram provides the Telegram MTProto transport: channel history,
// media downloads, and session management.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/celestix/gotgproto"
	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstore-scraper/internal/logger"
	"github.com/blockedby/tgstore-scraper/internal/models"
)

// maxPageSize is the largest page messages.getHistory returns.
const maxPageSize = 100

// ErrChannelNotFound is returned when a username does not resolve to a channel.
var ErrChannelNotFound = errors.New("channel not found")

// API is the subset of tg.Client used for history scans.
type API interface {
	ContactsResolveUsername(ctx context.Context, request *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
}

// Client wraps gotgproto client and provides high-level telegram operations.
// It uses the Manager to access the underlying protocol client.
type Client struct {
	manager     *Manager
	api         func() (API, error)
	rateLimiter *RateLimiter
	log         *logger.Logger
}

// NewClient creates a new telegram client wrapper using the Manager.
func NewClient(manager *Manager, limiter *RateLimiter) *Client {
	if limiter == nil {
		limiter = DefaultRateLimiter()
	}
	c := &Client{
		manager:     manager,
		rateLimiter: limiter,
		log:         logger.Get().Component("telegram"),
	}
	c.api = func() (API, error) { return c.API() }
	return c
}

// Close stops the client via the manager.
func (c *Client) Close() {
	if c.manager != nil {
		c.manager.Stop()
	}
}

// GetStatus returns the current status of the telegram client.
func (c *Client) GetStatus() Status {
	if c.manager == nil {
		return StatusUnauthorized
	}
	return c.manager.GetStatus()
}

func (c *Client) getProto() (*gotgproto.Client, error) {
	if c.manager == nil {
		return nil, fmt.Errorf("telegram client not authorized")
	}
	proto := c.manager.GetClient()
	if proto == nil {
		return nil, fmt.Errorf("telegram client not authorized")
	}
	return proto, nil
}

// API returns the raw tg.Client for direct API calls.
func (c *Client) API() (*tg.Client, error) {
	proto, err := c.getProto()
	if err != nil {
		return nil, err
	}
	return proto.API(), nil
}

// NormalizeUsername accepts "name", "@name" and t.me links and returns "name".
func NormalizeUsername(ref string) string {
	ref = strings.TrimSpace(ref)
	for _, prefix := range []string{"https://", "http://"} {
		ref = strings.TrimPrefix(ref, prefix)
	}
	for _, prefix := range []string{"www.t.me/", "t.me/", "telegram.me/"} {
		ref = strings.TrimPrefix(ref, prefix)
	}
	ref = strings.TrimPrefix(ref, "@")
	if i := strings.IndexAny(ref, "/?"); i >= 0 {
		ref = ref[:i]
	}
	return ref
}

// ResolveChannel resolves a channel username or link to Channel info.
func (c *Client) ResolveChannel(ctx context.Context, ref string) (*Channel, error) {
	username := NormalizeUsername(ref)
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", ErrChannelNotFound)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	api, err := c.api()
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("username", username).Msg("telegram: resolving channel username")
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		c.noteFloodWait(err)
		return nil, fmt.Errorf("resolve username %s: %w", username, err)
	}

	var peerID int64
	if p, ok := resolved.Peer.(*tg.PeerChannel); ok {
		peerID = p.ChannelID
	}

	for _, chat := range resolved.Chats {
		ch, ok := chat.(*tg.Channel)
		if !ok || (peerID != 0 && ch.ID != peerID) {
			continue
		}
		return &Channel{
			ID:         ch.ID,
			AccessHash: ch.AccessHash,
			Username:   username,
			Title:      ch.Title,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, username)
}

// GetHistory fetches one page of channel history.
func (c *Client) GetHistory(ctx context.Context, channel Channel, req HistoryRequest) (HistoryPage, error) {
	if req.Limit <= 0 || req.Limit > maxPageSize {
		req.Limit = maxPageSize
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return HistoryPage{}, err
	}

	api, err := c.api()
	if err != nil {
		return HistoryPage{}, err
	}

	c.log.Debug().
		Int64("channel_id", channel.ID).
		Int("offset_id", req.OffsetID).
		Int("add_offset", req.AddOffset).
		Int("limit", req.Limit).
		Msg("telegram: calling MessagesGetHistory API")

	history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:      channel.InputPeer(),
		OffsetID:  req.OffsetID,
		AddOffset: req.AddOffset,
		Limit:     req.Limit,
	})
	if err != nil {
		c.noteFloodWait(err)
		return HistoryPage{}, fmt.Errorf("get history: %w", err)
	}

	return extractPage(history), nil
}

func (c *Client) noteFloodWait(err error) {
	if wait, ok := FloodWait(err); ok {
		c.log.Warn().Dur("wait", wait).Msg("telegram: FLOOD_WAIT detected, updating rate limiter")
		c.rateLimiter.SetFloodWait(wait)
	}
}

// extractPage converts a history response into a page of raw messages.
func extractPage(messagesClass tg.MessagesMessagesClass) HistoryPage {
	var msgs []tg.MessageClass
	switch h := messagesClass.(type) {
	case *tg.MessagesChannelMessages:
		msgs = h.Messages
	case *tg.MessagesMessagesSlice:
		msgs = h.Messages
	case *tg.MessagesMessages:
		msgs = h.Messages
	}

	var page HistoryPage
	for _, msg := range msgs {
		id := msg.GetID()
		if page.Count == 0 || id < page.MinID {
			page.MinID = id
		}
		if id > page.MaxID {
			page.MaxID = id
		}
		page.Count++

		if m, ok := msg.(*tg.Message); ok {
			page.Messages = append(page.Messages, convertMessage(m))
		}
	}
	return page
}

// convertMessage converts a single telegram message to a RawMessage.
func convertMessage(m *tg.Message) models.RawMessage {
	raw := models.RawMessage{
		ID:   m.ID,
		Date: time.Unix(int64(m.Date), 0),
		Text: m.Message,
	}
	if gid, ok := m.GetGroupedID(); ok {
		raw.GroupID = gid
	}
	if media, ok := m.GetMedia(); ok {
		if att, ok := attachment(m.ID, media); ok {
			raw.Attachments = []models.Attachment{att}
		}
	}
	return raw
}
