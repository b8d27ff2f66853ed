package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstore-scraper/internal/models"
	"github.com/blockedby/tgstore-scraper/internal/pipeline"
)

// ErrNoFileLocation is returned for attachments without a downloadable location.
var ErrNoFileLocation = errors.New("attachment has no file location")

// attachment builds the downloadable reference of a photo or document.
// Other media (polls, geo, web pages) carry no file and are ignored.
func attachment(msgID int, media tg.MessageMediaClass) (models.Attachment, bool) {
	switch md := media.(type) {
	case *tg.MessageMediaPhoto:
		photoClass, ok := md.GetPhoto()
		if !ok {
			return models.Attachment{}, false
		}
		photo, ok := photoClass.(*tg.Photo)
		if !ok {
			return models.Attachment{}, false
		}
		thumb := largestSize(photo.Sizes)
		if thumb == "" {
			return models.Attachment{}, false
		}
		return models.Attachment{
			MessageID: msgID,
			Kind:      models.MediaPhoto,
			Ref: &tg.InputPhotoFileLocation{
				ID:            photo.ID,
				AccessHash:    photo.AccessHash,
				FileReference: photo.FileReference,
				ThumbSize:     thumb,
			},
		}, true

	case *tg.MessageMediaDocument:
		docClass, ok := md.GetDocument()
		if !ok {
			return models.Attachment{}, false
		}
		doc, ok := docClass.(*tg.Document)
		if !ok {
			return models.Attachment{}, false
		}
		return models.Attachment{
			MessageID: msgID,
			Kind:      models.MediaDocument,
			Ref: &tg.InputDocumentFileLocation{
				ID:            doc.ID,
				AccessHash:    doc.AccessHash,
				FileReference: doc.FileReference,
			},
		}, true
	}
	return models.Attachment{}, false
}

// largestSize returns the type of the biggest full-size photo variant.
func largestSize(sizes []tg.PhotoSizeClass) string {
	var best string
	bestArea := -1
	for _, s := range sizes {
		var typ string
		var area int
		switch size := s.(type) {
		case *tg.PhotoSize:
			typ, area = size.Type, size.W*size.H
		case *tg.PhotoSizeProgressive:
			typ, area = size.Type, size.W*size.H
		default:
			continue
		}
		if area > bestArea {
			best, bestArea = typ, area
		}
	}
	return best
}

// MediaDownloader fetches attachment bytes through the gotd downloader.
type MediaDownloader struct {
	client *Client
	dl     *downloader.Downloader
}

// NewMediaDownloader creates a downloader sharing the client's rate limiter.
func NewMediaDownloader(client *Client) *MediaDownloader {
	return &MediaDownloader{client: client, dl: downloader.NewDownloader()}
}

// Fetch downloads one attachment into memory.
// FLOOD_WAIT is reported as a pipeline.RetryAfterError.
func (d *MediaDownloader) Fetch(ctx context.Context, att models.Attachment) ([]byte, error) {
	loc, ok := att.Ref.(tg.InputFileLocationClass)
	if !ok || loc == nil {
		return nil, fmt.Errorf("message %d: %w", att.MessageID, ErrNoFileLocation)
	}

	if err := d.client.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	api, err := d.client.API()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := d.dl.Download(api, loc).Stream(ctx, &buf); err != nil {
		if wait, ok := FloodWait(err); ok {
			d.client.rateLimiter.SetFloodWait(wait)
			return nil, &pipeline.RetryAfterError{Wait: wait}
		}
		return nil, fmt.Errorf("download message %d: %w", att.MessageID, err)
	}
	return buf.Bytes(), nil
}
