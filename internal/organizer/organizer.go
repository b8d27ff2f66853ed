// Package organizer materializes classified posts into per-product folders
// and collects the export rows of a run.
package organizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/blockedby/tgstore-scraper/internal/classifier"
	"github.com/blockedby/tgstore-scraper/internal/logger"
	"github.com/blockedby/tgstore-scraper/internal/models"
)

// output layout
const (
	UnparsedDir  = "Unparsed"
	MetadataFile = "metadata.json"
	InfoFile     = "info.txt"
)

// ErrNoMedia is returned when none of a product's images could be saved.
var ErrNoMedia = errors.New("no media saved")

// MediaFetcher downloads the bytes of one attachment.
type MediaFetcher interface {
	Fetch(ctx context.Context, att models.Attachment) ([]byte, error)
}

// Organizer writes classified posts below a root directory.
type Organizer struct {
	root   string
	writer ByteWriter
	log    *logger.Logger
}

// New creates an organizer writing below root (usually "Downloads").
func New(root string, writer ByteWriter, log *logger.Logger) *Organizer {
	if log == nil {
		log = logger.Get()
	}
	return &Organizer{root: root, writer: writer, log: log}
}

// ImageName returns the file name of the n-th image (1-based).
func ImageName(n int) string {
	return fmt.Sprintf("img_%d.jpg", n)
}

// Organize persists one classified post.
// Products yield an export row once their folder is complete; unparsed posts
// are written to the shared Unparsed folder and dropped posts are ignored,
// both without a row.
func (o *Organizer) Organize(ctx context.Context, run *Run, cls classifier.Classification, fetcher MediaFetcher) (*models.ExportRow, error) {
	switch c := cls.(type) {
	case classifier.Product:
		return o.organizeProduct(ctx, run, c.Record, fetcher)
	case classifier.Unparsed:
		return nil, o.organizeUnparsed(ctx, run, c, fetcher)
	case classifier.Dropped:
		o.log.Debug().Ints("message_ids", c.MessageIDs).Msg("organizer: dropping post without media")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown classification %T", cls)
	}
}

func (o *Organizer) organizeProduct(ctx context.Context, run *Run, rec models.ProductRecord, fetcher MediaFetcher) (*models.ExportRow, error) {
	rec.Folder = run.Reserve(FolderBase(rec.Name, rec.Price))
	dir := filepath.Join(o.root, rec.Folder)

	rec.Images = o.saveImages(ctx, dir, "", rec.Attachments, fetcher)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(rec.Images) == 0 {
		return nil, fmt.Errorf("%s: %w", rec.Folder, ErrNoMedia)
	}

	if err := o.writer.Write(filepath.Join(dir, InfoFile), []byte(productInfo(rec))); err != nil {
		return nil, fmt.Errorf("write info: %w", err)
	}

	// metadata.json goes last: its presence marks a complete folder
	meta, err := encodeJSON(rec)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if err := o.writer.Write(filepath.Join(dir, MetadataFile), meta); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	row := models.ExportRow{
		Name:        rec.Name,
		Price:       rec.Price,
		Size:        rec.Size,
		Description: rec.Description,
		Images:      rec.Images,
		Folder:      rec.Folder,
	}

	o.log.Info().
		Str("folder", rec.Folder).
		Float64("price", rec.Price).
		Int("images", len(rec.Images)).
		Msg("organizer: product saved")

	return &row, nil
}

func (o *Organizer) organizeUnparsed(ctx context.Context, run *Run, u classifier.Unparsed, fetcher MediaFetcher) error {
	k := run.nextUnparsed()
	dir := filepath.Join(o.root, UnparsedDir)
	prefix := fmt.Sprintf("post_%d_", k)

	images := o.saveImages(ctx, dir, prefix, u.Post.Attachments, fetcher)
	if err := ctx.Err(); err != nil {
		return err
	}

	info := fmt.Sprintf("Reason: %s\nMessages: %s\nImages: %s\n\n%s\n",
		u.Reason, joinInts(u.Post.MessageIDs), strings.Join(images, ";"), u.Post.Text)
	if err := o.writer.Write(filepath.Join(dir, prefix+InfoFile), []byte(info)); err != nil {
		return fmt.Errorf("write unparsed info: %w", err)
	}

	o.log.Info().Int("index", k).Str("reason", u.Reason).Int("images", len(images)).Msg("organizer: unparsed post saved")
	return nil
}

// saveImages fetches and writes every attachment, skipping the ones that fail.
// Images keep the number of their position so a missing one leaves a gap.
func (o *Organizer) saveImages(ctx context.Context, dir, prefix string, atts []models.Attachment, fetcher MediaFetcher) []string {
	var saved []string
	for i, att := range atts {
		if ctx.Err() != nil {
			return saved
		}
		name := prefix + ImageName(i+1)

		data, err := fetcher.Fetch(ctx, att)
		if err != nil {
			o.log.Warn().Err(err).Str("file", name).Int("message_id", att.MessageID).Msg("organizer: skipping image")
			continue
		}
		if err := o.writer.Write(filepath.Join(dir, name), data); err != nil {
			o.log.Error().Err(err).Str("file", name).Msg("organizer: failed to write image")
			continue
		}
		saved = append(saved, name)
	}
	return saved
}

func productInfo(rec models.ProductRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", rec.Name)
	fmt.Fprintf(&b, "Price: %s %s\n", formatPrice(rec.Price), rec.Currency)
	if rec.Size != "" {
		fmt.Fprintf(&b, "Size: %s\n", rec.Size)
	}
	fmt.Fprintf(&b, "Images: %d\n", len(rec.Images))
	fmt.Fprintf(&b, "Messages: %s\n", joinInts(rec.MessageIDs))
	if !rec.MessageDate.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", rec.MessageDate.Format("2006-01-02 15:04:05"))
	}
	b.WriteString("\n")
	b.WriteString(rec.RawText)
	b.WriteString("\n")
	return b.String()
}

func formatPrice(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("%d", int64(p))
	}
	return fmt.Sprintf("%.2f", p)
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
