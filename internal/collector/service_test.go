package collector

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstore-scraper/internal/catalog"
	"github.com/blockedby/tgstore-scraper/internal/export"
	"github.com/blockedby/tgstore-scraper/internal/models"
	"github.com/blockedby/tgstore-scraper/internal/organizer"
	"github.com/blockedby/tgstore-scraper/internal/pipeline"
	"github.com/blockedby/tgstore-scraper/internal/telegram"
)

// fakeTelegram serves a fixed channel history newest first.
type fakeTelegram struct {
	msgs       []models.RawMessage
	resolveErr error
	failAfter  int // fail GetHistory calls after this many, 0 = never
	pageCap    int // max messages per page, 0 = request limit
	calls      int
}

func (f *fakeTelegram) ResolveChannel(_ context.Context, ref string) (*telegram.Channel, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &telegram.Channel{ID: 1, Username: ref}, nil
}

func (f *fakeTelegram) GetHistory(_ context.Context, _ telegram.Channel, req telegram.HistoryRequest) (telegram.HistoryPage, error) {
	f.calls++
	if f.failAfter > 0 && f.calls > f.failAfter {
		return telegram.HistoryPage{}, errors.New("connection reset")
	}

	sorted := append([]models.RawMessage(nil), f.msgs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })

	var page telegram.HistoryPage
	for _, m := range sorted {
		if req.OffsetID > 0 && m.ID >= req.OffsetID {
			continue
		}
		if page.Count == req.Limit || (f.pageCap > 0 && page.Count == f.pageCap) {
			break
		}
		if page.Count == 0 || m.ID < page.MinID {
			page.MinID = m.ID
		}
		page.MaxID = max(page.MaxID, m.ID)
		page.Count++
		page.Messages = append(page.Messages, m)
	}
	return page, nil
}

func (f *fakeTelegram) GetStatus() telegram.Status {
	return telegram.StatusReady
}

type refFetcher struct{}

func (refFetcher) Fetch(_ context.Context, att models.Attachment) ([]byte, error) {
	return []byte(att.Ref.(string)), nil
}

type fakeCatalog struct {
	created  *catalog.Run
	products []models.ExportRow
	finished *catalog.Run
}

func (c *fakeCatalog) CreateRun(_ context.Context, run *catalog.Run) error {
	c.created = run
	return nil
}

func (c *fakeCatalog) SaveProduct(_ context.Context, _ uuid.UUID, row models.ExportRow) error {
	c.products = append(c.products, row)
	return nil
}

func (c *fakeCatalog) FinishRun(_ context.Context, run *catalog.Run) error {
	c.finished = run
	return nil
}

type fakePublisher struct {
	products []ProductOrganizedEvent
	runs     []RunCompletedEvent
}

func (p *fakePublisher) PublishProductOrganized(_ context.Context, e ProductOrganizedEvent) error {
	p.products = append(p.products, e)
	return nil
}

func (p *fakePublisher) PublishRunCompleted(_ context.Context, e RunCompletedEvent) error {
	p.runs = append(p.runs, e)
	return nil
}

func tgMsg(id int, group int64, text string, refs ...string) models.RawMessage {
	m := models.RawMessage{ID: id, GroupID: group, Text: text, Date: time.Date(2025, 5, 1, 12, 0, id, 0, time.UTC)}
	for _, r := range refs {
		m.Attachments = append(m.Attachments, models.Attachment{MessageID: id, Kind: models.MediaPhoto, Ref: r})
	}
	return m
}

// storeHistory: 3 products (one album), 1 unparsed, 1 dropped.
func storeHistory() []models.RawMessage {
	return []models.RawMessage{
		tgMsg(1, 0, "Nike Hoodie\nЦіна: 1500 грн", "a1"),
		tgMsg(2, 0, "Hello"),
		tgMsg(3, 0, "Нова колекція вже скоро", "a3"),
		tgMsg(4, 9, "Ціна: 800\nAdidas Samba", "a4"),
		tgMsg(5, 9, "", "a5"),
		tgMsg(6, 0, "Nike Hoodie\nЦіна: 1500 грн\nРозмір: L", "a6"),
	}
}

func newTestService(tg *fakeTelegram) (*Service, afero.Fs) {
	fs := afero.NewMemMapFs()
	svc := NewService(Config{
		Telegram:     tg,
		Media:        refFetcher{},
		Organizer:    organizer.New("Downloads", organizer.NewFsWriter(fs), nil),
		Fs:           fs,
		DownloadsDir: "Downloads",
		FetchPolicy:  pipeline.FetchPolicy{Attempts: 1, InitialInterval: time.Millisecond},
	})
	return svc, fs
}

func exportFiles(t *testing.T, fs afero.Fs, prefix string) []string {
	t.Helper()
	entries, err := afero.ReadDir(fs, "Downloads")
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestService_Scrape(t *testing.T) {
	svc, fs := newTestService(&fakeTelegram{msgs: storeHistory()})

	result, err := svc.Scrape(context.Background(), ScrapeOptions{Channel: "shop", Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 6, result.Fetched)
	assert.Equal(t, 5, result.Posts)
	assert.Equal(t, 3, result.Products)
	assert.Equal(t, 1, result.Unparsed)
	assert.Equal(t, 1, result.Dropped)
	assert.Zero(t, result.Errors)
	assert.False(t, result.Cancelled)
	assert.Equal(t, catalog.StatusCompleted, result.Status())

	// newest first: message 6 claims the base folder name
	for _, dir := range []string{"Nike_Hoodie_1500", "Adidas_Samba_800", "Nike_Hoodie_1500_2"} {
		ok, err := afero.Exists(fs, filepath.Join("Downloads", dir, organizer.MetadataFile))
		require.NoError(t, err)
		assert.True(t, ok, dir)
	}
	data, err := afero.ReadFile(fs, filepath.Join("Downloads", "Nike_Hoodie_1500", "img_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "a6", string(data))

	album, err := afero.ReadFile(fs, filepath.Join("Downloads", "Adidas_Samba_800", "img_2.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "a4", string(album), "album members keep arrival order")

	ok, err := afero.Exists(fs, filepath.Join("Downloads", organizer.UnparsedDir, "post_1_img_1.jpg"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NotEmpty(t, result.ExportPath)
	csv, err := afero.ReadFile(fs, result.ExportPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "Nike Hoodie,1500,L,"))
	assert.True(t, strings.HasSuffix(lines[2], ",img_1.jpg;img_2.jpg,Adidas_Samba_800"))
}

func TestService_Scrape_Limit(t *testing.T) {
	svc, _ := newTestService(&fakeTelegram{msgs: storeHistory()})

	result, err := svc.Scrape(context.Background(), ScrapeOptions{Channel: "shop", Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 1, result.Products)
}

func TestService_Scrape_ResolveFails(t *testing.T) {
	svc, fs := newTestService(&fakeTelegram{resolveErr: telegram.ErrChannelNotFound})

	_, err := svc.Scrape(context.Background(), ScrapeOptions{Channel: "missing"})
	require.ErrorIs(t, err, telegram.ErrChannelNotFound)

	ok, _ := afero.DirExists(fs, "Downloads")
	assert.False(t, ok, "nothing is written before the channel resolves")
}

func TestService_Scrape_UnknownFormat(t *testing.T) {
	svc, _ := newTestService(&fakeTelegram{})

	_, err := svc.Scrape(context.Background(), ScrapeOptions{Channel: "shop", ExportFormat: "pdf"})
	assert.Error(t, err)
}

func TestService_Scrape_TransportErrorStillExports(t *testing.T) {
	// the first page ends inside the album (5, 4); the second page fails
	tg := &fakeTelegram{msgs: storeHistory(), failAfter: 1, pageCap: 3}
	svc, fs := newTestService(tg)

	result, err := svc.Scrape(context.Background(), ScrapeOptions{Channel: "shop", Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, catalog.StatusFailed, result.Status())
	assert.Contains(t, result.ScanError, "connection reset")
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 2, result.Products, "the open album is organized")

	require.NotEmpty(t, result.ExportPath)
	ok, err := afero.Exists(fs, filepath.Join("Downloads", "Adidas_Samba_800", organizer.MetadataFile))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_Scrape_CancelledSkipsExport(t *testing.T) {
	svc, fs := newTestService(&fakeTelegram{msgs: storeHistory()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Scrape(ctx, ScrapeOptions{Channel: "shop", Limit: 10})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Empty(t, result.ExportPath)
	assert.Equal(t, catalog.StatusCancelled, result.Status())
	ok, _ := afero.DirExists(fs, "Downloads")
	if ok {
		assert.Empty(t, exportFiles(t, fs, "export_"))
	}
}

func TestService_Scrape_EmptyChannelWritesHeaderOnly(t *testing.T) {
	svc, fs := newTestService(&fakeTelegram{})

	result, err := svc.Scrape(context.Background(), ScrapeOptions{Channel: "shop"})
	require.NoError(t, err)

	assert.Zero(t, result.Products)
	data, err := afero.ReadFile(fs, result.ExportPath)
	require.NoError(t, err)
	assert.Equal(t, "\ufeffname,price,size,description,images,folder", strings.TrimSpace(string(data)))
}

func TestService_Scrape_Sinks(t *testing.T) {
	cat := &fakeCatalog{}
	pub := &fakePublisher{}
	svc, _ := newTestService(&fakeTelegram{msgs: storeHistory()})
	svc.cfg.Catalog = cat
	svc.cfg.Publisher = pub

	result, err := svc.Scrape(context.Background(), ScrapeOptions{Channel: "shop", Limit: 10})
	require.NoError(t, err)

	require.NotNil(t, cat.created)
	assert.Equal(t, result.RunID, cat.created.ID)
	assert.Len(t, cat.products, 3)
	require.NotNil(t, cat.finished)
	assert.Equal(t, catalog.StatusCompleted, cat.finished.Status)
	assert.Equal(t, 3, cat.finished.Products)
	assert.Equal(t, result.ExportPath, cat.finished.ExportPath)

	require.Len(t, pub.products, 3)
	assert.Equal(t, "Nike_Hoodie_1500", pub.products[0].Folder)
	require.Len(t, pub.runs, 1)
	assert.Equal(t, 1, pub.runs[0].Dropped)
}

func TestService_Scrape_BigCommerce(t *testing.T) {
	svc, fs := newTestService(&fakeTelegram{msgs: storeHistory()})

	result, err := svc.Scrape(context.Background(), ScrapeOptions{
		Channel:      "shop",
		Limit:        10,
		BigCommerce:  true,
		ImageBaseURL: "https://dav.example.com/img/",
		Profile:      export.DefaultProfile(),
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.BigCommerce)
	data, err := afero.ReadFile(fs, result.BigCommerce)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://dav.example.com/img/Nike_Hoodie_1500__img_1.jpg")
	assert.Contains(t, string(data), ",30,", "1500 UAH / 50")
	assert.Len(t, exportFiles(t, fs, "export_bigcommerce_"), 1)
}
