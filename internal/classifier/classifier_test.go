package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstore-scraper/internal/models"
)

func photos(n int) []models.Attachment {
	out := make([]models.Attachment, n)
	for i := range out {
		out[i] = models.Attachment{MessageID: i + 1, Kind: models.MediaPhoto, Ref: i}
	}
	return out
}

func TestClassify_Product(t *testing.T) {
	date := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	post := models.Post{
		Text:        "Nike Hoodie\nЦіна: 1500 грн\nРозмір: L\nОверсайз, бавовна\n\nДля замовлення пишіть @shop",
		Attachments: photos(2),
		MessageIDs:  []int{10, 11},
		Date:        date,
	}

	got, ok := Classify(post).(Product)
	require.True(t, ok, "expected Product")

	rec := got.Record
	assert.Equal(t, "Nike Hoodie", rec.Name)
	assert.Equal(t, 1500.0, rec.Price)
	assert.Equal(t, models.CurrencyUAH, rec.Currency)
	assert.Equal(t, "L", rec.Size)
	assert.Equal(t, "Оверсайз, бавовна\n\nДля замовлення пишіть @shop", rec.Description)
	assert.Equal(t, []int{10, 11}, rec.MessageIDs)
	assert.Equal(t, date, rec.MessageDate)
	assert.Len(t, rec.Attachments, 2)
}

func TestClassify_PriceLineFirst(t *testing.T) {
	post := models.Post{
		Text:        "Ціна: 800\nAdidas Samba\nРозмір 42",
		Attachments: photos(1),
	}

	got, ok := Classify(post).(Product)
	require.True(t, ok)
	assert.Equal(t, "Adidas Samba", got.Record.Name)
	assert.Equal(t, models.CurrencyUnspecified, got.Record.Currency)
	assert.Equal(t, "42", got.Record.Size)
	assert.Empty(t, got.Record.Description)
}

func TestClassify_PriceOnNameLine(t *testing.T) {
	post := models.Post{
		Text:        "Сумка Zara — 1200 грн\nШкіра",
		Attachments: photos(1),
	}

	got, ok := Classify(post).(Product)
	require.True(t, ok)
	assert.Equal(t, "Сумка Zara", got.Record.Name)
	assert.Equal(t, "Шкіра", got.Record.Description)
}

func TestClassify_SizeLineBeforeName(t *testing.T) {
	post := models.Post{
		Text:        "Ціна: 500 грн\nРозмір: M\nNike Hoodie",
		Attachments: photos(1),
	}

	got, ok := Classify(post).(Product)
	require.True(t, ok)
	assert.Equal(t, "Nike Hoodie", got.Record.Name)
	assert.Equal(t, "M", got.Record.Size)
	assert.Empty(t, got.Record.Description)
}

func TestClassify_OnlyMatchedSizeLineRemoved(t *testing.T) {
	post := models.Post{
		Text:        "Футболка\nЦіна: 500 грн\nРозмір: S\nВ наявності також:\nS",
		Attachments: photos(1),
	}

	got, ok := Classify(post).(Product)
	require.True(t, ok)
	assert.Equal(t, "S", got.Record.Size)
	assert.Equal(t, "В наявності також:\nS", got.Record.Description)
}

func TestClassify_PriceLineWithTwoPricesIsNotName(t *testing.T) {
	post := models.Post{
		Text:        "Was 2000 грн, now 1500 грн\nNike",
		Attachments: photos(1),
	}

	got, ok := Classify(post).(Product)
	require.True(t, ok)
	assert.Equal(t, "Nike", got.Record.Name)
	assert.Equal(t, 2000.0, got.Record.Price)
}

func TestClassify_ClockTimeIsNotSize(t *testing.T) {
	post := models.Post{
		Text:        "Nike Hoodie\nДоставка 10:45\nЦіна: 1500 грн",
		Attachments: photos(1),
	}

	got, ok := Classify(post).(Product)
	require.True(t, ok)
	assert.Empty(t, got.Record.Size)
	assert.Equal(t, "Доставка 10:45", got.Record.Description)
}

func TestClassify_SizeInlineStaysInDescription(t *testing.T) {
	post := models.Post{
		Text:        "Футболка\nPrice: $20\nОверсайз M, чорна",
		Attachments: photos(1),
	}

	got, ok := Classify(post).(Product)
	require.True(t, ok)
	assert.Equal(t, "M", got.Record.Size)
	assert.Equal(t, "Оверсайз M, чорна", got.Record.Description)
}

func TestClassify_SecondPriceIsDescription(t *testing.T) {
	post := models.Post{
		Text:        "Куртка\nЦіна: 3000 грн\nБула 4000 грн",
		Attachments: photos(1),
	}

	got, ok := Classify(post).(Product)
	require.True(t, ok)
	assert.Equal(t, 3000.0, got.Record.Price)
	assert.Equal(t, "Була 4000 грн", got.Record.Description)
}

func TestClassify_Unparsed(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason string
	}{
		{name: "no price", text: "Нова колекція вже скоро", reason: ReasonNoPrice},
		{name: "empty text", text: "", reason: ReasonNoPrice},
		{name: "only price line", text: "  \nЦіна: 1500 грн\n   ", reason: ReasonNoName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := models.Post{Text: tt.text, Attachments: photos(3), MessageIDs: []int{5, 6, 7}}

			got, ok := Classify(post).(Unparsed)
			require.True(t, ok, "expected Unparsed")
			assert.Equal(t, tt.reason, got.Reason)
			assert.Len(t, got.Post.Attachments, 3)
			assert.Equal(t, tt.text, got.Post.Text)
		})
	}
}

func TestClassify_Dropped(t *testing.T) {
	for _, text := range []string{"Ціна: 1500 грн", "Hello"} {
		post := models.Post{Text: "Nike\n" + text, MessageIDs: []int{1}}
		got, ok := Classify(post).(Dropped)
		require.True(t, ok, "expected Dropped for %q", text)
		assert.Equal(t, []int{1}, got.MessageIDs)
	}
}
