// Package classifier decides whether a post is a priced product listing and
// assembles the normalized product record.
package classifier

import (
	"strings"

	"github.com/blockedby/tgstore-scraper/internal/extract"
	"github.com/blockedby/tgstore-scraper/internal/models"
)

// Classification is the result of classifying a post.
// It is one of Product, Unparsed or Dropped.
type Classification interface {
	classification()
}

// Product is a post with media and an extractable price.
type Product struct {
	Record models.ProductRecord
}

// Unparsed is a post with media that could not be turned into a product.
type Unparsed struct {
	Post   models.UnparsedPost
	Reason string
}

// Dropped is a post without media. It is neither exported nor stored.
type Dropped struct {
	MessageIDs []int
}

func (Product) classification()  {}
func (Unparsed) classification() {}
func (Dropped) classification()  {}

// unparsed reasons
const (
	ReasonNoPrice = "no price"
	ReasonNoName  = "no name"
)

// Classify classifies a grouped post.
func Classify(post models.Post) Classification {
	if len(post.Attachments) == 0 {
		return Dropped{MessageIDs: post.MessageIDs}
	}

	price, ok := extract.ExtractPrice(post.Text)
	if !ok {
		return unparsed(post, ReasonNoPrice)
	}

	lines := extract.Lines(post.Text)
	size, _ := extract.FindSize(post.Text)

	// only a line holding nothing but the size is taken out of name and description
	sizeLine := -1
	if size.Line >= 0 && extract.IsSizeLine(lines[size.Line], size.Token) {
		sizeLine = size.Line
	}

	nameIdx, name := pickName(lines, price, sizeLine)
	if name == "" {
		return unparsed(post, ReasonNoName)
	}

	var desc []string
	for i, line := range lines {
		if i == nameIdx || i == price.Line || i == sizeLine {
			continue
		}
		desc = append(desc, strings.TrimRight(line, " \t"))
	}

	return Product{Record: models.ProductRecord{
		Name:        name,
		Price:       price.Amount,
		Currency:    price.Currency,
		Size:        size.Token,
		Description: strings.TrimSpace(strings.Join(desc, "\n")),
		MessageIDs:  post.MessageIDs,
		MessageDate: post.Date,
		RawText:     post.Text,
		Attachments: post.Attachments,
	}}
}

// pickName returns the first non-empty line once the price and size lines are
// taken out. When the price sits on the name line ("Nike Hoodie - 1500 грн")
// the text left after cutting the price out is used, unless it holds another price.
func pickName(lines []string, price extract.Price, sizeLine int) (int, string) {
	for i, line := range lines {
		if i == sizeLine {
			continue
		}
		if i == price.Line {
			rest := line[:price.Start] + line[price.End:]
			if name := trimName(rest); name != "" && !extract.HasPrice(rest) && firstNonEmpty(lines) == i {
				return i, name
			}
			continue
		}
		if name := strings.TrimSpace(line); name != "" {
			return i, name
		}
	}
	return -1, ""
}

func firstNonEmpty(lines []string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			return i
		}
	}
	return -1
}

// trimName drops separators left behind by the cut-out price.
func trimName(s string) string {
	return strings.Trim(s, " \t-–—:|,;/")
}

func unparsed(post models.Post, reason string) Unparsed {
	return Unparsed{
		Post: models.UnparsedPost{
			Text:        post.Text,
			Attachments: post.Attachments,
			MessageIDs:  post.MessageIDs,
			Date:        post.Date,
		},
		Reason: reason,
	}
}
