package models

import (
	"strings"
	"time"
)

// Currency of an extracted price.
type Currency string

// Currency constants. CurrencyUnspecified is used when no currency token was found.
const (
	CurrencyUnspecified Currency = ""
	CurrencyUAH         Currency = "UAH"
	CurrencyUSD         Currency = "USD"
)

// String returns the currency code or "unspecified".
func (c Currency) String() string {
	if c == CurrencyUnspecified {
		return "unspecified"
	}
	return string(c)
}

// ProductRecord is the normalized result of classifying a priced post.
type ProductRecord struct {
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Currency    Currency  `json:"currency,omitempty"`
	Size        string    `json:"size,omitempty"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Folder      string    `json:"folder"`
	MessageIDs  []int     `json:"message_ids"`
	MessageDate time.Time `json:"message_date"`

	// not part of metadata.json; kept for info.txt
	RawText     string       `json:"-"`
	Attachments []Attachment `json:"-"`
}

// UnparsedPost is a post with media but without an extractable price.
type UnparsedPost struct {
	Text        string
	Attachments []Attachment
	MessageIDs  []int
	Date        time.Time
}

// ExportHeader is the column order of the run export.
var ExportHeader = []string{"name", "price", "size", "description", "images", "folder"}

// ExportRow is one line of the run export.
type ExportRow struct {
	Name        string
	Price       float64
	Size        string
	Description string
	Images      []string
	Folder      string
}

// ImageList returns the images joined with ";".
func (r ExportRow) ImageList() string {
	return strings.Join(r.Images, ";")
}

// Values returns the row cells in ExportHeader order.
func (r ExportRow) Values() []any {
	return []any{r.Name, r.Price, r.Size, r.Description, r.ImageList(), r.Folder}
}
