package export

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Profile holds the constant BigCommerce columns and the price conversion.
type Profile struct {
	ItemType     string  `yaml:"item_type"`
	Category     string  `yaml:"category"`
	Brand        string  `yaml:"brand"`
	Weight       float64 `yaml:"weight"`
	ProductType  string  `yaml:"product_type"`
	Visible      string  `yaml:"visible"`
	PriceDivisor float64 `yaml:"price_divisor"`
	ImageBaseURL string  `yaml:"image_base_url"`
}

// DefaultProfile converts UAH to EUR at 50:1 and lists images as WebDAV file names.
func DefaultProfile() Profile {
	return Profile{
		ItemType:     "Product",
		Category:     "Clothing",
		Weight:       0.5,
		ProductType:  "P",
		Visible:      "Y",
		PriceDivisor: 50,
	}
}

// LoadProfile reads a YAML profile; keys it omits keep their default values.
func LoadProfile(fs afero.Fs, path string) (Profile, error) {
	p := DefaultProfile()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.PriceDivisor <= 0 {
		return p, fmt.Errorf("profile %s: price_divisor must be positive", path)
	}
	return p, nil
}

var bigCommerceHeader = []string{
	"Item Type",
	"Product Name",
	"Category",
	"Price",
	"Product Description",
	"Brand Name",
	"Product Weight",
	"Product Type",
	"Product Visible?",
}

// ImageColumn returns the header of the n-th image column (1-based).
func ImageColumn(n int) string {
	return fmt.Sprintf("Product Image File – %d", n)
}

// BigCommerceTable builds the import table for the given products.
// Image columns are added up to the largest image count.
func BigCommerceTable(products []Metadata, p Profile) Table {
	maxImages := 0
	for _, m := range products {
		maxImages = max(maxImages, len(m.Images))
	}

	header := append([]string{}, bigCommerceHeader...)
	for i := 1; i <= maxImages; i++ {
		header = append(header, ImageColumn(i))
	}

	t := Table{Header: header}
	for _, m := range products {
		row := []any{
			p.ItemType,
			CleanName(m.Name, m.Folder),
			p.Category,
			math.Round(m.Price / p.PriceDivisor),
			CleanDescription(m.Description),
			p.Brand,
			p.Weight,
			p.ProductType,
			p.Visible,
		}
		for i := 0; i < maxImages; i++ {
			cell := ""
			if i < len(m.Images) {
				cell = imageRef(p.ImageBaseURL, m.Folder, m.Images[i])
			}
			row = append(row, cell)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// imageRef names an image the way the WebDAV upload stores it:
// "{folder}__{image}" with square brackets removed from the folder.
func imageRef(baseURL, folder, image string) string {
	name := strings.NewReplacer("[", "", "]", "").Replace(folder) + "__" + image
	if baseURL == "" {
		return name
	}
	return strings.TrimRight(baseURL, "/") + "/" + name
}

var (
	junkNameRe = regexp.MustCompile(`(?i)^(?:ціна|price|cina)(?:[^\p{L}\p{N}_]|$)`)

	serviceLineRe = regexp.MustCompile(`(?i)^(?:` + strings.Join([]string{
		`ціна[\s:–-].*`,
		`розміри?[\s:–-].*`,
		`для замовлення.*`,
		`@\w+`,
		`https?://\S+`,
	}, "|") + `)$`)
)

// CleanName replaces a name that is only a price label with one derived from
// the folder: its trailing price part and numeric parts are dropped.
func CleanName(raw, folder string) string {
	name := strings.TrimSpace(strings.ReplaceAll(raw, "_", " "))
	if junkNameRe.MatchString(name) {
		parts := strings.Split(folder, "_")
		if len(parts) > 0 {
			parts = parts[:len(parts)-1]
		}
		var kept []string
		for _, part := range parts {
			if part == "" || isNumber(part) || junkNameRe.MatchString(part) {
				continue
			}
			kept = append(kept, part)
		}
		name = strings.Join(kept, " ")
	}
	if name == "" {
		return "Unknown Brand"
	}
	return name
}

// CleanDescription drops empty lines and service lines (price, sizes, ordering
// instructions, mentions, links) and joins the rest with spaces.
func CleanDescription(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || serviceLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
