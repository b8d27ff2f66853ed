package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/blockedby/tgstore-scraper/internal/models"
)

const metadataFile = "metadata.json"

// Metadata is the part of a product folder's metadata.json the exports use.
type Metadata struct {
	Folder      string    `json:"-"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Size        string    `json:"size"`
	Description string    `json:"description"`
	Images      imageList `json:"images"`
}

// imageList accepts both a JSON array and a ";"-joined string.
type imageList []string

func (l *imageList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*l = nil
			return nil
		}
		*l = strings.Split(s, ";")
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// ReadMetadata loads every folder of dir that contains a metadata.json,
// sorted by folder name. Folders without the file are incomplete and ignored.
func ReadMetadata(fs afero.Fs, dir string) ([]Metadata, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []Metadata
	for _, name := range names {
		path := filepath.Join(dir, name, metadataFile)
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			if ok, _ := afero.Exists(fs, path); !ok {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var m Metadata
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		m.Folder = name
		out = append(out, m)
	}
	return out, nil
}

// Row converts the metadata back into a run export row.
func (m Metadata) Row() models.ExportRow {
	return models.ExportRow{
		Name:        m.Name,
		Price:       m.Price,
		Size:        m.Size,
		Description: m.Description,
		Images:      m.Images,
		Folder:      m.Folder,
	}
}
