// Package export writes run results and rebuilt catalogs as csv or xlsx tables.
package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/blockedby/tgstore-scraper/internal/models"
)

// file name prefixes
const (
	RunPrefix         = "export"
	BigCommercePrefix = "export_bigcommerce"
)

const timestampLayout = "20060102_150405"

// FileName returns "{prefix}_{YYYYMMDD}_{HHMMSS}.{format}".
func FileName(prefix string, at time.Time, format Format) string {
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format(timestampLayout), format)
}

// Exporter accumulates the rows of one run and writes them once at the end.
type Exporter struct {
	fs   afero.Fs
	dir  string
	rows []models.ExportRow
	now  func() time.Time
}

// NewExporter creates an exporter writing into dir.
func NewExporter(fs afero.Fs, dir string) *Exporter {
	return &Exporter{fs: fs, dir: dir, now: time.Now}
}

// Append adds a row.
func (e *Exporter) Append(row models.ExportRow) {
	e.rows = append(e.rows, row)
}

// Rows returns the accumulated rows.
func (e *Exporter) Rows() []models.ExportRow {
	return e.rows
}

// Len returns the number of accumulated rows.
func (e *Exporter) Len() int {
	return len(e.rows)
}

// Finalize writes the accumulated rows and returns the file path.
// A run without rows still produces a file with only the header.
func (e *Exporter) Finalize(format Format) (string, error) {
	return WriteFile(e.fs, e.dir, RunPrefix, RunTable(e.rows), format, e.now())
}

// RunTable converts export rows into a table with the run export columns.
func RunTable(rows []models.ExportRow) Table {
	t := Table{Header: models.ExportHeader, Rows: make([][]any, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.Values())
	}
	return t
}

// WriteFile encodes t and writes it to dir under a timestamped name.
func WriteFile(fs afero.Fs, dir, prefix string, t Table, format Format, at time.Time) (string, error) {
	data, err := encode(t, format)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", format, err)
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, FileName(prefix, at, format))
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
