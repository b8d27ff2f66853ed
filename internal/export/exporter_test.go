package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/blockedby/tgstore-scraper/internal/models"
)

var fixedNow = time.Date(2025, 3, 7, 9, 5, 1, 0, time.UTC)

func sampleRows() []models.ExportRow {
	return []models.ExportRow{
		{Name: "Nike Hoodie", Price: 1500, Size: "L", Description: "Бавовна", Images: []string{"img_1.jpg", "img_2.jpg"}, Folder: "Nike_Hoodie_1500"},
		{Name: "Cap", Price: 19.99, Images: []string{"img_1.jpg"}, Folder: "Cap_19"},
	}
}

func newTestExporter(fs afero.Fs) *Exporter {
	e := NewExporter(fs, "Downloads")
	e.now = func() time.Time { return fixedNow }
	return e
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "csv", want: FormatCSV},
		{in: "XLSX", want: FormatXLSX},
		{in: " xlsx ", want: FormatXLSX},
		{in: "json", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "export_20250307_090501.csv", FileName(RunPrefix, fixedNow, FormatCSV))
	assert.Equal(t, "export_bigcommerce_20250307_090501.xlsx", FileName(BigCommercePrefix, fixedNow, FormatXLSX))
}

func TestExporter_FinalizeCSV(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := newTestExporter(fs)
	for _, r := range sampleRows() {
		e.Append(r)
	}

	assert.Equal(t, sampleRows(), e.Rows())

	path, err := e.Finalize(FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "Downloads/export_20250307_090501.csv", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM), "csv must start with a UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "price", "size", "description", "images", "folder"},
		{"Nike Hoodie", "1500", "L", "Бавовна", "img_1.jpg;img_2.jpg", "Nike_Hoodie_1500"},
		{"Cap", "19.99", "", "", "img_1.jpg", "Cap_19"},
	}, records)
}

func TestExporter_FinalizeXLSX(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := newTestExporter(fs)
	for _, r := range sampleRows() {
		e.Append(r)
	}

	path, err := e.Finalize(FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "Downloads/export_20250307_090501.xlsx", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.ExportHeader, rows[0])
	assert.Equal(t, []string{"Nike Hoodie", "1500", "L", "Бавовна", "img_1.jpg;img_2.jpg", "Nike_Hoodie_1500"}, rows[1])
}

func TestExporter_EmptyRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := newTestExporter(fs)

	path, err := e.Finalize(FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Len())

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "\ufeffname,price,size,description,images,folder\n", string(data))
}

func TestExporter_UnknownFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := newTestExporter(fs).Finalize("ods")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	exists, _ := afero.DirExists(fs, "Downloads")
	assert.False(t, exists)
}
