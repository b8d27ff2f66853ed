package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFolder(t *testing.T, fs afero.Fs, folder, meta string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, filepath.Join("Downloads", folder, "metadata.json"), []byte(meta), 0644))
}

func TestRun_PlainTable(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFolder(t, fs, "Nike_Hoodie_1500", `{"name":"Nike Hoodie","price":1500,"size":"L","description":"","images":["img_1.jpg","img_2.jpg"]}`)
	writeFolder(t, fs, "Adidas_Samba_800", `{"name":"Adidas Samba","price":800,"size":"","description":"","images":"img_1.jpg"}`)
	require.NoError(t, fs.MkdirAll(filepath.Join("Downloads", "Unparsed"), 0755))

	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	path, n, err := run(fs, options{dir: "Downloads", format: "csv"}, at)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, filepath.Join("Downloads", "export_20250601_093000.csv"), path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Adidas Samba,800,,,img_1.jpg,Adidas_Samba_800", lines[1])
	assert.Equal(t, "Nike Hoodie,1500,L,,img_1.jpg;img_2.jpg,Nike_Hoodie_1500", lines[2])
}

func TestRun_BigCommerce(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFolder(t, fs, "Nike_Hoodie_1500", `{"name":"Nike Hoodie","price":1500,"size":"L","description":"Бавовна","images":["img_1.jpg"]}`)

	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	path, n, err := run(fs, options{dir: "Downloads", format: "csv", bigcommerce: true, imageBaseURL: "https://dav.example.com"}, at)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, filepath.Join("Downloads", "export_bigcommerce_20250601_093000.csv"), path)
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://dav.example.com/Nike_Hoodie_1500__img_1.jpg")
}

func TestRun_BadFormat(t *testing.T) {
	_, _, err := run(afero.NewMemMapFs(), options{dir: "Downloads", format: "pdf"}, time.Now())
	assert.Error(t, err)
}

func TestParseOptions(t *testing.T) {
	o, err := parseOptions([]string{"-d", "out", "--export-format", "xlsx", "--bigcommerce"})
	require.NoError(t, err)
	assert.Equal(t, "out", o.dir)
	assert.Equal(t, "xlsx", o.format)
	assert.True(t, o.bigcommerce)
}
