// Command export-only rebuilds exports from the metadata.json files of an
// existing Downloads directory without connecting to Telegram.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/blockedby/tgstore-scraper/internal/export"
	"github.com/blockedby/tgstore-scraper/internal/logger"
	"github.com/blockedby/tgstore-scraper/internal/models"
)

type options struct {
	dir          string
	format       string
	bigcommerce  bool
	profile      string
	imageBaseURL string
}

func parseOptions(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("export-only", pflag.ContinueOnError)
	fs.StringVarP(&o.dir, "downloads", "d", envOr("DOWNLOADS_DIR", "Downloads"), "directory with product folders")
	fs.StringVarP(&o.format, "export-format", "f", envOr("EXPORT_FORMAT", "csv"), "csv or xlsx")
	fs.BoolVar(&o.bigcommerce, "bigcommerce", false, "write a bigcommerce import file instead of the plain table")
	fs.StringVar(&o.profile, "profile", os.Getenv("BIGCOMMERCE_PROFILE"), "bigcommerce profile yaml")
	fs.StringVar(&o.imageBaseURL, "image-base-url", os.Getenv("IMAGE_BASE_URL"), "prefix for bigcommerce image columns")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	return o, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if err := logger.Init(envOr("LOG_LEVEL", "info"), os.Getenv("LOG_FILE")); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	log := logger.Get()

	path, count, err := run(afero.NewOsFs(), opts, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("export failed")
	}
	log.Info().Int("products", count).Str("file", path).Msg("export written")
}

// run reads every complete product folder under opts.dir and writes one export file.
func run(fs afero.Fs, opts options, now time.Time) (string, int, error) {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return "", 0, err
	}

	products, err := export.ReadMetadata(fs, opts.dir)
	if err != nil {
		return "", 0, err
	}

	if !opts.bigcommerce {
		rows := make([]models.ExportRow, 0, len(products))
		for _, m := range products {
			rows = append(rows, m.Row())
		}
		table := export.RunTable(rows)
		path, err := export.WriteFile(fs, opts.dir, export.RunPrefix, table, format, now)
		return path, len(products), err
	}

	profile := export.DefaultProfile()
	if opts.profile != "" {
		if profile, err = export.LoadProfile(fs, opts.profile); err != nil {
			return "", 0, err
		}
	}
	if opts.imageBaseURL != "" {
		profile.ImageBaseURL = opts.imageBaseURL
	}

	path, err := export.WriteFile(fs, opts.dir, export.BigCommercePrefix, export.BigCommerceTable(products, profile), format, now)
	return path, len(products), err
}
