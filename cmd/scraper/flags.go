package main

import (
	"github.com/spf13/pflag"

	"github.com/blockedby/tgstore-scraper/internal/config"
)

// cliFlags are the command line options. Set flags override the environment.
type cliFlags struct {
	serve bool
	set   *pflag.FlagSet

	channel      string
	limit        int
	oldestFirst  bool
	exportFormat string
	imageBaseURL string
	bigcommerce  bool
	profile      string
	downloadsDir string
}

func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{set: pflag.NewFlagSet("scraper", pflag.ContinueOnError)}
	fs := f.set

	fs.StringVarP(&f.channel, "channel", "c", "", "channel username or t.me link (env CHANNEL)")
	fs.IntVarP(&f.limit, "limit", "l", 0, "number of messages to scan (env SCAN_LIMIT)")
	fs.BoolVar(&f.oldestFirst, "oldest-first", false, "scan from the first message of the channel")
	fs.StringVar(&f.exportFormat, "export-format", "", "csv or xlsx (env EXPORT_FORMAT)")
	fs.StringVar(&f.imageBaseURL, "image-base-url", "", "prefix for bigcommerce image columns (env IMAGE_BASE_URL)")
	fs.BoolVar(&f.bigcommerce, "bigcommerce", false, "also write a bigcommerce import file")
	fs.StringVar(&f.profile, "profile", "", "bigcommerce profile yaml (env BIGCOMMERCE_PROFILE)")
	fs.StringVar(&f.downloadsDir, "downloads", "", "output directory (env DOWNLOADS_DIR)")
	fs.BoolVar(&f.serve, "serve", false, "run the http control api instead of a single scrape")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// apply copies the flags given on the command line into cfg.
func (f *cliFlags) apply(cfg *config.Config) {
	if f.set.Changed("channel") {
		cfg.Channel = f.channel
	}
	if f.set.Changed("limit") {
		cfg.ScanLimit = f.limit
	}
	if f.set.Changed("oldest-first") {
		cfg.OldestFirst = f.oldestFirst
	}
	if f.set.Changed("export-format") {
		cfg.ExportFormat = f.exportFormat
	}
	if f.set.Changed("image-base-url") {
		cfg.ImageBaseURL = f.imageBaseURL
	}
	if f.set.Changed("profile") {
		cfg.BigCommerceProfile = f.profile
	}
	if f.set.Changed("downloads") {
		cfg.DownloadsDir = f.downloadsDir
	}
}
