// Package cli implements the command-line interface for chida-crawler.
//
// The cli package provides the Cobra-based CLI. The root command runs the
// full pipeline (scrape the KATO listing, save a snapshot, import into the
// store); subcommands scrape without importing, import a saved snapshot,
// apply schema migrations, and run the pipeline on a cron schedule. Output
// is text or JSON, and scraped tournaments can be sorted by date, region or
// title.
package cli
