package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chida-tennis/chida-crawler/internal/config"
	"github.com/chida-tennis/chida-crawler/internal/crawler"
	"github.com/chida-tennis/chida-crawler/internal/inserter"
	"github.com/chida-tennis/chida-crawler/internal/logger"
	"github.com/chida-tennis/chida-crawler/internal/scheduler"
	"github.com/chida-tennis/chida-crawler/internal/scraper"
	"github.com/chida-tennis/chida-crawler/internal/snapshot"
	"github.com/chida-tennis/chida-crawler/internal/store"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// defaultConfigFile is read when --config is not given and the file exists.
const defaultConfigFile = "config.yaml"

var (
	flagConfig     string
	flagDataDir    string
	flagListURL    string
	flagBaseURL    string
	flagFormat     string
	flagOut        string
	flagSort       string
	flagCron       string
	flagNoSnapshot bool
	flagRunNow     bool
	flagVerbose    bool
)

// cfg is loaded by the root command's PersistentPreRunE.
var cfg *config.Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chida-crawler",
		Short: "Crawl KATO tennis tournaments into the Chida store",
		Long: `A CLI tool that scrapes the KATO open-tournament listing, normalizes each
tournament and its divisions, and imports them into the Chida store as drafts
for admin review. Tournaments already imported are skipped.

Running without a subcommand is the same as "chida-crawler run".`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
		RunE:              runRun,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Path to a YAML config file (default ./config.yaml when present)")
	pf.StringVar(&flagDataDir, "data-dir", "", "Data directory for snapshots (overrides snapshot.dir)")
	pf.StringVar(&flagListURL, "list-url", "", "Tournament list page URL (overrides crawler.list_url)")
	pf.StringVar(&flagBaseURL, "base-url", "", "Base URL for detail links (overrides crawler.base_url)")
	pf.BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	addRunFlags(cmd)

	cmd.AddCommand(
		newRunCmd(),
		newScrapeCmd(),
		newImportCmd(),
		newMigrateCmd(),
		newScheduleCmd(),
	)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&flagNoSnapshot, "no-snapshot", false, "Do not save the crawled tournaments to the data directory")
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape, snapshot and import tournaments",
		Args:  cobra.NoArgs,
		RunE:  runRun,
	}
	addRunFlags(cmd)
	return cmd
}

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape tournaments without touching the store",
		Args:  cobra.NoArgs,
		RunE:  runScrape,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagOut, "out", "", "Write the crawl as a JSON snapshot to this file instead of stdout")
	cmd.Flags().StringVar(&flagSort, "sort", string(SortByDate), "Sort order: date, region or title")
	cmd.Flags().BoolVar(&flagNoSnapshot, "no-snapshot", false, "Do not save the crawled tournaments to the data directory")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [FILE|-]",
		Short: "Import tournaments from a snapshot file",
		Long: `Import tournaments from a JSON snapshot. FILE may be a snapshot object or a
bare array of tournaments; "-" reads standard input. Without FILE the latest
snapshot in the data directory is imported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runImport,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runSchedule,
	}
	cmd.Flags().StringVar(&flagCron, "cron", "", "Cron expression (overrides schedule.cron)")
	cmd.Flags().BoolVar(&flagRunNow, "run-now", false, "Run once immediately before waiting for the schedule")
	cmd.Flags().BoolVar(&flagNoSnapshot, "no-snapshot", false, "Do not save the crawled tournaments to the data directory")
	return cmd
}

// loadConfig reads configuration, applies flag overrides and sets up the
// default logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	path := flagConfig
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if flagDataDir != "" {
		loaded.Snapshot.Dir = flagDataDir
	}
	if flagListURL != "" {
		loaded.Crawler.ListURL = flagListURL
	}
	if flagBaseURL != "" {
		loaded.Crawler.BaseURL = flagBaseURL
	}
	cfg = loaded

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if flagVerbose {
		level = logger.LevelDebug
	}
	format := logger.Format(strings.ToLower(cfg.Log.Format))
	logger.SetDefault(logger.NewWithFormat(level, format, cmd.ErrOrStderr()))

	logger.Debug("Configuration loaded", logger.Fields{
		"config":   path,
		"driver":   cfg.Store.Driver,
		"list_url": cfg.Crawler.ListURL,
		"data_dir": cfg.Snapshot.Dir,
	})
	return nil
}

func outputFormat() (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	return format, nil
}

func newScraper() *scraper.Scraper {
	return scraper.New(
		scraper.WithHTTPClient(&http.Client{Timeout: cfg.Crawler.HTTPTimeout}),
		scraper.WithListURL(cfg.Crawler.ListURL),
		scraper.WithBaseURL(cfg.Crawler.BaseURL),
		scraper.WithUserAgent(cfg.Crawler.UserAgent),
		scraper.WithLocation(cfg.Location()),
	)
}

func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

func openSnapshots() (*snapshot.Storage, error) {
	snaps, err := snapshot.NewStorage(cfg.Snapshot.Dir)
	if err != nil {
		return nil, fmt.Errorf("initializing snapshot storage: %w", err)
	}
	return snaps, nil
}

func newCrawler(st store.Store) (*crawler.Crawler, error) {
	var opts []crawler.Option
	if !flagNoSnapshot {
		snaps, err := openSnapshots()
		if err != nil {
			return nil, err
		}
		opts = append(opts, crawler.WithSnapshots(snaps, cfg.Crawler.ListURL))
	}
	return crawler.New(newScraper(), inserter.New(st), opts...), nil
}

// runRun is the full pipeline: scrape, snapshot, import.
func runRun(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := newCrawler(st)
	if err != nil {
		return err
	}

	report, err := c.Run(ctx)
	if err != nil {
		return err
	}

	if err := WriteRunReport(cmd.OutOrStdout(), report, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func runScrape(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	order := SortOrder(strings.ToLower(flagSort))
	if !order.Valid() {
		return fmt.Errorf("invalid sort order: %s (must be 'date', 'region' or 'title')", flagSort)
	}

	sc := newScraper()
	tournaments, err := sc.ListTournaments(cmd.Context())
	if err != nil {
		return err
	}
	sortTournaments(tournaments, order)

	snap := snapshot.New(cfg.Crawler.ListURL, time.Now().UTC(), tournaments)

	if !flagNoSnapshot {
		snaps, err := openSnapshots()
		if err != nil {
			return err
		}
		path, err := snaps.Save(snap)
		if err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		logger.Info("Snapshot saved", logger.Fields{"path": path})
	}

	if flagOut != "" {
		f, err := os.Create(flagOut)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		if err := snapshot.Write(f, snap); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d tournaments to %s\n", len(tournaments), flagOut)
		return nil
	}

	if err := WriteTournaments(cmd.OutOrStdout(), snap, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	var snap *snapshot.Snapshot
	if len(args) == 1 {
		if args[0] == "-" {
			snap, err = snapshot.Read(cmd.InOrStdin())
		} else {
			snap, err = snapshot.ReadFile(args[0])
		}
	} else {
		var snaps *snapshot.Storage
		snaps, err = openSnapshots()
		if err == nil {
			snap, err = snaps.LoadLatest()
		}
	}
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	report := inserter.New(st).InsertBatch(ctx, snap.Tournaments)
	if err := WriteBatchReport(cmd.OutOrStdout(), report, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	logger.Info("Migrations applied", logger.Fields{"driver": cfg.Store.Driver})
	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
	return nil
}

// runSchedule runs the pipeline on cron until SIGINT or SIGTERM. Runs never
// overlap; a run still going when the next is due makes that one skip.
func runSchedule(cmd *cobra.Command, args []string) error {
	expr := cfg.Schedule.Cron
	if flagCron != "" {
		expr = flagCron
	}
	if err := config.ValidateCron(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := newCrawler(st)
	if err != nil {
		return err
	}

	svc, err := scheduler.New(cfg.Location())
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	crawl := func() {
		logger.DefaultMetrics().Reset()
		if _, err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Scheduled crawl failed", nil, err)
		}
	}
	if _, err := svc.AddJob("crawl", expr, crawl); err != nil {
		return fmt.Errorf("scheduling crawl: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if flagRunNow {
			crawl()
		}
		svc.Start()
		<-gctx.Done()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return svc.Stop()
	})

	logger.Info("Scheduler running", logger.Fields{"cron": expr})
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Scheduler stopped", nil)
	return nil
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		logger.Error("Command failed", nil, err)
		os.Exit(ExitError)
	}
}
