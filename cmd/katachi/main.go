// Package main is the Katachi CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/katachi/internal/catalog"
	"github.com/hyperjump/katachi/internal/cli"
	"github.com/hyperjump/katachi/internal/config"
	"github.com/hyperjump/katachi/internal/server"
	"github.com/hyperjump/katachi/internal/watcher"
	"github.com/hyperjump/katachi/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

// loadConfig loads config from path. A missing file at the default path is not an error:
// built-in defaults (plus environment overrides) are used instead.
// Returns the config and the path that was actually loaded, or "" for defaults.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default()
		if err != nil {
			return nil, "", err
		}
		return cfg, "", nil
	}
	return nil, "", err
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	// .env is optional.
	_ = godotenv.Load()

	command := os.Args[1]
	switch command {
	case "serve":
		runServe()
	case "rebuild":
		runRebuild()
	case "query":
		runQuery()
	case "classify":
		runClassify()
	case "find":
		runFind()
	case "export":
		runExport()
	case "watch":
		runWatch()
	case "server":
		runServer()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("katachi version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags are accepted by every subcommand that loads components.
type commonFlags struct {
	configPath *string
	debug      *bool
	noColor    *bool
	output     *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		noColor:    fs.Bool("no-color", false, "disable colored output"),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

// setup loads config, builds the logger and components. The returned cleanup closes both.
func setup(f *commonFlags) (*app, func()) {
	cfg, resolved, err := loadConfig(*f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*f.output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *f.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	a := &app{
		c:       components,
		printer: cli.NewPrinter(os.Stdout, *f.noColor),
		format:  format,
		logger:  logger,
	}
	return a, func() {
		if err := components.Close(); err != nil {
			logger.Warn("close components failed", zap.Error(err))
		}
		_ = logger.Sync()
	}
}

// exitOnError prints err as an alert and exits non-zero.
func exitOnError(a *app, cleanup func(), err error) {
	if err == nil {
		return
	}
	a.printer.Alert("%v", err)
	cleanup()
	os.Exit(1)
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])

	a, cleanup := setup(common)
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.c.Catalog.Load(); err != nil && !errors.Is(err, catalog.ErrMissingIndex) {
		a.logger.Warn("load index failed", zap.Error(err))
	}
	if err := cli.NewREPL(os.Stdin, a.printer, a.dispatch).Run(ctx); err != nil {
		exitOnError(a, cleanup, err)
	}
}

func runRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	common := addCommonFlags(fs)
	productsDir := fs.String("products_dir", "", "products directory (default from config)")
	_ = fs.Parse(os.Args[2:])

	a, cleanup := setup(common)
	defer cleanup()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	exitOnError(a, cleanup, a.rebuild(ctx, *productsDir))
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	common := addCommonFlags(fs)
	image := fs.String("image", "", "query image path")
	savePre := fs.Bool("save-preprocessed", false, "save the preprocessed query image")
	preDir := fs.String("preprocessed_dir", "", "directory for preprocessed images (default from config)")
	_ = fs.Parse(os.Args[2:])

	a, cleanup := setup(common)
	defer cleanup()
	exitOnError(a, cleanup, a.query(context.Background(), *image, *savePre, *preDir))
}

func runClassify() {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	common := addCommonFlags(fs)
	image := fs.String("image", "", "image path")
	useTrained := fs.Bool("use-trained", false, "prefer trained attribute heads")
	savePre := fs.Bool("save-preprocessed", false, "save the preprocessed image")
	preDir := fs.String("preprocessed_dir", "", "directory for preprocessed images (default from config)")
	_ = fs.Parse(os.Args[2:])

	a, cleanup := setup(common)
	defer cleanup()
	exitOnError(a, cleanup, a.classify(context.Background(), *image, *useTrained, *savePre, *preDir))
}

// argsReorder moves any flags (and their values) that appear after the positional words
// to the front so that flag.Parse() sees them. Go's flag package stops at the first
// non-flag argument, so "katachi find red sneaker --fuzzy" would otherwise leave --fuzzy unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuery joins positional args with spaces so multi-word queries work with or
// without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runFind() {
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	common := addCommonFlags(fs)
	fuzzy := fs.Bool("fuzzy", false, "enable typo-tolerant matching")
	limit := fs.Int("limit", 10, "number of results")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: katachi find [flags] <words>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		fs.Usage()
		os.Exit(1)
	}
	a, cleanup := setup(common)
	defer cleanup()
	exitOnError(a, cleanup, a.find(context.Background(), query, *fuzzy, *limit))
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	common := addCommonFlags(fs)
	out := fs.String("out", "products.xlsx", "output workbook path")
	_ = fs.Parse(os.Args[2:])

	a, cleanup := setup(common)
	defer cleanup()
	exitOnError(a, cleanup, exportTo(context.Background(), a, *out))
}

func exportTo(ctx context.Context, a *app, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := a.c.Catalog.Export(ctx, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("export failed: %w", err)
	}
	a.printer.Info("Exported %d products to %s", n, path)
	return nil
}

// startWatcher rebuilds the catalog whenever the products directory settles after changes.
func startWatcher(ctx context.Context, a *app) (*watcher.Watcher, error) {
	cfg := a.c.Config
	w := watcher.NewWatcher(
		a.c.Catalog.ProductsDir(),
		cfg.Watch.Extensions,
		func(changes []watcher.Change) {
			a.logger.Info("products changed, rebuilding", zap.Int("changes", len(changes)))
			n, err := a.c.Catalog.Rebuild(ctx, nil)
			if err != nil {
				a.logger.Warn("watch rebuild failed", zap.Error(err))
				return
			}
			a.logger.Info("watch rebuild done", zap.Int("products", n))
		},
		watcher.WithLogger(a.logger),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
	)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])

	a, cleanup := setup(common)
	defer cleanup()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := startWatcher(ctx, a)
	exitOnError(a, cleanup, err)
	defer w.Stop()
	a.printer.Highlight("Watching %s for changes. Press Ctrl-C to stop.", w.Dir())
	<-ctx.Done()
	a.printer.Info("Stopped watching.")
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	common := addCommonFlags(fs)
	watch := fs.Bool("watch", false, "rebuild the index when the products directory changes")
	uploadDir := fs.String("upload_dir", "", "directory for temporary uploads (default: system temp)")
	_ = fs.Parse(os.Args[2:])

	a, cleanup := setup(common)
	defer cleanup()

	if err := a.c.Catalog.Load(); err != nil && !errors.Is(err, catalog.ErrMissingIndex) {
		a.logger.Warn("load index failed", zap.Error(err))
	}
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if *watch {
		w, err := startWatcher(watchCtx, a)
		if err != nil {
			a.logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	var opts []server.Option
	if *uploadDir != "" {
		opts = append(opts, server.WithUploadDir(*uploadDir))
	}
	srv := server.NewServer(
		a.c.Catalog,
		a.c.Recommender,
		a.c.Classifier,
		a.c.Cache,
		&a.c.Config.Server,
		a.logger,
		opts...,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	a.logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])

	a, cleanup := setup(common)
	defer cleanup()
	exitOnError(a, cleanup, a.status(context.Background()))
}

func printUsage() {
	fmt.Print(`Katachi - product image recommender and attribute classifier

Usage:
  katachi <command> [flags]

Commands:
  serve       Interactive shell (rebuild, query, classify, find, cache, status)
  rebuild     Rebuild the product index [--products_dir DIR]
  query       Recommend similar products --image PATH [--save-preprocessed]
  classify    Classify category and attributes --image PATH [--use-trained]
  find        Search products by filename words [--fuzzy] [--limit N]
  export      Write the product catalog to a workbook [--out products.xlsx]
  watch       Rebuild the index when the products directory changes
  server      Start the HTTP API server [--watch]
  status      Show index and catalog status
  version     Print version
  help        Show this help

Common flags:
  --config PATH   config file (default: ./config.yaml, built-in defaults if missing)
  --debug         debug logging
  --no-color      plain output
  --output FMT    text or json
`)
}
