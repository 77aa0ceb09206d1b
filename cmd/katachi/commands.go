package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hyperjump/katachi/internal/cache"
	"github.com/hyperjump/katachi/internal/catalog"
	"github.com/hyperjump/katachi/internal/cli"
	"github.com/hyperjump/katachi/internal/embedding"
	"github.com/hyperjump/katachi/internal/models"
	"github.com/hyperjump/katachi/internal/recommend"
	"go.uber.org/zap"
)

// app runs commands against initialized components. One-shot subcommands and the serve
// shell share it.
type app struct {
	c       *Components
	printer *cli.Printer
	format  cli.OutputFormat
	logger  *zap.Logger
}

var errMissingIndex = errors.New(cli.MissingIndexMessage)

// friendly replaces missing-index errors with the message users are told to act on.
func friendly(err error) error {
	if errors.Is(err, catalog.ErrMissingIndex) || errors.Is(err, recommend.ErrIndexEmpty) {
		return errMissingIndex
	}
	return err
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (a *app) rebuild(ctx context.Context, productsDir string) error {
	cat := a.c.Catalog
	if productsDir != "" && productsDir != cat.ProductsDir() {
		cat = cat.InDir(productsDir)
	}
	a.printer.Highlight("\nStarted rebuilding process\n")
	n, err := cat.Rebuild(ctx, func(name string) {
		a.printer.Info("Processing %s...", name)
	})
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	a.printer.Highlight("\nIndex rebuilt successfully! (%d products)", n)
	return nil
}

func (a *app) query(ctx context.Context, image string, savePreprocessed bool, preprocessedDir string) error {
	if image == "" || !fileExists(image) {
		return errors.New("Please provide valid --image for query")
	}
	if err := a.c.Catalog.Load(); err != nil {
		return friendly(err)
	}
	opts := embedding.EncodeOptions{SavePreprocessed: savePreprocessed, SaveDir: a.preprocessedDir(preprocessedDir)}
	recs, err := a.c.Recommender.Recommend(ctx, image, opts)
	if err != nil {
		return friendly(err)
	}
	if savePreprocessed {
		a.logger.Debug("preprocessed query image saved", zap.String("dir", opts.SaveDir))
	}
	return cli.WriteRecommendations(a.printer, recs, a.format)
}

func (a *app) preprocessedDir(override string) string {
	if override != "" {
		return override
	}
	return a.c.Config.Storage.PreprocessedDir
}

func (a *app) classify(ctx context.Context, image string, useTrained, savePreprocessed bool, preprocessedDir string) error {
	if image == "" || !fileExists(image) {
		return errors.New("Please provide valid --image for classify")
	}
	if savePreprocessed {
		dst, err := a.c.Model.SavePreprocessed(ctx, image, a.preprocessedDir(preprocessedDir))
		if err != nil {
			a.logger.Warn("failed to save preprocessed image", zap.Error(err))
		} else if a.format == cli.OutputText {
			a.printer.Info("Preprocessed image saved to %s", dst)
		}
	}
	res, err := a.c.Classifier.Classify(ctx, image, useTrained)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}
	return cli.WriteClassification(a.printer, res, useTrained, a.format)
}

func (a *app) find(ctx context.Context, query string, fuzzy bool, limit int) error {
	if query == "" {
		return errors.New("Please provide search words for find")
	}
	res, err := a.c.Catalog.Find(ctx, models.FindQuery{Query: query, Limit: limit, Fuzzy: fuzzy})
	if err != nil {
		return err
	}
	return cli.WriteFindResult(a.printer, res, a.format)
}

func (a *app) cache(action, key string) error {
	c := a.c.Cache
	switch action {
	case "list":
		return cli.WriteCacheKeys(a.printer, c.Keys(), a.format)
	case "clear":
		c.Clear()
		a.printer.Info("All caches cleared.")
	case "delete":
		if key == "" {
			return errors.New("Please provide --key for cache delete")
		}
		if !c.Delete(key) {
			return fmt.Errorf("Key not found in cache: %s", key)
		}
		a.printer.Info("Deleted %s key: %s", cache.Namespace(key), key)
	case "info":
		return cli.WriteCacheInfo(a.printer, c.Info(), a.format)
	default:
		a.printer.Highlight("Cache is live and will speed up repeated queries/classifications.")
		a.printer.Info("Valid subcommands: list, clear, delete, info")
	}
	return nil
}

func (a *app) status(ctx context.Context) error {
	st, err := a.c.Catalog.Status(ctx)
	if err != nil {
		return err
	}
	return cli.WriteStatus(a.printer, st, a.format)
}

// dispatch runs one serve shell command.
func (a *app) dispatch(ctx context.Context, cmd *cli.Command) error {
	switch cmd.Name {
	case "rebuild":
		return a.rebuild(ctx, cmd.ProductsDir)
	case "query":
		return a.query(ctx, cmd.Image, cmd.SavePreprocessed, cmd.PreprocessedDir)
	case "classify":
		return a.classify(ctx, cmd.Image, cmd.UseTrained, cmd.SavePreprocessed, cmd.PreprocessedDir)
	case "find":
		return a.find(ctx, cmd.Query, cmd.Fuzzy, 0)
	case "cache":
		return a.cache(cmd.CacheAction, cmd.CacheKey)
	case "status":
		return a.status(ctx)
	case "train":
		return errors.New("Training is not available here; place trained heads under models/<category>/<attribute>/")
	case "help":
		printShellHelp(a.printer)
		return nil
	default:
		return fmt.Errorf("Unknown command: %s", cmd.Name)
	}
}

func printShellHelp(p *cli.Printer) {
	p.Plain(`Commands:
  rebuild [--products_dir DIR]
  query --image PATH [--save-preprocessed] [--preprocessed_dir DIR]
  classify --image PATH [--use-trained] [--save-preprocessed] [--preprocessed_dir DIR]
  find WORDS... [--fuzzy]
  cache list|clear|info|delete --key KEY
  status
  exit | quit`)
}
