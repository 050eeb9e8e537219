package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/bouquet-checkout/internal/storage/postgres"
)

// Config of the import tool, from BOUQUET_ environment variables or flags.
type Config struct {
	DatabaseURL string  `usage:"PostgreSQL connection URL (or DATABASE_URL env)" flag:"database-url"`
	DataDir     string  `default:"data" usage:"Directory containing coupon catalogs" flag:"data-dir"`
	Pattern     string  `default:"*.csv.gz" usage:"Glob of catalog files inside data-dir" flag:"pattern"`
	Capacity    uint    `default:"1000000" usage:"Expected codes per file, sizes the bloom filters" flag:"capacity"`
	FPRate      float64 `default:"0.001" usage:"Bloom filter false positive rate" flag:"fp-rate"`
	DryRun      bool    `default:"false" usage:"Validate catalogs without writing" flag:"dry-run"`
}

func main() {
	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:        "BOUQUET_IMPORT",
		SkipFiles:        true,
		AllowUnknownEnvs: true,
	}).Load(); err != nil {
		lg.Fatal("Load config", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" && !cfg.DryRun {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Fatal("Coupon import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, cfg Config) error {
	files, err := filepath.Glob(filepath.Join(cfg.DataDir, cfg.Pattern))
	if err != nil {
		return errors.Wrap(err, "glob catalogs")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s in %s", cfg.Pattern, cfg.DataDir)
	}
	// Earlier files win duplicate codes, so the order must be stable.
	sort.Strings(files)

	im := &importer{
		lg:       lg,
		files:    files,
		capacity: cfg.Capacity,
		fpRate:   cfg.FPRate,
	}

	var repo couponWriter = discardWriter{}
	if !cfg.DryRun {
		lg.Info("Connecting to database")
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()
		repo = postgres.NewCouponRepository(pool)
	}

	stats, err := im.run(ctx, repo)
	if err != nil {
		return err
	}
	lg.Info("Coupon import completed",
		zap.Int("files", len(files)),
		zap.Int("read", stats.Read),
		zap.Int("invalid", stats.Invalid),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("written", stats.Written),
		zap.Bool("dry_run", cfg.DryRun),
	)
	return nil
}
