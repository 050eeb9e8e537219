package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cristalhq/aconfig"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/bouquet-checkout/db"
	"github.com/xenking/bouquet-checkout/internal/domain/auth"
	"github.com/xenking/bouquet-checkout/internal/domain/catalog"
	"github.com/xenking/bouquet-checkout/internal/domain/coupon"
	"github.com/xenking/bouquet-checkout/internal/storage/postgres"
)

// Config of the seed tool, from BOUQUET_ environment variables or flags.
type Config struct {
	DatabaseURL  string `usage:"PostgreSQL connection URL (or DATABASE_URL env)" flag:"database-url"`
	ProductsFile string `usage:"Products JSON file; the embedded catalog is used when empty" flag:"products-file"`
	SeedAPIKey   string `usage:"API key to seed" flag:"api-key"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing" flag:"api-key-pepper"`
}

func main() {
	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BOUQUET",
		SkipFiles: true,
		// The server's variables share the prefix.
		AllowUnknownEnvs: true,
	}).Load(); err != nil {
		lg.Fatal("Load config", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if cfg.SeedAPIKey == "" {
		lg.Fatal("API key is required: set --api-key or BOUQUET_SEED_API_KEY")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, cfg Config) error {
	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	data := db.Products
	if cfg.ProductsFile != "" {
		if data, err = os.ReadFile(cfg.ProductsFile); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}
	products, err := decodeProducts(data)
	if err != nil {
		return errors.Wrap(err, "parse products")
	}

	if err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, lg, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	key := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(cfg.APIKeyPepper), cfg.SeedAPIKey),
		Name:    "Default storefront key",
		Scopes:  []string{auth.ScopePlaceOrder},
	}
	if err := postgres.NewAPIKeyRepository(pool).Upsert(ctx, key); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	lg.Info("Upserted API key", zap.String("id", key.ID), zap.String("name", key.Name))

	return nil
}

type productWriter interface {
	Upsert(ctx context.Context, p catalog.Product) error
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo productWriter, products []catalog.Product) error {
	lg.Info("Upserting products", zap.Int("count", len(products)))
	for _, p := range products {
		if err := repo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		lg.Debug("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	return nil
}

// defaultCoupons are the shop's standing promotions.
func defaultCoupons() []coupon.Coupon {
	return []coupon.Coupon{
		{
			Code:        "SWEET10",
			Kind:        coupon.KindPercentage,
			Value:       decimal.NewFromInt(10),
			Description: "10% off your bouquet",
		},
		{
			Code:        "FLAT5",
			Kind:        coupon.KindFixed,
			Value:       decimal.NewFromInt(5),
			Description: "5 off any order",
		},
		{
			Code:        "BIG50",
			Kind:        coupon.KindFixed,
			Value:       decimal.NewFromInt(15),
			MinPurchase: decimal.NewFromInt(50),
			Description: "15 off orders of 50 or more",
		},
		{
			Code:        "LOVE20",
			Kind:        coupon.KindPercentage,
			Value:       decimal.NewFromInt(20),
			MinPurchase: decimal.NewFromInt(30),
			MaxDiscount: decimal.NewNullDecimal(decimal.NewFromInt(12)),
			Description: "20% off orders of 30 or more, up to 12",
		},
	}
}

type couponWriter interface {
	Upsert(ctx context.Context, c coupon.Coupon) error
}

func seedCoupons(ctx context.Context, lg *zap.Logger, repo couponWriter) error {
	for _, c := range defaultCoupons() {
		if err := repo.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
		lg.Info("Upserted coupon", zap.String("code", c.Code), zap.String("description", c.Description))
	}
	return nil
}
