package main

import (
	"context"
	"encoding/csv"
	"io"
	"math/bits"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bouquet-checkout/internal/domain/coupon"
)

const progressEvery = 100_000

type couponWriter interface {
	Upsert(ctx context.Context, c coupon.Coupon) error
}

type discardWriter struct{}

func (discardWriter) Upsert(context.Context, coupon.Coupon) error { return nil }

type importStats struct {
	Read       int
	Invalid    int
	Duplicates int
	Written    int
}

// importer loads gzip-compressed CSV coupon catalogs. A code defined in more
// than one file is taken from the first file only.
//
// Pass 1 builds one bloom filter per file, pass 2 collects codes that may
// appear in another file and records exactly which files hold them, pass 3
// writes the records.
type importer struct {
	lg       *zap.Logger
	files    []string
	capacity uint
	fpRate   float64
}

func (im *importer) run(ctx context.Context, repo couponWriter) (importStats, error) {
	if len(im.files) > bits.UintSize {
		return importStats{}, errors.Errorf("at most %d files per import", bits.UintSize)
	}

	im.lg.Info("Pass 1: building bloom filters", zap.Int("files", len(im.files)))
	filters, err := im.buildFilters(ctx)
	if err != nil {
		return importStats{}, errors.Wrap(err, "build bloom filters")
	}

	im.lg.Info("Pass 2: finding codes shared between files")
	owners, err := im.findShared(ctx, filters)
	if err != nil {
		return importStats{}, errors.Wrap(err, "find shared codes")
	}
	im.lg.Info("Shared codes found", zap.Int("count", len(owners)))

	im.lg.Info("Pass 3: writing coupons")
	return im.write(ctx, repo, owners)
}

func (im *importer) buildFilters(ctx context.Context) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(im.files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range im.files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(im.capacity, im.fpRate)
			var count int
			if err := streamCatalog(ctx, path, func(_ int, c coupon.Coupon, err error) error {
				if err == nil {
					filter.AddString(c.Code)
					count++
				}
				return nil
			}); err != nil {
				return err
			}
			im.lg.Info("Pass 1 complete", zap.String("file", path), zap.Int("codes", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findShared returns, for every code that tests positive in another file's
// filter, the bitmask of files that actually contain it.
func (im *importer) findShared(ctx context.Context, filters []*bloom.BloomFilter) (map[string]uint, error) {
	results := make([]map[string]uint, len(im.files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range im.files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i)
			if err := streamCatalog(ctx, path, func(_ int, c coupon.Coupon, err error) error {
				if err != nil {
					return nil
				}
				for j, f := range filters {
					if j != i && f.TestString(c.Code) {
						candidates[c.Code] |= fileBit
						break
					}
				}
				return nil
			}); err != nil {
				return err
			}
			results[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, r := range results {
		for code, mask := range r {
			merged[code] |= mask
		}
	}
	// Bloom false positives leave a single bit set.
	for code, mask := range merged {
		if bits.OnesCount(mask) < 2 {
			delete(merged, code)
		}
	}
	return merged, nil
}

func (im *importer) write(ctx context.Context, repo couponWriter, owners map[string]uint) (importStats, error) {
	var stats importStats
	for i, path := range im.files {
		fileBit := uint(1) << uint(i)
		err := streamCatalog(ctx, path, func(line int, c coupon.Coupon, err error) error {
			stats.Read++
			if err != nil {
				stats.Invalid++
				im.lg.Warn("Skipping invalid record",
					zap.String("file", path),
					zap.Int("line", line),
					zap.Error(err),
				)
				return nil
			}
			if mask, ok := owners[c.Code]; ok && mask&-mask != fileBit {
				stats.Duplicates++
				im.lg.Debug("Skipping duplicate code", zap.String("code", c.Code), zap.String("file", path))
				return nil
			}
			if err := repo.Upsert(ctx, c); err != nil {
				return err
			}
			stats.Written++
			if stats.Written%progressEvery == 0 {
				im.lg.Info("Write progress", zap.Int("written", stats.Written))
			}
			return nil
		})
		if err != nil {
			return stats, errors.Wrapf(err, "import %s", path)
		}
	}
	return stats, nil
}

// streamCatalog calls fn for every record of a gzip-compressed CSV catalog.
// Malformed records are passed with a non-nil error; an error returned by fn
// stops the stream.
func streamCatalog(ctx context.Context, path string, fn func(line int, c coupon.Coupon, err error) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			if err := fn(perr.Line, coupon.Coupon{}, err); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		line, _ := r.FieldPos(0)
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "code") {
			continue
		}

		c, err := parseRecord(record)
		if err := fn(line, c, err); err != nil {
			return err
		}
	}
}

// parseRecord parses "code,kind,value[,min_purchase[,max_discount[,description[,max_uses[,valid_until]]]]]".
// Empty optional fields keep their zero value; valid_until is a date.
func parseRecord(record []string) (coupon.Coupon, error) {
	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	if len(record) < 3 {
		return coupon.Coupon{}, errors.Errorf("want at least 3 fields, got %d", len(record))
	}

	c := coupon.Coupon{
		Code:        coupon.NormalizeCode(field(0)),
		Kind:        coupon.Kind(strings.ToLower(field(1))),
		Description: field(5),
	}
	if c.Code == "" {
		return c, errors.New("empty code")
	}
	if !c.Kind.Valid() {
		return c, errors.Errorf("unknown kind %q", field(1))
	}

	var err error
	if c.Value, err = decimal.NewFromString(field(2)); err != nil {
		return c, errors.Wrap(err, "value")
	}
	if !c.Value.IsPositive() {
		return c, errors.New("value must be positive")
	}
	if c.Kind == coupon.KindPercentage && c.Value.GreaterThan(decimal.NewFromInt(100)) {
		return c, errors.New("percentage above 100")
	}
	if v := field(3); v != "" {
		if c.MinPurchase, err = decimal.NewFromString(v); err != nil {
			return c, errors.Wrap(err, "min_purchase")
		}
	}
	if v := field(4); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c, errors.Wrap(err, "max_discount")
		}
		c.MaxDiscount = decimal.NewNullDecimal(d)
	}
	if v := field(6); v != "" {
		if c.MaxUses, err = strconv.Atoi(v); err != nil || c.MaxUses < 0 {
			return c, errors.Errorf("invalid max_uses %q", v)
		}
	}
	if v := field(7); v != "" {
		day, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return c, errors.Wrap(err, "valid_until")
		}
		until := day.Add(24*time.Hour - time.Nanosecond)
		c.ValidUntil = &until
	}
	return c, nil
}
