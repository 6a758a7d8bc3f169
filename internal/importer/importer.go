// Package importer loads invoice request batches from NDJSON files.
//
// Every non-empty line is one invoice request body. Lines are deduplicated
// across all files with a bloom filter, so a false positive can skip a
// batch that was never seen; size the filter for the expected line count.
package importer

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-invoice/internal/domain/invoice"
	"github.com/xenking/order-invoice/internal/domain/order"
	"github.com/xenking/order-invoice/internal/wire"
)

// maxLineBytes bounds a single request line.
const maxLineBytes = 1 << 20

// Generator produces an invoice for a batch of new order items.
type Generator interface {
	Generate(ctx context.Context, items []order.OrderItem) (*invoice.Invoice, error)
}

// Options tune an import run.
type Options struct {
	// Workers limits how many files are processed at once.
	Workers int
	// ExpectedLines and FalsePositiveRate size the dedup filter.
	ExpectedLines     uint
	FalsePositiveRate float64
}

// Summary counts the outcome of an import.
type Summary struct {
	Files      int
	Batches    int
	Items      int
	Duplicates int
	Rejected   int
	GrandTotal decimal.Decimal
}

func (s *Summary) add(o Summary) {
	s.Files += o.Files
	s.Batches += o.Batches
	s.Items += o.Items
	s.Duplicates += o.Duplicates
	s.Rejected += o.Rejected
	s.GrandTotal = s.GrandTotal.Add(o.GrandTotal)
}

// Importer feeds request lines through a Generator.
type Importer struct {
	gen  Generator
	lg   *zap.Logger
	opts Options

	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// New creates an Importer. Zero options fall back to one worker and a filter
// sized for a million lines at a 0.1% false positive rate.
func New(gen Generator, lg *zap.Logger, opts Options) *Importer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ExpectedLines == 0 {
		opts.ExpectedLines = 1_000_000
	}
	if opts.FalsePositiveRate <= 0 || opts.FalsePositiveRate >= 1 {
		opts.FalsePositiveRate = 0.001
	}
	return &Importer{
		gen:  gen,
		lg:   lg,
		opts: opts,
		seen: bloom.NewWithEstimates(opts.ExpectedLines, opts.FalsePositiveRate),
	}
}

// ImportFiles processes every path concurrently. Files ending in .gz are
// decompressed. Rejected batches are counted and skipped; any other error
// stops the import.
func (im *Importer) ImportFiles(ctx context.Context, paths []string) (Summary, error) {
	var (
		mu    sync.Mutex
		total = Summary{GrandTotal: decimal.Zero}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(im.opts.Workers)
	for _, path := range paths {
		g.Go(func() error {
			s, err := im.importFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "import %s", path)
			}
			mu.Lock()
			total.add(s)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return total, nil
}

func (im *Importer) importFile(ctx context.Context, path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return Summary{}, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	lg := im.lg.With(zap.String("file", path))
	s, err := im.Import(ctx, r, lg)
	if err != nil {
		return Summary{}, err
	}
	s.Files = 1
	lg.Info("File imported",
		zap.Int("batches", s.Batches),
		zap.Int("duplicates", s.Duplicates),
		zap.Int("rejected", s.Rejected),
	)
	return s, nil
}

// Import processes one stream of request lines.
func (im *Importer) Import(ctx context.Context, r io.Reader, lg *zap.Logger) (Summary, error) {
	s := Summary{GrandTotal: decimal.Zero}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return Summary{}, err
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		if im.duplicate(raw) {
			s.Duplicates++
			continue
		}

		inv, err := im.generate(ctx, []byte(raw))
		if err != nil {
			if !isRejection(err) {
				return Summary{}, errors.Wrapf(err, "line %d", line)
			}
			s.Rejected++
			lg.Warn("Batch rejected", zap.Int("line", line), zap.Error(err))
			continue
		}

		s.Batches++
		s.Items += len(inv.Items)
		s.GrandTotal = s.GrandTotal.Add(inv.GrandTotal)
	}
	if err := scanner.Err(); err != nil {
		return Summary{}, errors.Wrap(err, "scan")
	}
	return s, nil
}

func (im *Importer) generate(ctx context.Context, raw []byte) (*invoice.Invoice, error) {
	items, err := wire.DecodeOrderRequest(raw)
	if err != nil {
		return nil, err
	}
	return im.gen.Generate(ctx, items)
}

// duplicate reports whether line was probably seen before and records it.
func (im *Importer) duplicate(line string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.seen.TestOrAddString(line)
}

// isRejection reports errors caused by the batch content rather than by
// storage.
func isRejection(err error) bool {
	var (
		syntaxErr   *wire.SyntaxError
		validateErr *wire.ValidationError
		itemErr     *invoice.ItemError
	)
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &validateErr) ||
		errors.As(err, &itemErr) ||
		errors.Is(err, invoice.ErrEmptyBatch)
}
