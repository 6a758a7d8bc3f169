// Command order-import loads invoice request batches from NDJSON files into
// the configured storage backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/xenking/order-invoice/internal/domain/invoice"
	"github.com/xenking/order-invoice/internal/importer"
	"github.com/xenking/order-invoice/internal/storage"
	"github.com/xenking/order-invoice/internal/wire"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		storageCfg storage.Config
		opts       importer.Options
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "order-import [flags] FILE...",
		Short: "Import invoice request batches from NDJSON files",
		Long: "Each non-empty line of every FILE is an invoice request body. " +
			"Files ending in .gz are decompressed. Duplicate lines across all files are skipped.",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if storageCfg.DatabaseURL == "" {
				storageCfg.DatabaseURL = os.Getenv("DATABASE_URL")
			}

			lg, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = lg.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			return run(ctx, lg, storageCfg, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&storageCfg.Driver, "driver", storage.DriverPostgres, "storage backend: postgres, redis or memory")
	f.StringVar(&storageCfg.DatabaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	f.StringVar(&storageCfg.RedisAddr, "redis-addr", "localhost:6379", "Redis address")
	f.StringVar(&storageCfg.RedisPassword, "redis-password", "", "Redis password")
	f.IntVar(&storageCfg.RedisDB, "redis-db", 0, "Redis logical database")
	f.IntVar(&opts.Workers, "workers", runtime.GOMAXPROCS(0), "files processed concurrently")
	f.UintVar(&opts.ExpectedLines, "expected-lines", 1_000_000, "expected number of lines, sizes the dedup filter")
	f.Float64Var(&opts.FalsePositiveRate, "false-positive-rate", 0.001, "dedup filter false positive rate")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	lg, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return lg, nil
}

func run(ctx context.Context, lg *zap.Logger, storageCfg storage.Config, opts importer.Options, files []string) error {
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			return errors.Wrapf(err, "check file %s", path)
		}
	}

	store, err := storage.Open(ctx, storageCfg)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()

	svc, err := invoice.NewService(store.Orders, otel.GetMeterProvider())
	if err != nil {
		return errors.Wrap(err, "create invoice service")
	}

	lg.Info("Importing",
		zap.Int("files", len(files)),
		zap.String("storage", storageCfg.Driver),
		zap.Int("workers", opts.Workers),
	)
	s, err := importer.New(svc, lg, opts).ImportFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "import")
	}

	lg.Info("Import completed",
		zap.Int("files", s.Files),
		zap.Int("batches", s.Batches),
		zap.Int("items", s.Items),
		zap.Int("duplicates", s.Duplicates),
		zap.Int("rejected", s.Rejected),
		zap.String("grand_total", wire.FormatMoney(s.GrandTotal)),
	)
	return nil
}
