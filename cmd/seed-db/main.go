package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/goldwin-storefront/db"
	"github.com/xenking/goldwin-storefront/internal/catalog"
	"github.com/xenking/goldwin-storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
		pruneAfter  time.Duration
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "catalog seed JSON, optionally .gz (default: embedded catalog)")
	flag.DurationVar(&pruneAfter, "prune-carts", 0, "delete cart records idle for longer than this (0 disables)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, pruneAfter); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string, pruneAfter time.Duration) error {
	data, err := readCatalog(catalogFile)
	if err != nil {
		return err
	}
	seed, err := catalog.DecodeSeed(data)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, c := range seed.Categories {
			if err := products.UpsertCategory(gCtx, c); err != nil {
				return errors.Wrapf(err, "upsert category %s", c.Slug)
			}
			slog.Info("upserted category", slog.String("slug", c.Slug), slog.String("name", c.Name))
		}
		return nil
	})
	g.Go(func() error {
		for i, p := range seed.Products {
			if err := products.UpsertProduct(gCtx, p, i); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if pruneAfter > 0 {
		n, err := postgres.NewCartRecordRepository(pool).Prune(ctx, time.Now().Add(-pruneAfter))
		if err != nil {
			return errors.Wrap(err, "prune carts")
		}
		slog.Info("pruned idle carts", slog.Int64("count", n), slog.Duration("idle", pruneAfter))
	}
	return nil
}

// readCatalog returns the seed at path, gunzipping .gz files. An empty path
// selects the embedded catalog.
func readCatalog(path string) ([]byte, error) {
	if path == "" {
		slog.Info("using embedded catalog")
		return db.Catalog, nil
	}
	slog.Info("reading catalog file", slog.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog file")
	}
	return data, nil
}
