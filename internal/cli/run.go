package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/procsift/procsift/internal/audit"
	"github.com/procsift/procsift/internal/config"
	"github.com/procsift/procsift/internal/fetcher"
	"github.com/procsift/procsift/internal/logging"
	"github.com/procsift/procsift/internal/normalizer"
	"github.com/procsift/procsift/internal/region"
	"github.com/procsift/procsift/internal/repository"
	"github.com/procsift/procsift/internal/service"
	"github.com/procsift/procsift/internal/sink"
	"github.com/procsift/procsift/internal/source"
	"github.com/procsift/procsift/internal/validator"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one harvest-and-dispatch cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format).
		ForRun(uuid.NewString())
	logging.SetDefault(log)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	fetch := fetcher.New(fetcher.Pacing{
		Enabled:      cfg.Pacing.Enabled,
		MinDelay:     cfg.Pacing.MinDelay,
		MaxDelay:     cfg.Pacing.MaxDelay,
		SlowEvery:    cfg.Pacing.SlowEvery,
		SlowMinDelay: cfg.Pacing.SlowMinDelay,
		SlowMaxDelay: cfg.Pacing.SlowMaxDelay,
	}, log)
	src := source.NewTendersSource(cfg.Source.Name, cfg.Source.BaseURL, cfg.Source.PageSize, fetch)

	if cfg.Ingest.Enabled {
		v := validator.New(validator.Config{
			AllowedStatuses: cfg.Validation.AllowedStatuses,
			SkipNumbers:     cfg.Validation.SkipNumbers,
			DateLayouts:     cfg.Validation.DateLayouts,
			Grace:           time.Duration(cfg.Validation.GraceHours) * time.Hour,
		})
		ingestor := service.NewIngestor(store, v, service.IngestConfig{
			EmptyPageThreshold: cfg.Ingest.EmptyPageThreshold,
			MaxPages:           cfg.Ingest.MaxPages,
		}, log)
		if _, err := ingestor.Run(ctx, src); err != nil {
			// Dispatch still drains what earlier runs (or this partial one)
			// persisted.
			log.Error("ingestion failed", "error", err)
		}
	}

	regions, err := loadRegions(cfg)
	if err != nil {
		return err
	}

	registry := normalizer.NewRegistry(
		normalizer.NewCommercial(cfg.Source.EtpName, regions),
		normalizer.NewNeed(cfg.Source.EtpName, cfg.Source.BaseURL),
		normalizer.NewAuction(cfg.Source.EtpName, cfg.Source.BaseURL),
	)

	out, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer out.Close()

	dispatcher := service.NewDispatcher(
		store,
		registry,
		cfg.Customers,
		out,
		audit.NewWriter(cfg.Audit.Path),
		service.DispatchConfig{
			SourceName:      cfg.Source.Name,
			UpdateAfterSend: cfg.Dispatch.UpdateAfterSend,
		},
		log,
	)
	stats, err := dispatcher.Run(ctx)
	if err != nil {
		return err
	}
	log.Info("run complete", "sent", stats.Sent, "errors", stats.Errors)
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (repository.Store, error) {
	switch cfg.Database.Type {
	case "memory":
		return repository.NewInMemoryStore(), nil
	case "postgres":
		connString := cfg.Database.Postgres.ConnString()
		log.Info("running database migrations")
		m, err := migrate.New("file://migrations", connString)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize migrations: %w", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		m.Close()
		return repository.NewPostgresStore(ctx, connString)
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Database.Type)
	}
}

func openSink(cfg *config.Config) (sink.Sink, error) {
	if !cfg.Dispatch.SendEnabled {
		return sink.Discard{}, nil
	}
	switch cfg.Sink.Type {
	case "http":
		return sink.NewHTTPSink(cfg.Sink.HTTP.URL, cfg.Sink.HTTP.Token, cfg.Sink.HTTP.Timeout), nil
	case "nats":
		return sink.NewNATSSink(cfg.Sink.NATS.URL, cfg.Sink.NATS.Subject, cfg.Sink.NATS.Name)
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Sink.Type)
	}
}

func loadRegions(cfg *config.Config) (*region.Resolver, error) {
	if cfg.Region.MatchesFile == "" {
		return region.New(nil, cfg.Region.DefaultRegion), nil
	}
	return region.Load(cfg.Region.MatchesFile, cfg.Region.DefaultRegion)
}

func serveMetrics(addr string, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("metrics listener started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics listener stopped", "error", err)
	}
}
