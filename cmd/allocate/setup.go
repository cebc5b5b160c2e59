package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/config"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/logger"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/marketdata"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/marketdata/csvfile"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/marketdata/yahoo"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/metrics"
	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/pipeline"
)

// session bundles what every command needs.
type session struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *metrics.Registry
	pipeline *pipeline.Pipeline
}

func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// providers registers every price source the config can select.
func providers(cfg *config.Config, reg *metrics.Registry, log *zap.Logger) *marketdata.Registry {
	client := &http.Client{
		Timeout:   30 * time.Second,
		Transport: metrics.Transport(reg, log.Named("http"), http.DefaultTransport),
	}

	r := marketdata.NewRegistry()
	r.Register(yahoo.New(yahoo.WithHTTPClient(client)))
	r.Register(csvfile.New(cfg.Data.CSVDir))
	return r
}

// withSession loads config, builds the pipeline and runs fn under a context
// cancelled on SIGINT or SIGTERM.
func withSession(fn func(ctx context.Context, s *session) error) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	provider, ok := providers(cfg, reg, log).Get(cfg.Data.Provider)
	if !ok {
		return core.Errorf(core.ErrConfigInvalid, "unknown data provider %q", cfg.Data.Provider)
	}

	s := &session{
		cfg:     cfg,
		log:     log,
		metrics: reg,
		pipeline: pipeline.New(cfg, provider,
			pipeline.WithLogger(log.Named("pipeline")),
			pipeline.WithMetrics(reg),
		),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := fn(ctx, s)

	if reg != nil && cfg.Metrics.Textfile != "" {
		if err := reg.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("failed to write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}
	return runErr
}
