// Package app initializes and holds long-lived application services, acting as
// a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/lto-plan-scraper/internal/aggregate"
	"github.com/JakeFAU/lto-plan-scraper/internal/api"
	"github.com/JakeFAU/lto-plan-scraper/internal/clock/system"
	"github.com/JakeFAU/lto-plan-scraper/internal/config"
	"github.com/JakeFAU/lto-plan-scraper/internal/export"
	iduuid "github.com/JakeFAU/lto-plan-scraper/internal/id/uuid"
	"github.com/JakeFAU/lto-plan-scraper/internal/metrics"
	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
	"github.com/JakeFAU/lto-plan-scraper/internal/policy/ratelimit"
	"github.com/JakeFAU/lto-plan-scraper/internal/progress"
	"github.com/JakeFAU/lto-plan-scraper/internal/progress/sinks"
	"github.com/JakeFAU/lto-plan-scraper/internal/progress/spinner"
	collyprobe "github.com/JakeFAU/lto-plan-scraper/internal/source/colly"
	"github.com/JakeFAU/lto-plan-scraper/internal/source/detector"
	"github.com/JakeFAU/lto-plan-scraper/internal/source/headless"
	"github.com/JakeFAU/lto-plan-scraper/internal/storage"
	"github.com/JakeFAU/lto-plan-scraper/internal/storage/gcs"
	"github.com/JakeFAU/lto-plan-scraper/internal/storage/local"
	"github.com/JakeFAU/lto-plan-scraper/internal/storage/memory"
	"github.com/JakeFAU/lto-plan-scraper/internal/storage/postgres"
	"github.com/JakeFAU/lto-plan-scraper/internal/store"
	"github.com/JakeFAU/lto-plan-scraper/internal/telemetry"
)

// ErrSiteDown is returned by CheckSite when the registry is not serving
// searches.
var ErrSiteDown = errors.New("site is down")

// SiteDownMessage is shown to the operator when the availability check fails.
const SiteDownMessage = "Site is down for scheduled maintenance"

// Prober checks whether the registry is serving.
type Prober interface {
	Check(ctx context.Context) (collyprobe.Status, error)
	URL() string
}

// Options overrides services New would otherwise build from config.
// Zero values select the production implementation.
type Options struct {
	// Out receives the interactive spinner. Defaults to os.Stderr.
	Out       io.Writer
	Source    plan.Source
	Prober    Prober
	BlobStore storage.BlobStore
	Reporter  progress.Reporter
	Clock     aggregate.Clock
	IDs       aggregate.IDGenerator
}

// App holds all the shared, long-lived services for one CLI invocation.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry

	source       plan.Source
	closeSource  func()
	tracer       *sdktrace.TracerProvider
	prober       Prober
	blobs        storage.BlobStore
	closeBlobs   func() error
	db           *postgres.Store
	hub          *progress.Hub
	reporter     progress.Reporter
	stopReporter func() error
	clock        aggregate.Clock
	ids          aggregate.IDGenerator

	stopServer context.CancelFunc
	serverDone chan error
}

// New creates and initializes an App from cfg. It fails fast if any
// configured service cannot be initialized, releasing whatever it had
// already built.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (a *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a = &App{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		clock:    opts.Clock,
		ids:      opts.IDs,
	}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
			a = nil
		}
	}()
	if a.clock == nil {
		a.clock = system.New()
	}
	if a.ids == nil {
		a.ids = iduuid.NewGenerator()
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err = a.initSource(ctx, opts); err != nil {
		return a, err
	}
	if err = a.initBlobStore(ctx, opts); err != nil {
		return a, err
	}
	if err = a.initDatabase(ctx); err != nil {
		return a, err
	}
	if err = a.initProgress(opts); err != nil {
		return a, err
	}
	if err = a.initServer(ctx); err != nil {
		return a, err
	}
	logger.Debug("application services initialized",
		zap.String("base_url", cfg.Source.BaseURL),
		zap.Bool("db", a.db != nil),
		zap.String("metrics_addr", cfg.Metrics.Addr),
	)
	return a, nil
}

func (a *App) initSource(ctx context.Context, opts Options) error {
	a.prober = opts.Prober
	if a.prober == nil {
		a.prober = collyprobe.New(collyprobe.Config{
			BaseURL:   a.cfg.Source.BaseURL,
			UserAgent: a.cfg.Source.UserAgent,
			Timeout:   a.cfg.Source.ProbeTimeout(),
		}, detector.NewMaintenance(nil, nil))
	}
	if opts.Source != nil {
		a.source = opts.Source
		return a.initTracing(ctx)
	}
	throttleMetrics, err := metrics.NewThrottle(a.registry)
	if err != nil {
		return fmt.Errorf("init throttle metrics: %w", err)
	}
	throttle := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: a.cfg.Source.RequestsPerSecond,
		Burst:             a.cfg.Source.Burst,
		OnDelay: func(host string, waited time.Duration) {
			throttleMetrics.ObserveDelay(host, waited)
			a.logger.Debug("navigation throttled", zap.String("host", host), zap.Duration("waited", waited))
		},
	})
	src, err := headless.New(headless.Config{
		BaseURL:           a.cfg.Source.BaseURL,
		UserAgent:         a.cfg.Source.UserAgent,
		NavigationTimeout: a.cfg.Source.NavTimeout(),
		ShowBrowser:       !a.cfg.Source.Headless,
		Throttle:          throttle,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("init browser source: %w", err)
	}
	a.source = src
	a.closeSource = src.Close
	return a.initTracing(ctx)
}

func (a *App) initTracing(ctx context.Context) error {
	if !a.cfg.Tracing.Enabled {
		return nil
	}
	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: a.cfg.Tracing.ServiceName,
		ProjectID:   a.cfg.Tracing.ProjectID,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.tracer = tp
	a.source = telemetry.WrapSource(a.source, telemetry.Tracer(tp))
	return nil
}

func (a *App) initBlobStore(ctx context.Context, opts Options) error {
	if opts.BlobStore != nil {
		a.blobs = opts.BlobStore
		return nil
	}
	if a.cfg.Export.DryRun {
		a.logger.Info("dry run: exports are kept in memory")
		a.blobs = memory.NewBlobStore()
		return nil
	}
	if bucket := a.cfg.Export.GCSBucket; bucket != "" {
		a.logger.Info("using GCS export storage", zap.String("bucket", bucket))
		bs, err := gcs.Open(ctx, gcs.Config{Bucket: bucket})
		if err != nil {
			return fmt.Errorf("init gcs storage: %w", err)
		}
		a.blobs = bs
		a.closeBlobs = bs.Close
		return nil
	}
	bs, err := local.New(local.Config{BaseDir: a.cfg.Export.Dir})
	if err != nil {
		return fmt.Errorf("init local storage: %w", err)
	}
	a.blobs = bs
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	if a.cfg.DB.DSN == "" {
		return nil
	}
	db, err := postgres.New(ctx, postgres.Config{
		DSN:          a.cfg.DB.DSN,
		RunsTable:    a.cfg.DB.RunsTable,
		RecordsTable: a.cfg.DB.RecordsTable,
		MaxConns:     a.cfg.DB.MaxConns,
		MergePolicy:  a.cfg.Sweep.MergePolicy,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.db = db
	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (a *App) initProgress(opts Options) error {
	promSink, err := sinks.NewPrometheusSink(a.registry)
	if err != nil {
		return fmt.Errorf("init progress metrics: %w", err)
	}
	sinkList := []progress.Sink{sinks.NewLogSink(a.logger), promSink}
	if a.db != nil {
		sinkList = append(sinkList, sinks.NewStoreSink(a.db, a.logger))
	}
	a.hub = progress.NewHub(progress.Config{
		BufferSize:     a.cfg.Progress.BufferSize,
		MaxBatchEvents: a.cfg.Progress.MaxBatchEvents,
		MaxBatchWait:   a.cfg.Progress.MaxBatchWait(),
		SinkTimeout:    a.cfg.Progress.SinkTimeout(),
		Logger:         a.logger,
	}, sinkList...)

	if opts.Reporter != nil {
		a.reporter = opts.Reporter
		return nil
	}
	switch a.cfg.Progress.Mode {
	case config.ProgressSpinner:
		out := opts.Out
		if out == nil {
			out = os.Stderr
		}
		spin := spinner.New(out, "")
		a.reporter = spin
		a.stopReporter = spin.Stop
	case config.ProgressLog:
		a.reporter = progress.NewLogReporter(a.logger)
	default:
		a.reporter = progress.Nop{}
	}
	return nil
}

func (a *App) initServer(ctx context.Context) error {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return nil
	}
	var runs store.RunRepository
	if a.db != nil {
		runs = a.db
	}
	srv, err := api.NewServer(a.registry, runs, a.logger)
	if err != nil {
		return fmt.Errorf("init ops server: %w", err)
	}
	serverCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopServer = cancel
	a.serverDone = make(chan error, 1)
	go func() {
		a.serverDone <- srv.ListenAndServe(serverCtx, addr)
	}()
	return nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Reporter returns the operator-facing progress reporter.
func (a *App) Reporter() progress.Reporter { return a.reporter }

// Clock returns the clock used for timestamps and filenames.
func (a *App) Clock() aggregate.Clock { return a.clock }

// Registry returns the Prometheus registry backing /metrics.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// CheckSite probes the registry. When it is down the operator is told via
// the reporter and the returned error wraps ErrSiteDown.
func (a *App) CheckSite(ctx context.Context) (collyprobe.Status, error) {
	status, err := a.prober.Check(ctx)
	if err != nil {
		return status, fmt.Errorf("check %s: %w", a.prober.URL(), err)
	}
	if !status.Up {
		a.reporter.Fail(SiteDownMessage)
		a.logger.Warn("registry unavailable",
			zap.String("url", status.URL),
			zap.Int("status", status.StatusCode),
			zap.String("reason", status.Reason),
		)
		return status, fmt.Errorf("%w: %s", ErrSiteDown, status.Reason)
	}
	return status, nil
}

// Fetcher builds a single-query fetcher. withLot keeps the lot column.
func (a *App) Fetcher(withLot bool) (*aggregate.Fetcher, error) {
	policy, err := aggregate.ParseMergePolicy(a.cfg.Sweep.MergePolicy)
	if err != nil {
		return nil, err
	}
	return aggregate.NewFetcher(a.source, a.reporter, a.hub, a.clock, a.logger, aggregate.FetchOptions{
		IncludeLot: withLot,
		Policy:     policy,
	}), nil
}

// Aggregator builds a sweep aggregator from the sweep config.
func (a *App) Aggregator() (*aggregate.Aggregator, error) {
	fetcher, err := a.Fetcher(a.cfg.Sweep.IncludeLot)
	if err != nil {
		return nil, err
	}
	return aggregate.NewAggregator(fetcher, a.reporter, a.hub, a.clock, a.ids, a.logger, aggregate.SweepConfig{
		DedupAcrossCells: a.cfg.Sweep.DedupAcrossCells,
	}), nil
}

// Exporter builds an exporter writing to the configured storage.
func (a *App) Exporter(withLot bool) (*export.Exporter, error) {
	format, err := export.ParseFormat(a.cfg.Export.Format)
	if err != nil {
		return nil, err
	}
	return export.NewExporter(a.blobs, format, withLot, a.cfg.Export.Prefix, a.logger)
}

// Persist upserts sweep records when a database is configured. Records are
// folded through the configured merge policy first, so a deposit observed in
// several cells is written once with the surviving record.
func (a *App) Persist(ctx context.Context, res aggregate.SweepResult) error {
	if a.db == nil || len(res.Records) == 0 {
		return nil
	}
	policy, err := aggregate.ParseMergePolicy(a.cfg.Sweep.MergePolicy)
	if err != nil {
		return err
	}
	acc := aggregate.NewAccumulator(policy)
	for _, rec := range res.Records {
		acc.Fold(rec)
	}
	started := res.StartedAt
	if started.IsZero() {
		started = a.clock.Now()
	}
	run := store.RunRef{ID: res.RunID, LotNumber: res.LotNumber, StartedAt: started}
	n, err := a.db.UpsertRecords(ctx, run, acc.Values())
	if err != nil {
		return fmt.Errorf("persist records: %w", err)
	}
	a.logger.Info("records persisted",
		zap.String("run_id", res.RunID.String()),
		zap.Int("deposits", acc.Len()),
		zap.Int("rows", n),
	)
	return nil
}

// Close gracefully shuts down all services. Progress events are flushed
// before the database they may be written to is closed.
func (a *App) Close(ctx context.Context) {
	if a.stopServer != nil {
		a.stopServer()
		if err := <-a.serverDone; err != nil {
			a.logger.Warn("ops server stopped with error", zap.Error(err))
		}
	}
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil {
			a.logger.Warn("error closing progress hub", zap.Error(err))
		}
	}
	if a.stopReporter != nil {
		if err := a.stopReporter(); err != nil {
			a.logger.Warn("error stopping spinner", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("error flushing traces", zap.Error(err))
		}
	}
	if a.closeSource != nil {
		a.closeSource()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.closeBlobs != nil {
		if err := a.closeBlobs(); err != nil {
			a.logger.Warn("error closing blob store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
