package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/erp/salesreport/internal/application/report"
	"github.com/erp/salesreport/internal/infrastructure/config"
	"github.com/erp/salesreport/internal/infrastructure/export"
	"github.com/erp/salesreport/internal/infrastructure/magento"
	"github.com/erp/salesreport/internal/infrastructure/persistence"
	"github.com/erp/salesreport/internal/infrastructure/storage"
	"github.com/erp/salesreport/internal/infrastructure/telemetry"
	"github.com/erp/salesreport/internal/interfaces/http/handler"
	"github.com/erp/salesreport/internal/interfaces/http/middleware"
	"github.com/erp/salesreport/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// telemetryStack holds the OpenTelemetry providers of the process
type telemetryStack struct {
	tracer  *telemetry.TracerProvider
	meter   *telemetry.MeterProvider
	logs    *telemetry.LoggerProvider
	metrics *telemetry.ReportMetrics
	logger  *zap.Logger
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryStack, error) {
	tcfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}

	tp, err := telemetry.NewTracerProvider(ctx, tcfg, log)
	if err != nil {
		return nil, err
	}
	mp, err := telemetry.NewMeterProvider(ctx, tcfg, log)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	lp, err := telemetry.NewLoggerProvider(ctx, tcfg, log)
	if err != nil {
		_ = mp.Shutdown(ctx)
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	metrics, err := telemetry.NewReportMetrics(mp.Meter("salesreport"))
	if err != nil {
		_ = lp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	return &telemetryStack{
		tracer:  tp,
		meter:   mp,
		logs:    lp,
		metrics: metrics,
		logger:  lp.Bridge(log, "salesreport", zapcore.InfoLevel),
	}, nil
}

func (t *telemetryStack) shutdown(ctx context.Context) {
	_ = t.logs.Shutdown(ctx)
	_ = t.meter.Shutdown(ctx)
	_ = t.tracer.Shutdown(ctx)
}

func magentoConfig(c config.MagentoConfig) *magento.Config {
	return &magento.Config{
		BaseURL:           c.BaseURL,
		StoreCode:         c.StoreCode,
		ConsumerKey:       c.ConsumerKey,
		ConsumerSecret:    c.ConsumerSecret,
		AccessToken:       c.AccessToken,
		AccessTokenSecret: c.AccessTokenSecret,
		BasicUser:         c.BasicUser,
		BasicPassword:     c.BasicPassword,
		AllowBasicAuth:    c.AllowBasicAuth,
		Timeout:           c.Timeout,
		MaxAttempts:       c.MaxAttempts,
		InitialBackoff:    c.InitialBackoff,
		MaxBackoff:        c.MaxBackoff,
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// newReportService wires the Magento client and, when withSinks is set, the
// configured sinks. A configuration error is returned before any network call.
func newReportService(ctx context.Context, cfg *config.Config, tel *telemetryStack, log *zap.Logger, withSinks bool) (*report.Service, func(), error) {
	client, err := magento.New(magentoConfig(cfg.Magento),
		magento.WithLogger(log),
		magento.WithObserver(tel.metrics),
	)
	if err != nil {
		return nil, nil, err
	}

	opts := []report.ServiceOption{report.WithRunObserver(tel.metrics)}
	cleanup := func() {}
	if withSinks {
		sinks, closeSinks, err := buildSinks(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, report.WithSinks(sinks...))
		cleanup = closeSinks
	}

	svc := report.NewService(client, report.Config{
		PageSize: cfg.Report.PageSize,
		MaxPages: cfg.Report.MaxPages,
	}, log, opts...)
	return svc, cleanup, nil
}

// buildSinks creates the sinks in configuration order.
func buildSinks(ctx context.Context, cfg *config.Config, log *zap.Logger) ([]report.Sink, func(), error) {
	delimiter, err := export.ParseDelimiter(cfg.Report.Delimiter)
	if err != nil {
		return nil, nil, err
	}

	var (
		sinks   []report.Sink
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, name := range cfg.Report.Sinks {
		switch name {
		case config.SinkCSV:
			sink, err := export.NewCSVSink(
				export.WithDirectory(cfg.Report.Directory),
				export.WithDelimiter(delimiter),
				export.WithLogger(log),
			)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			sinks = append(sinks, sink)

		case config.SinkPostgres:
			db, err := persistence.NewDatabase(&cfg.Database,
				persistence.WithLogger(log),
				persistence.WithTracing(telemetry.DBTracingConfig{
					Enabled:    cfg.Telemetry.DBTraceEnabled,
					LogFullSQL: cfg.Telemetry.DBLogFullSQL,
					DBName:     cfg.Database.DBName,
				}),
			)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("connect to database: %w", err)
			}
			closers = append(closers, func() {
				if err := db.Close(); err != nil {
					log.Error("Error closing database", zap.Error(err))
				}
			})
			if err := db.Migrate(ctx); err != nil {
				cleanup()
				return nil, nil, err
			}
			sinks = append(sinks, persistence.NewDatabaseSink(persistence.NewSalesRowRepository(db.DB), log))

		case config.SinkS3:
			sink, err := storage.NewS3Sink(ctx, &cfg.Storage,
				storage.WithLogger(log),
				storage.WithDelimiter(delimiter),
			)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			if err := sink.EnsureBucket(ctx); err != nil {
				cleanup()
				return nil, nil, err
			}
			sinks = append(sinks, sink)
		}
	}
	return sinks, cleanup, nil
}

// serve runs the HTTP query surface until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, tel *telemetryStack, log *zap.Logger) int {
	loc, err := cfg.Location()
	if err != nil {
		log.Error("Invalid timezone", zap.Error(err))
		return exitError
	}
	delimiter, err := export.ParseDelimiter(cfg.Report.Delimiter)
	if err != nil {
		log.Error("Invalid delimiter", zap.Error(err))
		return exitError
	}

	handlerOpts := []handler.ReportHandlerOption{
		handler.WithDelimiter(delimiter),
		handler.WithTimeout(cfg.HTTP.WriteTimeout),
	}
	var builder handler.ReportBuilder
	svc, _, err := newReportService(ctx, cfg, tel, log, false)
	if err != nil {
		// keep serving /health; report routes answer NOT_CONFIGURED
		log.Warn("Magento connection is not configured", zap.Error(err))
		handlerOpts = append(handlerOpts, handler.WithConfigError(err))
	} else {
		builder = svc
	}

	mode := gin.DebugMode
	if cfg.IsProduction() {
		mode = gin.ReleaseMode
	}
	engine := router.NewEngine(router.EngineConfig{
		Mode: mode,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
	}, log)

	systemHandler := handler.NewSystemHandler(version, builder != nil)
	engine.GET("/health", systemHandler.Health)
	router.NewRouter(engine).
		Register(handler.NewReportHandler(builder, loc, handlerOpts...)).
		Register(systemHandler).
		Setup()

	srv := &http.Server{
		Addr:           cfg.HTTP.Addr,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("Failed to start server", zap.Error(err))
			return exitError
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return exitError
	}

	log.Info("Server exited gracefully")
	return exitOK
}
