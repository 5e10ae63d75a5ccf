// Command salesreport extracts the Magento sales of a date range into a
// flat report (CSV, Postgres or S3) or serves it over HTTP.
//
//	salesreport [flags] [run|serve]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/erp/salesreport/internal/infrastructure/config"
	"github.com/erp/salesreport/internal/infrastructure/export"
	"github.com/erp/salesreport/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	commandRun   = "run"
	commandServe = "serve"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// options are the command line flags. Empty values keep the configuration.
type options struct {
	command   string
	startDate string
	endDate   string
	delimiter string
	outDir    string
	sinks     string
	logLevel  string
	addr      string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}
	if err := applyOverrides(cfg, opts); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	log, err := logger.New(loggerConfig(cfg))
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitError
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize telemetry", zap.Error(err))
		return exitError
	}
	defer tel.shutdown(context.Background())
	log = tel.logger

	log.Info("Starting salesreport",
		zap.String("version", version),
		zap.String("command", opts.command),
		zap.String("env", cfg.App.Env),
		zap.Strings("sinks", cfg.Report.Sinks),
	)

	switch opts.command {
	case commandServe:
		return serve(ctx, cfg, tel, log)
	default:
		return runOnce(ctx, cfg, opts, tel, log)
	}
}

func parseArgs(args []string, output io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("salesreport", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.startDate, "data-inicio", "", "First day of the report, YYYY-MM-DD (default: yesterday)")
	fs.StringVar(&opts.endDate, "data-fim", "", "Last day of the report, YYYY-MM-DD (default: yesterday)")
	fs.StringVar(&opts.delimiter, "sep", "", `CSV delimiter, e.g. "," ";" or "\t" (default ",")`)
	fs.StringVar(&opts.outDir, "out", "", "Directory the CSV is written to (default: reports)")
	fs.StringVar(&opts.sinks, "sinks", "", "Comma separated outputs: csv, postgres, s3 (default: csv)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.addr, "addr", "", "Listen address for serve (default :8080)")
	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: salesreport [flags] [run|serve]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.command = commandRun
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		opts.command = rest[0]
	default:
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(rest[1:], " "))
	}
	if opts.command != commandRun && opts.command != commandServe {
		return nil, fmt.Errorf("unknown command %q (want %s or %s)", opts.command, commandRun, commandServe)
	}
	return opts, nil
}

// loggerConfig starts from the environment's logger preset and applies the
// configured log section over it.
func loggerConfig(cfg *config.Config) *logger.Config {
	lc := logger.DefaultConfig()
	if cfg.IsProduction() {
		lc = logger.ProductionConfig()
	}
	lc.Level = cfg.Log.Level
	lc.Format = cfg.Log.Format
	lc.Output = cfg.Log.Output
	lc.File = cfg.Log.File
	return lc
}

// applyOverrides copies non-empty flags over the loaded configuration.
func applyOverrides(cfg *config.Config, opts *options) error {
	if opts.delimiter != "" {
		if _, err := export.ParseDelimiter(opts.delimiter); err != nil {
			return fmt.Errorf("--sep: %w", err)
		}
		cfg.Report.Delimiter = opts.delimiter
	}
	if opts.outDir != "" {
		cfg.Report.Directory = opts.outDir
	}
	if opts.sinks != "" {
		var sinks []string
		for _, s := range strings.Split(opts.sinks, ",") {
			s = strings.ToLower(strings.TrimSpace(s))
			switch s {
			case "":
				continue
			case config.SinkCSV, config.SinkPostgres, config.SinkS3:
				sinks = append(sinks, s)
			default:
				return fmt.Errorf("--sinks: unknown sink %q", s)
			}
		}
		if len(sinks) == 0 {
			return errors.New("--sinks: at least one sink is required")
		}
		if contains(sinks, config.SinkS3) && cfg.Storage.Bucket == "" {
			return errors.New("--sinks: s3 needs storage.bucket")
		}
		cfg.Report.Sinks = sinks
	}
	if opts.logLevel != "" {
		switch opts.logLevel {
		case "debug", "info", "warn", "error":
			cfg.Log.Level = opts.logLevel
		default:
			return fmt.Errorf("--log-level: unknown level %q", opts.logLevel)
		}
	}
	if opts.addr != "" {
		cfg.HTTP.Addr = opts.addr
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// runOnce builds one report and writes it to the configured sinks.
func runOnce(ctx context.Context, cfg *config.Config, opts *options, tel *telemetryStack, log *zap.Logger) int {
	loc, err := cfg.Location()
	if err != nil {
		log.Error("Invalid timezone", zap.Error(err))
		return exitError
	}
	window, err := sales.NewWindow(opts.startDate, opts.endDate, loc, time.Now())
	if err != nil {
		log.Error("Invalid date range", zap.Error(err))
		return exitUsage
	}

	svc, cleanup, err := newReportService(ctx, cfg, tel, log, true)
	if err != nil {
		log.Error("Failed to set up the report", zap.Error(err))
		return exitError
	}
	defer cleanup()

	log.Info("Generating report",
		zap.String("start_date", window.StartDate()),
		zap.String("end_date", window.EndDate()),
		zap.String("timezone", loc.String()),
	)

	rep, artifacts, err := svc.Run(ctx, window)
	return exitCode(err, log, func() {
		for _, a := range artifacts {
			log.Info("Report saved", zap.String("sink", a.Sink), zap.String("location", a.Location))
		}
		logSummary(log, rep.Stats)
	})
}

// exitCode maps a run result to the process exit status. onSuccess runs
// only for a successful run.
func exitCode(err error, log *zap.Logger, onSuccess func()) int {
	switch {
	case err == nil:
		onSuccess()
		return exitOK
	case sales.IsNothingToDo(err):
		log.Warn("Nothing to report", zap.Error(err))
		return exitOK
	case errors.Is(err, context.Canceled):
		log.Warn("Report cancelled")
		return exitError
	default:
		log.Error("Report failed", zap.Error(err))
		return exitError
	}
}

func logSummary(log *zap.Logger, stats sales.Stats) {
	fields := []zap.Field{
		zap.Int("orders", stats.OrderCount),
		zap.Int("rows", stats.RowCount),
		zap.String("total_sales", sales.FormatMoney(stats.TotalSales)),
		zap.String("paid_sales", sales.FormatMoney(stats.PaidSales)),
		zap.String("processing_sales", sales.FormatMoney(stats.ProcessingSales)),
		zap.String("cancelled_sales", sales.FormatMoney(stats.CancelledSales)),
		zap.String("average_ticket", sales.FormatMoney(stats.AverageTicket)),
	}
	if top := sales.TopN(stats.RevenueByCity, 1); len(top) == 1 {
		fields = append(fields, zap.String("top_city", top[0].Key))
	}
	if top := sales.TopN(stats.RevenueByRegion, 1); len(top) == 1 {
		fields = append(fields, zap.String("top_region", top[0].Key))
	}
	log.Info("Sales summary", fields...)
}
