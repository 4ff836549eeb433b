package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/OCAP2/dockyard/internal/blob"
	"github.com/OCAP2/dockyard/internal/config"
	"github.com/OCAP2/dockyard/internal/dispatcher"
	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/internal/influx"
	"github.com/OCAP2/dockyard/internal/logging"
	"github.com/OCAP2/dockyard/internal/monitor"
	"github.com/OCAP2/dockyard/internal/notify"
	"github.com/OCAP2/dockyard/internal/otel"
	"github.com/OCAP2/dockyard/internal/session"
	"github.com/OCAP2/dockyard/internal/station"
	"github.com/OCAP2/dockyard/internal/storage"
	"github.com/OCAP2/dockyard/internal/worker"
)

// app holds everything a running station needs, in shutdown order.
type app struct {
	start time.Time

	logs     *logging.SlogManager
	logFile  *os.File
	otelFile *os.File
	otel     *otel.Provider
	log      *slog.Logger

	session     *session.Context
	backend     storage.Backend
	storageType string
	station     *station.Station
	dispatcher  *dispatcher.Dispatcher
	influx      *influx.Manager
	monitor     *monitor.Service
}

// appOptions switches off parts of the stack for headless runs.
type appOptions struct {
	console   bool // log to stdout instead of a file
	telemetry bool // influx and the status monitor
	storage   string
}

// newApp wires logging, the journal, the station and the command path.
// Call close when done, even after an error.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	a := &app{start: time.Now(), session: session.NewContext()}

	if err := a.setupLogging(opts.console); err != nil {
		return a, err
	}

	stationCfg := config.GetStationConfig()
	storageCfg := config.GetStorageConfig()
	if opts.storage != "" {
		storageCfg.Type = opts.storage
	}

	backend, err := createStorageBackend(storageCfg, stationCfg.Name, a.start, a.log)
	if err != nil {
		return a, err
	}
	if err := backend.Init(); err != nil {
		return a, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	a.backend = backend
	a.storageType = storageCfg.Type

	sess := a.session.Start(stationCfg.Name, stationCfg.FrameRate, Version)
	if err := backend.StartSession(&sess); err != nil {
		a.log.Error("Failed to journal session start", "error", err)
	} else if sess.ID != 0 {
		a.session.SetID(sess.ID)
	}

	catalog := docking.DefaultCatalog()
	if stationCfg.CatalogFile != "" {
		n, err := catalog.LoadFile(stationCfg.CatalogFile)
		if err != nil {
			return a, fmt.Errorf("failed to load catalog: %w", err)
		}
		a.log.Info("Loaded catalog", "file", stationCfg.CatalogFile, "blueprints", n)
	}

	approachCfg := config.GetApproachConfig()
	a.station, err = station.New(station.Config{
		FrameRate:   stationCfg.FrameRate,
		Substeps:    stationCfg.Substeps,
		SampleEvery: stationCfg.SampleEvery,
		MaxTicks:    approachCfg.MaxTicks,
		TrackEvery:  approachCfg.TrackEvery,
		Seed:        stationCfg.Seed,
	}, station.Dependencies{
		Journal:  backend,
		Notifier: notify.New(a.log),
		Catalog:  catalog,
		Session:  a.session,
		Logger:   a.log,
	})
	if err != nil {
		return a, err
	}

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.log))
	if err != nil {
		return a, err
	}
	worker.NewManager(worker.Dependencies{
		Station: a.station,
		Logger:  a.log,
	}).RegisterHandlers(a.dispatcher)

	if opts.telemetry {
		a.setupTelemetry(ctx, stationCfg)
	}

	config.Watch(func(fsnotify.Event) {
		a.logs.SetLevel(viper.GetString("logLevel"))
	})

	return a, nil
}

func (a *app) setupLogging(console bool) error {
	a.logs = logging.NewSlogManager()
	a.logs.SetContext(logging.StationContext(a.session.Name, a.session.Frame))

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	if viper.GetBool("graylog.enabled") {
		if err := a.logs.EnableGraylog(viper.GetString("graylog.address")); err != nil {
			fmt.Fprintln(os.Stderr, "graylog disabled:", err)
		}
	}

	otelCfg := config.GetOTelConfig()
	providerCfg := otel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: Version,
		BatchTimeout:   otelCfg.BatchTimeout,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	}
	if otelCfg.Enabled {
		f, err := os.Create(logging.LogFilePath(logsDir, "dockyard.otel", a.start))
		if err != nil {
			return fmt.Errorf("failed to create OTel log file: %w", err)
		}
		a.otelFile = f
		providerCfg.LogWriter = f
	}
	provider, err := otel.New(providerCfg)
	if err != nil {
		return fmt.Errorf("failed to start OTel: %w", err)
	}
	a.otel = provider

	if console {
		a.logs.Setup(nil, viper.GetString("logLevel"), provider.LoggerProvider())
	} else {
		f, err := os.Create(logging.LogFilePath(logsDir, "dockyard", a.start))
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		a.logFile = f
		a.logs.Setup(f, viper.GetString("logLevel"), provider.LoggerProvider())
	}
	a.log = a.logs.Logger()
	return nil
}

// setupTelemetry connects influx and starts the status monitor. Failures
// are logged, the station runs without them.
func (a *app) setupTelemetry(ctx context.Context, stationCfg config.StationConfig) {
	logsDir := viper.GetString("logsDir")

	var points monitor.PointWriter
	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		zl := zerolog.New(a.logFileWriter()).With().Timestamp().Str("component", "influx").Logger()
		a.influx = influx.NewManager(influxCfg, zl, filepath.Join(logsDir, "influx_backup.lp.gz"))
		if err := a.influx.Connect(ctx); err != nil {
			a.log.Error("InfluxDB unavailable", "error", err)
		}
		points = a.influx
	}

	deps := monitor.Dependencies{
		Station:       a.station,
		StatusPath:    filepath.Join(logsDir, "status.json"),
		Interval:      stationCfg.Monitor,
		Logger:        a.log,
		StationBucket: influxCfg.Bucket,
	}
	if points != nil {
		deps.Influx = points
		deps.StationBucket = a.influx.StationBucket()
		deps.PerformanceBucket = influx.PerformanceBucket
	}
	if js, ok := a.backend.(monitor.JournalStats); ok {
		deps.Journal = js
	}

	a.monitor = monitor.NewService(deps)
	if err := a.monitor.Start(); err != nil {
		a.log.Error("Failed to start monitor", "error", err)
		a.monitor = nil
	}
}

func (a *app) logFileWriter() *os.File {
	if a.logFile != nil {
		return a.logFile
	}
	return os.Stdout
}

// close shuts everything down in reverse dependency order. It is safe to
// call on a partially built app.
func (a *app) close(ctx context.Context) error {
	var errs []error

	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}

	if a.backend != nil {
		if _, ok := a.session.End(); ok {
			if err := a.backend.EndSession(); err != nil {
				errs = append(errs, fmt.Errorf("end session: %w", err))
			}
		}
		if err := a.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
		a.upload(ctx)
	}

	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close influx: %w", err))
		}
	}

	if a.log != nil {
		a.log.Info("Station shut down", "uptime", time.Since(a.start).Round(time.Second))
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown otel: %w", err))
		}
	}
	if a.logs != nil {
		if err := a.logs.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, f := range []*os.File{a.otelFile, a.logFile} {
		if f != nil {
			_ = f.Close()
		}
	}
	return errors.Join(errs...)
}

// upload archives the exported journal when S3 is enabled.
func (a *app) upload(ctx context.Context) {
	cfg := config.GetS3Config()
	if !cfg.Enabled {
		return
	}
	exp, ok := a.backend.(storage.Uploadable)
	if !ok {
		a.log.Debug("Storage backend has no export to upload")
		return
	}

	uploader, err := blob.New(ctx, cfg)
	if err != nil {
		a.log.Error("Failed to create S3 uploader", "error", err)
		return
	}
	info, err := uploader.UploadExport(ctx, exp)
	if err != nil {
		a.log.Error("Failed to upload journal", "error", err)
		return
	}
	a.log.Info("Uploaded journal", "bucket", cfg.Bucket, "key", info.Key, "size", info.Size)
}
