// Package influx writes station telemetry to InfluxDB. When the server
// cannot be reached, points are appended as line protocol to a gzip
// backup file instead.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/OCAP2/dockyard/internal/config"
)

// PerformanceBucket receives journal writer health.
const PerformanceBucket = "dockyard_performance"

// retention applied to buckets we create
const retentionSeconds = 60 * 60 * 24 * 90

var (
	ErrDisabled      = errors.New("influx is disabled")
	ErrNotConnected  = errors.New("influx client not initialized and backup writer not available")
	ErrUnknownBucket = errors.New("influx bucket not registered")
)

// Manager handles InfluxDB connections and writes.
type Manager struct {
	mu           sync.Mutex
	cfg          config.InfluxConfig
	client       influxdb2.Client
	writers      map[string]influxdb2_api.WriteAPI
	backupFile   *os.File
	backupWriter *gzip.Writer
	valid        bool
	bucketNames  []string
	logger       zerolog.Logger
	backupPath   string
}

// NewManager creates a new InfluxDB manager. cfg.Bucket holds station
// telemetry; PerformanceBucket is always registered alongside it.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	buckets := []string{PerformanceBucket}
	if cfg.Bucket != "" && cfg.Bucket != PerformanceBucket {
		buckets = append([]string{cfg.Bucket}, buckets...)
	}
	return &Manager{
		cfg:         cfg,
		writers:     make(map[string]influxdb2_api.WriteAPI),
		bucketNames: buckets,
		logger:      log,
		backupPath:  backupPath,
	}
}

// StationBucket is the bucket for station telemetry.
func (m *Manager) StationBucket() string {
	return m.bucketNames[0]
}

// Buckets lists the registered bucket names.
func (m *Manager) Buckets() []string {
	return append([]string(nil), m.bucketNames...)
}

// Valid reports whether points go to the server rather than the backup file.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// Connect establishes a connection to InfluxDB, falling back to the
// backup file when the server does not answer a ping.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	m.valid = err == nil && running

	if !m.valid {
		m.logger.Warn().Err(err).Str("backupPath", m.backupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.createWriters()
	m.logger.Info().Strs("buckets", m.bucketNames).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.backupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()

	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("create organization %s: %w", m.cfg.Org, err)
		}
	}

	for _, bucket := range m.bucketNames {
		if _, err := m.client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (m *Manager) createWriters() {
	for _, bucket := range m.bucketNames {
		w := m.client.WriteAPI(m.cfg.Org, bucket)
		m.writers[bucket] = w

		go func(bucket string, errs <-chan error) {
			for err := range errs {
				m.logger.Error().Err(err).Str("bucket", bucket).Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.backupWriter == nil {
		return ErrNotConnected
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backupWriter.Write([]byte(strings.TrimRight(line, "\n") + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.writers {
		w.Flush()
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.valid = false

	var errs []error
	if m.backupWriter != nil {
		errs = append(errs, m.backupWriter.Close())
		m.backupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}
