// Package monitor samples station and journal health on an interval and
// forwards it to InfluxDB and a status file.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/OCAP2/dockyard/internal/model"
	"github.com/OCAP2/dockyard/internal/station"
)

// DefaultInterval is how often a report is taken when none is configured.
const DefaultInterval = time.Second

// StatsSource is satisfied by *station.Station.
type StatsSource interface {
	Snapshot() *station.Snapshot
}

// JournalStats is implemented by the GORM-backed journal backends.
type JournalStats interface {
	QueueLengths() model.QueueLengths
	LastWriteDuration() time.Duration
}

// PointWriter is satisfied by *influx.Manager.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Station           StatsSource
	Journal           JournalStats // optional
	Influx            PointWriter  // optional
	StationBucket     string
	PerformanceBucket string
	StatusPath        string // optional
	Interval          time.Duration
	Logger            *slog.Logger
}

// Report is one health sample.
type Report struct {
	Time                time.Time           `json:"time"`
	Session             string              `json:"session"`
	Frame               uint64              `json:"frame"`
	Stats               station.Stats       `json:"stats"`
	Launching           bool                `json:"launching"`
	QueueLengths        *model.QueueLengths `json:"queueLengths,omitempty"`
	LastWriteDurationMs float32             `json:"lastWriteDurationMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Report takes a sample from the latest station snapshot.
func (s *Service) Report(now time.Time) Report {
	snap := s.deps.Station.Snapshot()
	r := Report{
		Time:      now,
		Session:   snap.Session,
		Frame:     snap.Frame,
		Stats:     snap.Stats,
		Launching: snap.Launching,
	}
	if s.deps.Journal != nil {
		q := s.deps.Journal.QueueLengths()
		r.QueueLengths = &q
		r.LastWriteDurationMs = float32(s.deps.Journal.LastWriteDuration().Microseconds()) / 1000
	}
	return r
}

// Points converts a report into line-protocol points keyed by bucket.
func (s *Service) Points(r Report) map[string][]*influxdb2_write.Point {
	tags := map[string]string{"session": r.Session}

	out := map[string][]*influxdb2_write.Point{
		s.deps.StationBucket: {
			influxdb2_write.NewPoint("station", tags, map[string]any{
				"nodes":     r.Stats.Nodes,
				"links":     r.Stats.Links,
				"en_route":  r.Stats.EnRoute,
				"frame":     int64(r.Frame),
				"launching": r.Launching,
			}, r.Time),
		},
	}
	if r.QueueLengths != nil {
		q := r.QueueLengths
		out[s.deps.PerformanceBucket] = []*influxdb2_write.Point{
			influxdb2_write.NewPoint("journal", tags, map[string]any{
				"module_events":          q.ModuleEvents,
				"approach_samples":       q.ApproachSamples,
				"approach_tracks":        q.ApproachTracks,
				"topology":               q.Topology,
				"notifications":          q.Notifications,
				"last_write_duration_ms": r.LastWriteDurationMs,
			}, r.Time),
		}
	}
	return out
}

// Sample takes one report and forwards it. Errors are logged, not returned.
func (s *Service) Sample(now time.Time, statusFile *os.File) Report {
	r := s.Report(now)

	if s.deps.Influx != nil {
		for bucket, points := range s.Points(r) {
			for _, p := range points {
				if err := s.deps.Influx.WritePoint(bucket, p); err != nil {
					s.deps.Logger.Error("Error writing telemetry point", "bucket", bucket, "error", err)
				}
			}
		}
	}

	if statusFile != nil {
		if err := writeStatus(statusFile, r); err != nil {
			s.deps.Logger.Error("Error writing status file", "error", err)
		}
	}
	return r
}

func writeStatus(f *os.File, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt(append(data, '\n'), 0); err != nil {
		return err
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	var statusFile *os.File
	if s.deps.StatusPath != "" {
		f, err := os.Create(s.deps.StatusPath)
		if err != nil {
			return fmt.Errorf("error creating status file: %w", err)
		}
		statusFile = f
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(statusFile, s.stopChan, s.done)
	return nil
}

func (s *Service) run(statusFile *os.File, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if statusFile != nil {
			statusFile.Close()
		}
	}()

	s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.Sample(now, statusFile)
		}
	}
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
}
