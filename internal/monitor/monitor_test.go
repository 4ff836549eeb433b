package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dockyard/internal/model"
	"github.com/OCAP2/dockyard/internal/station"
)

type fakeStation struct {
	snap *station.Snapshot
}

func (f fakeStation) Snapshot() *station.Snapshot { return f.snap }

type fakeJournal struct{}

func (fakeJournal) QueueLengths() model.QueueLengths {
	return model.QueueLengths{ModuleEvents: 2, ApproachSamples: 7}
}

func (fakeJournal) LastWriteDuration() time.Duration { return 1500 * time.Microsecond }

type recordingWriter struct {
	mu     sync.Mutex
	points map[string][]*influxdb2_write.Point
}

func (w *recordingWriter) WritePoint(bucket string, p *influxdb2_write.Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.points == nil {
		w.points = make(map[string][]*influxdb2_write.Point)
	}
	w.points[bucket] = append(w.points[bucket], p)
	return nil
}

func (w *recordingWriter) count(bucket string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.points[bucket])
}

func testSnapshot() *station.Snapshot {
	return &station.Snapshot{
		Frame:     120,
		Session:   "alpha",
		Launching: true,
		Stats:     station.Stats{Nodes: 3, Links: 2, EnRoute: 1},
	}
}

func TestReport(t *testing.T) {
	s := NewService(Dependencies{Station: fakeStation{testSnapshot()}, Journal: fakeJournal{}})
	now := time.Unix(100, 0)

	r := s.Report(now)
	assert.Equal(t, now, r.Time)
	assert.Equal(t, "alpha", r.Session)
	assert.Equal(t, uint64(120), r.Frame)
	assert.Equal(t, station.Stats{Nodes: 3, Links: 2, EnRoute: 1}, r.Stats)
	assert.True(t, r.Launching)
	require.NotNil(t, r.QueueLengths)
	assert.Equal(t, 7, r.QueueLengths.ApproachSamples)
	assert.InDelta(t, 1.5, r.LastWriteDurationMs, 1e-6)
}

func TestReport_NoJournal(t *testing.T) {
	s := NewService(Dependencies{Station: fakeStation{testSnapshot()}})
	r := s.Report(time.Now())
	assert.Nil(t, r.QueueLengths)
	assert.Zero(t, r.LastWriteDurationMs)
}

func TestPoints(t *testing.T) {
	s := NewService(Dependencies{
		Station:           fakeStation{testSnapshot()},
		Journal:           fakeJournal{},
		StationBucket:     "station",
		PerformanceBucket: "perf",
	})
	points := s.Points(s.Report(time.Unix(0, 7)))

	require.Len(t, points["station"], 1)
	line := influxdb2_write.PointToLineProtocol(points["station"][0], time.Nanosecond)
	assert.Contains(t, line, "station,session=alpha ")
	assert.Contains(t, line, "nodes=3i")
	assert.Contains(t, line, "en_route=1i")
	assert.Contains(t, line, "launching=true")

	require.Len(t, points["perf"], 1)
	assert.Equal(t, "journal", points["perf"][0].Name())
}

func TestSample_WritesInfluxAndStatus(t *testing.T) {
	w := &recordingWriter{}
	path := filepath.Join(t.TempDir(), "status.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	s := NewService(Dependencies{
		Station:           fakeStation{testSnapshot()},
		Journal:           fakeJournal{},
		Influx:            w,
		StationBucket:     "station",
		PerformanceBucket: "perf",
	})
	s.Sample(time.Now(), f)
	s.Sample(time.Now(), f)

	assert.Equal(t, 2, w.count("station"))
	assert.Equal(t, 2, w.count("perf"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "alpha", got.Session)
	assert.Equal(t, 3, got.Stats.Nodes)
}

func TestStartStop(t *testing.T) {
	w := &recordingWriter{}
	s := NewService(Dependencies{
		Station:       fakeStation{testSnapshot()},
		Influx:        w,
		StationBucket: "station",
		StatusPath:    filepath.Join(t.TempDir(), "status.json"),
		Interval:      5 * time.Millisecond,
	})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return w.count("station") > 0 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestStart_BadStatusPath(t *testing.T) {
	s := NewService(Dependencies{
		Station:    fakeStation{testSnapshot()},
		StatusPath: filepath.Join(t.TempDir(), "missing", "status.json"),
	})
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
}
