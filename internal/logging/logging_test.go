package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name     string
		logsDir  string
		baseName string
		want     string
	}{
		{
			name:     "basic path",
			logsDir:  "dockyard-logs",
			baseName: "dockyard",
			want:     filepath.Join("dockyard-logs", "dockyard.20260212_213836.log"),
		},
		{
			name:     "relative path with dot",
			logsDir:  "./dockyard-logs",
			baseName: "dockyard",
			want:     filepath.Join(".", "dockyard-logs", "dockyard.20260212_213836.log"),
		},
		{
			name:     "absolute path",
			logsDir:  filepath.Join("/var", "log", "dockyard"),
			baseName: "dockyard",
			want:     filepath.Join("/var", "log", "dockyard", "dockyard.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.baseName, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStationContext(t *testing.T) {
	attrs := StationContext(func() string { return "S" }, func() uint64 { return 7 })()

	assert.Len(t, attrs, 2)
	assert.Equal(t, "S", attrs[0].Value.String())
	assert.Equal(t, uint64(7), attrs[1].Value.Uint64())
}
