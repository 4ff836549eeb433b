package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, start time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, start.Format("20060102_150405")),
	)
}

// StationContext returns a ContextProvider adding the session name and
// frame number to every record.
func StationContext(session func() string, frame func() uint64) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{
			slog.String("session", session()),
			slog.Uint64("frame", frame()),
		}
	}
}
