package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName is the instrumentation scope of the OTel log bridge.
const ServiceName = "dockyard"

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger
	level  slog.LevelVar

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	context ContextProvider
	gelf    io.Writer
	console io.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{console: os.Stdout}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetContext registers a provider whose attributes are added to every record.
// Call before Setup.
func (m *SlogManager) SetContext(p ContextProvider) {
	m.context = p
}

// EnableGraylog sends JSON records to a GELF UDP endpoint. Call before Setup.
func (m *SlogManager) EnableGraylog(addr string) error {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return fmt.Errorf("failed to create GELF writer: %w", err)
	}
	m.gelf = w
	return nil
}

// Setup initializes the logging system. Records go to file when given,
// to stdout otherwise, plus the OTel provider and Graylog when configured.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	m.level.Set(parseLevel(level))
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: &m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(m.console, handlerOpts))
	}

	if m.gelf != nil {
		handlers = append(handlers, slog.NewJSONHandler(m.gelf, handlerOpts))
	}

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider)))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if m.context != nil {
		h = NewContextHandler(h, m.context)
	}

	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", m.level.Level().String())
}

// SetLevel changes the minimum level of the file, console and Graylog handlers.
func (m *SlogManager) SetLevel(level string) {
	lvl := parseLevel(level)
	if lvl == m.level.Level() {
		return
	}
	m.level.Set(lvl)
	m.Logger().Info("Log level changed", "level", lvl.String())
}

// Level returns the current minimum level.
func (m *SlogManager) Level() slog.Level {
	return m.level.Level()
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// Close releases the Graylog connection.
func (m *SlogManager) Close() error {
	if c, ok := m.gelf.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
