package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// swapped by tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// Options configures the outputs of a SlogManager.
type Options struct {
	// File receives text logs. When nil, logs go to stdout instead.
	File  io.Writer
	Level string
	// GelfAddress enables shipping JSON records to a Graylog UDP input.
	GelfAddress string
	// Clock adds simulation context to every record.
	Clock ContextProvider
}

// SlogManager manages slog-based logging with optional Graylog output.
type SlogManager struct {
	logger *slog.Logger
	gelf   *gelf.Writer
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. A failing Graylog connection is
// returned as an error but file and console logging stay usable.
func (m *SlogManager) Setup(opts Options) error {
	lvl := parseLevel(opts.Level)
	m.Close()

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
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
	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	var gelfErr error
	if opts.GelfAddress != "" {
		w, err := gelf.NewWriter(opts.GelfAddress)
		if err != nil {
			gelfErr = fmt.Errorf("connecting to graylog %s: %w", opts.GelfAddress, err)
		} else {
			w.Facility = "cargoloop"
			m.gelf = w
			handlers = append(handlers, slog.NewJSONHandler(w, handlerOpts))
		}
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if opts.Clock != nil {
		handler = NewContextHandler(handler, opts.Clock)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", opts.Level, "graylog", m.gelf != nil)
	return gelfErr
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Close releases the Graylog connection if one is open.
func (m *SlogManager) Close() error {
	if m.gelf == nil {
		return nil
	}
	err := m.gelf.Close()
	m.gelf = nil
	return err
}
