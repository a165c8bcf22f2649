// Package logger owns memctl's process-wide slog logger. Output is discarded
// until Init enables a daily JSON file under the log directory.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// L is the process logger. It discards everything until Init enables it.
var L = discard()

const (
	logPrefix     = "memctl-"
	logSuffix     = ".log"
	dayLayout     = "2006-01-02"
	retentionDays = 30
)

var (
	mu   sync.Mutex
	file *os.File
)

// Options configures Init.
type Options struct {
	Enabled bool       // false discards all output
	LogDir  string     // Default: ~/.memctl/logs
	Level   slog.Level // Minimum level written
	Now     func() time.Time
}

// Init points L at today's log file, or at nothing when logging is
// disabled. A file opened by an earlier Init is closed. The returned path is
// empty when disabled.
func Init(opts Options) (string, error) {
	mu.Lock()
	defer mu.Unlock()

	closeFile()
	if !opts.Enabled {
		L = discard()
		return "", nil
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	dir := opts.LogDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".memctl", "logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	t := now()
	cleanOldLogs(dir, t)

	path := filepath.Join(dir, fileName(t))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		L = discard()
		return "", err
	}
	file = f

	// One session per process; the pid tells interleaved runs apart.
	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level})).
		With("session", strconv.Itoa(os.Getpid()))
	return path, nil
}

// Close flushes and closes the log file and resets L to discard.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	L = discard()
	return closeFile()
}

// Scenario returns L tagged with the scenario being run, for handing to
// allocators and the script runner.
func Scenario(name string) *slog.Logger {
	return L.With("scenario", name)
}

// ParseLevel maps debug, info, warn and error (any case) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func closeFile() error {
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

func fileName(t time.Time) string { return logPrefix + t.Format(dayLayout) + logSuffix }

// cleanOldLogs deletes memctl-YYYY-MM-DD.log files dated before the
// retention window. Other files are left alone.
func cleanOldLogs(dir string, now time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	for _, e := range entries {
		name := e.Name()
		day, ok := strings.CutPrefix(name, logPrefix)
		if !ok {
			continue
		}
		day, ok = strings.CutSuffix(day, logSuffix)
		if !ok {
			continue
		}
		logged, err := time.Parse(dayLayout, day)
		if err != nil || !logged.Before(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(dir, name))
	}
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
