package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultMaxFileSize = 100 * 1024 * 1024

var numberedFileRe = regexp.MustCompile(`^app-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger is an io.Writer over weekly log files named app-YYYY-Www.log.
// Files that reach maxFileSize continue in app-YYYY-Www_NN.log. Files older
// than the retention period are removed by a daily sweep.
type RotatingLogger struct {
	mu          sync.Mutex
	logDir      string
	retention   time.Duration
	maxFileSize int64
	now         func() time.Time

	file *os.File
	week string
	size int64

	stop     chan struct{}
	stopOnce sync.Once
	swept    chan struct{}
	sweeping bool
}

// NewRotatingLogger creates a logger with the default 100MB size limit.
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, defaultMaxFileSize)
}

// NewRotatingLoggerWithSizeLimit creates a logger. A maxFileSize of 0
// disables size-based rotation. Nothing is opened until the first Write.
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		now:         time.Now,
		stop:        make(chan struct{}),
		swept:       make(chan struct{}),
	}
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write appends p to the current file, rotating first when the ISO week
// changed or p would overflow the size limit.
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(rl.now())
	full := rl.maxFileSize > 0 && rl.size+int64(len(p)) > rl.maxFileSize

	if rl.file == nil || week != rl.week || full {
		if err := rl.rotate(week, full && week == rl.week); err != nil {
			return 0, err
		}
	}

	n, err := rl.file.Write(p)
	rl.size += int64(n)
	return n, err
}

// rotate must be called with the lock held
func (rl *RotatingLogger) rotate(week string, forceNext bool) error {
	if rl.file != nil {
		_ = rl.file.Close()
		rl.file = nil
	}

	if err := os.MkdirAll(rl.logDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	name := rl.pickFile(week, forceNext)
	path := filepath.Join(rl.logDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rl.file = f
	rl.week = week
	rl.size = 0
	if info, err := f.Stat(); err == nil {
		rl.size = info.Size()
	}
	return nil
}

// pickFile returns the newest file of week that still has room, or the next
// numbered file.
func (rl *RotatingLogger) pickFile(week string, forceNext bool) string {
	base := fmt.Sprintf("app-%s.log", week)

	highest, highestSize := 0, int64(0)
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, fmt.Sprintf("app-%s_??.log", week)))
	for _, match := range matches {
		m := numberedFileRe.FindStringSubmatch(filepath.Base(match))
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num > highest {
			highest = num
			highestSize = fileSize(match)
		}
	}

	if highest == 0 {
		if !forceNext && (rl.maxFileSize == 0 || fileSize(filepath.Join(rl.logDir, base)) < rl.maxFileSize) {
			return base
		}
		return fmt.Sprintf("app-%s_%02d.log", week, 1)
	}

	if !forceNext && highestSize < rl.maxFileSize {
		return fmt.Sprintf("app-%s_%02d.log", week, highest)
	}
	return fmt.Sprintf("app-%s_%02d.log", week, highest+1)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// startSweeper removes expired files now and then once a day until Close.
func (rl *RotatingLogger) startSweeper(interval time.Duration) {
	rl.mu.Lock()
	rl.sweeping = true
	rl.mu.Unlock()

	go func() {
		defer close(rl.swept)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if removed, err := rl.cleanupOldLogs(); err != nil {
				slog.Warn("Failed to cleanup old logs", "error", err)
			} else if removed > 0 {
				slog.Info("Expired log files removed", "count", removed)
			}
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

// cleanupOldLogs removes app-*.log files not modified within the retention
// period and returns how many were removed.
func (rl *RotatingLogger) cleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	rl.mu.Lock()
	current := ""
	if rl.file != nil {
		current = filepath.Base(rl.file.Name())
	}
	rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == current || !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(rl.logDir, name)) == nil {
			removed++
		}
	}
	return removed, nil
}

// Close stops the sweeper and closes the current file.
func (rl *RotatingLogger) Close() error {
	rl.stopOnce.Do(func() { close(rl.stop) })

	rl.mu.Lock()
	sweeping := rl.sweeping
	rl.mu.Unlock()
	if sweeping {
		select {
		case <-rl.swept:
		case <-time.After(time.Second):
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.file == nil {
		return nil
	}
	err := rl.file.Close()
	rl.file = nil
	return err
}
