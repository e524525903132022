package batch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives batch progress. Calls may come from several
// worker goroutines.
type ProgressCallback interface {
	// OnStart is called when processing begins with the total number of items.
	OnStart(total int)

	// OnProgress is called after each item with the number finished so far.
	OnProgress(current, total int)

	// OnComplete is called when processing is finished.
	OnComplete()

	// OnError is called when an item fails.
	OnError(current int, err error)
}

// NoOpProgressCallback implements ProgressCallback but does nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(total int)              {}
func (NoOpProgressCallback) OnProgress(current, total int)  {}
func (NoOpProgressCallback) OnComplete()                    {}
func (NoOpProgressCallback) OnError(current int, err error) {}

// ConsoleProgressCallback draws a progress bar.
type ConsoleProgressCallback struct {
	writer         io.Writer
	prefix         string
	width          int
	lastUpdate     time.Time
	updateInterval time.Duration
	mutex          sync.Mutex
	startTime      time.Time
}

// NewConsoleProgressCallback creates a new console progress reporter.
func NewConsoleProgressCallback(writer io.Writer, prefix string) *ConsoleProgressCallback {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgressCallback{
		writer:         writer,
		prefix:         prefix,
		width:          40,
		updateInterval: 100 * time.Millisecond,
	}
}

// WithUpdateInterval sets how frequently the progress bar updates.
func (c *ConsoleProgressCallback) WithUpdateInterval(interval time.Duration) *ConsoleProgressCallback {
	c.updateInterval = interval
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.startTime = time.Now()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.writer, "%s0/%d (0.0%%)\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	if now.Sub(c.lastUpdate) < c.updateInterval && current < total {
		return
	}
	c.lastUpdate = now
	c.draw(current, total, now)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, _ = fmt.Fprintf(c.writer, "\n%sCompleted in %v\n", c.prefix, time.Since(c.startTime).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(current int, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, _ = fmt.Fprintf(c.writer, "\n%sError at item %d: %v\n", c.prefix, current, err)
}

func (c *ConsoleProgressCallback) draw(current, total int, now time.Time) {
	if total == 0 {
		return
	}
	percent := float64(current) / float64(total) * 100.0
	filled := c.width * current / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", c.width-filled)

	status := fmt.Sprintf("\r%s[%s] %d/%d (%.1f%%)", c.prefix, bar, current, total, percent)
	if elapsed := now.Sub(c.startTime); elapsed > 0 && current > 0 {
		status += fmt.Sprintf(" %.1f/s", float64(current)/elapsed.Seconds())
	}
	_, _ = fmt.Fprint(c.writer, status)
}

// LogProgressCallback logs progress every interval items.
type LogProgressCallback struct {
	logger    *slog.Logger
	interval  int
	mutex     sync.Mutex
	lastLog   int
	startTime time.Time
}

// NewLogProgressCallback creates a log-based progress reporter.
func NewLogProgressCallback(logger *slog.Logger, interval int) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 10
	}
	return &LogProgressCallback{logger: logger, interval: interval}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.startTime = time.Now()
	l.lastLog = 0
	l.logger.Info("Starting processing", "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if current-l.lastLog < l.interval && current != total {
		return
	}
	l.lastLog = current
	l.logger.Info("Progress update",
		"current", current,
		"total", total,
		"elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnComplete() {
	l.logger.Info("Processing completed", "elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(current int, err error) {
	l.logger.Error("Processing error", "current", current, "error", err)
}
