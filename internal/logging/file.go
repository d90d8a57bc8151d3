package logging

import (
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// DailyFile writes to Log_YYYY-MM-DD.txt in dir, switching files when the
// local date changes. Each day's file is size-rotated by lumberjack.
type DailyFile struct {
	dir        string
	maxSize    int
	maxBackups int
	maxAge     int
	now        func() time.Time

	mu      sync.Mutex
	day     string
	current *lumberjack.Logger
}

// NewDailyFile creates a dated file sink in dir
func NewDailyFile(dir string, maxSizeMB, maxBackups, maxAgeDays int) *DailyFile {
	return &DailyFile{
		dir:        dir,
		maxSize:    maxSizeMB,
		maxBackups: maxBackups,
		maxAge:     maxAgeDays,
		now:        time.Now,
	}
}

// FileName returns the log file name for t
func FileName(t time.Time) string {
	return "Log_" + t.Format("2006-01-02") + ".txt"
}

// Write implements io.Writer
func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	day := now.Format("2006-01-02")
	if d.current == nil || day != d.day {
		if d.current != nil {
			d.current.Close()
		}
		d.current = &lumberjack.Logger{
			Filename:   filepath.Join(d.dir, FileName(now)),
			MaxSize:    d.maxSize,
			MaxBackups: d.maxBackups,
			MaxAge:     d.maxAge,
		}
		d.day = day
	}

	return d.current.Write(p)
}

// Close closes the current file
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		return nil
	}
	err := d.current.Close()
	d.current = nil
	return err
}
