package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	filePrefix = "gitdash-"
	fileSuffix = ".log"
	dayLayout  = "2006-01-02"
)

// Writer manages daily log files in a single directory.
type Writer struct {
	baseDir string
}

// NewWriter creates a new Writer with the specified base directory.
func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// Path returns the log file used for the day of t.
// Layout: baseDir/gitdash-2006-01-02.log
func (w *Writer) Path(t time.Time) string {
	return filepath.Join(w.baseDir, filePrefix+t.Format(dayLayout)+fileSuffix)
}

// Open creates the directory if needed and opens the day's file for appending.
func (w *Writer) Open(t time.Time) (*os.File, error) {
	if err := os.MkdirAll(w.baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(w.Path(t), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

// DailyFile writes to the current day's file under a Writer, switching files
// when the local date changes. It satisfies zapcore.WriteSyncer.
type DailyFile struct {
	w   *Writer
	now func() time.Time

	mu  sync.Mutex
	day string
	f   *os.File
}

// Daily returns a DailyFile that has already opened today's file.
func (w *Writer) Daily(now func() time.Time) (*DailyFile, error) {
	d := &DailyFile{w: w, now: now}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rotate(now()); err != nil {
		return nil, err
	}
	return d, nil
}

// rotate opens t's file if it is not the one in use. Callers hold d.mu.
func (d *DailyFile) rotate(t time.Time) error {
	day := t.Format(dayLayout)
	if d.f != nil && day == d.day {
		return nil
	}
	f, err := d.w.Open(t)
	if err != nil {
		return err
	}
	if d.f != nil {
		d.f.Close()
	}
	d.f, d.day = f, day
	return nil
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.rotate(d.now()); err != nil {
		return 0, err
	}
	return d.f.Write(p)
}

func (d *DailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	return d.f.Sync()
}

// Close closes the current file.
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// isLogFile reports whether name looks like a file produced by Writer.
func isLogFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}
