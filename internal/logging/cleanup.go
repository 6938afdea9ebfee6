package logging

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Cleaner removes daily log files older than a retention period.
type Cleaner struct {
	baseDir       string
	retentionDays int
}

// NewCleaner creates a new Cleaner with the specified base directory and retention period.
func NewCleaner(baseDir string, retentionDays int) *Cleaner {
	return &Cleaner{baseDir: baseDir, retentionDays: retentionDays}
}

// Cleanup removes log files last written before the retention threshold.
// Files not created by Writer are left alone. Returns the number of files deleted.
func (c *Cleaner) Cleanup() (int, error) {
	entries, err := os.ReadDir(c.baseDir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	threshold := time.Now().AddDate(0, 0, -c.retentionDays)
	var deleted int
	for _, e := range entries {
		if e.IsDir() || !isLogFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(threshold) {
			if os.Remove(filepath.Join(c.baseDir, e.Name())) == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
