package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const maxLogFiles = 10

// OpenLogFile creates a timestamped log file under dir and prunes the oldest
// files beyond maxLogFiles. The caller owns the returned handle.
func OpenLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := filepath.Join(dir, fmt.Sprintf("draftio-%s.log",
		time.Now().Format("2006-01-02T15-04-05")))
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	if err := pruneLogs(dir); err != nil {
		// Pruning failure must not take logging down with it.
		fmt.Fprintf(os.Stderr, "warning: pruning old logs failed: %v\n", err)
	}
	return f, nil
}

func pruneLogs(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "draftio-*.log"))
	if err != nil {
		return err
	}
	if len(files) <= maxLogFiles {
		return nil
	}

	// The timestamp in the name sorts chronologically.
	sort.Strings(files)
	for _, stale := range files[:len(files)-maxLogFiles] {
		if err := os.Remove(stale); err != nil {
			return fmt.Errorf("remove %s: %w", stale, err)
		}
	}
	return nil
}
