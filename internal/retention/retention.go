// Package retention prunes expired raw artifacts (screenshots and audio
// recordings). It never touches the event logs or plan files; a raw event
// whose artifact was pruned simply has a dangling reference, which the rest
// of the pipeline treats as normal.
package retention

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Report summarizes one cleanup run.
type Report struct {
	Scanned int `json:"scanned"`
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}

// Line renders the report for the control surface.
func (r Report) Line() string {
	line := fmt.Sprintf("scanned %d artifact(s), deleted %d", r.Scanned, r.Deleted)
	if r.Errors > 0 {
		line += fmt.Sprintf(", %d delete error(s)", r.Errors)
	}
	return line
}

// Manager prunes an artifact directory.
type Manager struct {
	dir string
	log *slog.Logger
}

// NewManager creates a manager for the artifact directory.
func NewManager(artifactDir string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{dir: artifactDir, log: log}
}

// Cleanup deletes every artifact whose last-modified time is older than ttl.
// Per-file failures are logged and skipped; the scan continues. A missing
// artifact directory means there is nothing to do.
func (m *Manager) Cleanup(ttl time.Duration) (Report, error) {
	var report Report
	cutoff := time.Now().Add(-ttl)

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return report, fmt.Errorf("scanning artifact directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		report.Scanned++

		info, err := entry.Info()
		if err != nil {
			// Deleted between readdir and stat, most likely.
			m.log.Warn("artifact vanished during scan", "name", entry.Name())
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			report.Errors++
			m.log.Warn("artifact delete failed", "name", entry.Name(), "error", err)
			continue
		}
		report.Deleted++
		m.log.Debug("artifact deleted", "name", entry.Name(), "age", time.Since(info.ModTime()).Round(time.Minute))
	}

	return report, nil
}
