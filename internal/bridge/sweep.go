package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SweepReport summarizes one sweep pass.
type SweepReport struct {
	RemovedFiles int
}

// Sweep removes command/response files older than olderThan, based on file
// modification time. Timed-out exchanges leave their files behind on purpose;
// this reclaims them once they are no longer interesting.
func (d *Dispatcher) Sweep(olderThan time.Duration) (SweepReport, error) {
	if olderThan <= 0 {
		return SweepReport{}, fmt.Errorf("olderThan must be positive")
	}

	entries, err := os.ReadDir(d.cfg.Dir)
	if os.IsNotExist(err) {
		return SweepReport{}, nil
	}
	if err != nil {
		return SweepReport{}, fmt.Errorf("read bridge directory: %w", err)
	}

	cutoff := d.now().Add(-olderThan)
	report := SweepReport{}

	for _, entry := range entries {
		if entry.IsDir() || !isExchangeFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return report, fmt.Errorf("read bridge entry info %q: %w", entry.Name(), err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(d.cfg.Dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return report, fmt.Errorf("remove stale file %q: %w", entry.Name(), err)
		}
		report.RemovedFiles++
	}

	return report, nil
}

func isExchangeFile(name string) bool {
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	return strings.HasPrefix(name, "command-") || strings.HasPrefix(name, "response-")
}
