package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Cursor returns the persisted watermark for the named consumer: the highest
// raw event id that consumer has fully processed. A consumer that has never
// run is at 0.
func (s *Store) Cursor(consumer string) (int64, error) {
	data, err := os.ReadFile(s.cursorPath(consumer))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading %s cursor: %w", consumer, err)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s cursor: %w", consumer, err)
	}
	return id, nil
}

// SetCursor advances the named consumer's watermark. The cursor never
// regresses: a value at or below the current watermark is rejected. The new
// value is written to a temporary file and renamed into place, so a crash
// leaves either the old or the new watermark, never a torn one.
func (s *Store) SetCursor(consumer string, id int64) error {
	cur, err := s.Cursor(consumer)
	if err != nil {
		return err
	}
	if id <= cur {
		return fmt.Errorf("%s cursor would regress: %d -> %d", consumer, cur, id)
	}

	path := s.cursorPath(consumer)
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("writing %s cursor: %w", consumer, err)
	}
	if _, err := f.WriteString(strconv.FormatInt(id, 10)); err != nil {
		f.Close()
		return fmt.Errorf("writing %s cursor: %w", consumer, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s cursor: %w", consumer, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s cursor: %w", consumer, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing %s cursor: %w", consumer, err)
	}
	return nil
}

func (s *Store) cursorPath(consumer string) string {
	return filepath.Join(s.dir, cursorDirName, consumer)
}
