// Package planstore persists plans, one JSON file per plan. Plans on disk
// are immutable: the rest of the system only ever reads them back.
package planstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvandessel/deskpilot/internal/models"
)

var (
	// ErrNotFound is returned when loading a plan that does not exist.
	ErrNotFound = errors.New("plan not found")

	// ErrExists is returned when saving over an existing plan without the
	// overwrite flag.
	ErrExists = errors.New("plan already exists")
)

// Store is a directory of plan files.
type Store struct {
	dir string
}

// Open initializes a plan store at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating plan directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the plan under its name. An existing plan with the same name
// fails with ErrExists unless overwrite is set.
func (s *Store) Save(plan models.Plan, overwrite bool) error {
	if plan.Name == "" {
		return fmt.Errorf("plan has no name")
	}
	if len(plan.Actions) == 0 {
		return fmt.Errorf("plan %q has no actions", plan.Name)
	}

	path := s.path(plan.Name)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%q: %w", plan.Name, ErrExists)
		}
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding plan %q: %w", plan.Name, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing plan %q: %w", plan.Name, err)
	}
	return nil
}

// Load reads the named plan. A missing plan fails with ErrNotFound.
func (s *Store) Load(name string) (models.Plan, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return models.Plan{}, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return models.Plan{}, fmt.Errorf("reading plan %q: %w", name, err)
	}
	var plan models.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return models.Plan{}, fmt.Errorf("parsing plan %q: %w", name, err)
	}
	return plan, nil
}

// List returns the stored plan names in creation order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}

	type planFile struct {
		name    string
		created int64
	}
	var files []planFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		created := int64(0)
		if plan, err := s.Load(name); err == nil {
			created = plan.CreatedAt.UnixNano()
		}
		files = append(files, planFile{name: name, created: created})
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].created < files[j].created })

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.name)
	}
	return names, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, SanitizeName(name)+".json")
}

// SanitizeName maps a user-chosen plan name to a filesystem-safe base name:
// lowercased, spaces to underscores, everything outside [a-z0-9_-] dropped.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(strings.ToLower(name), " ", "_")
	var b strings.Builder
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "untitled_plan"
	}
	return b.String()
}
