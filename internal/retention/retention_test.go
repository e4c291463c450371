package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeArtifact(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	return path
}

func TestCleanupDeletesExpiredArtifacts(t *testing.T) {
	dir := t.TempDir()
	old := writeArtifact(t, dir, "1_1_screen.png", 48*time.Hour)
	fresh := writeArtifact(t, dir, "2_2_audio.wav", time.Hour)

	m := NewManager(dir, nil)
	report, err := m.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if report.Scanned != 2 || report.Deleted != 1 {
		t.Errorf("report = %+v, want 2 scanned 1 deleted", report)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired artifact still exists")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh artifact was deleted: %v", err)
	}
}

func TestCleanupBoundaryIsAgeBased(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "young.png", time.Minute)

	m := NewManager(dir, nil)
	report, err := m.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if report.Deleted != 0 {
		t.Errorf("Deleted = %d, want 0", report.Deleted)
	}
}

func TestCleanupMissingDirectory(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "never-created"), nil)
	report, err := m.Cleanup(time.Hour)
	if err != nil {
		t.Fatalf("Cleanup on missing dir failed: %v", err)
	}
	if report.Scanned != 0 || report.Deleted != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestCleanupSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}
	mtime := time.Now().Add(-48 * time.Hour)
	os.Chtimes(sub, mtime, mtime)

	m := NewManager(dir, nil)
	report, err := m.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if report.Deleted != 0 {
		t.Errorf("Deleted = %d, want 0 (directories are never removed)", report.Deleted)
	}
	if _, err := os.Stat(sub); err != nil {
		t.Errorf("subdirectory was removed: %v", err)
	}
}
