package planstore

import (
	"errors"
	"testing"
	"time"

	"github.com/nvandessel/deskpilot/internal/models"
)

func testPlan(name string, created time.Time) models.Plan {
	return models.Plan{
		Name:      name,
		CreatedAt: created,
		Actions: []models.Action{
			{Type: models.ActionClick, Target: &models.ActionTarget{X: 100, Y: 200}},
			{Type: models.ActionTypeText, Value: &models.ActionValue{Text: "hello"}},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	plan := testPlan("daily_report", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	if err := store.Save(plan, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("daily_report")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != plan.Name || len(loaded.Actions) != 2 {
		t.Errorf("Load = %+v, want saved plan back", loaded)
	}
	if loaded.Actions[0].Type != models.ActionClick || loaded.Actions[0].Target.X != 100 {
		t.Errorf("action 0 = %+v, want click at 100", loaded.Actions[0])
	}
}

func TestSaveValidation(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := store.Save(models.Plan{Actions: testPlan("x", time.Now()).Actions}, false); err == nil {
		t.Error("Save accepted a plan with no name")
	}
	if err := store.Save(models.Plan{Name: "empty"}, false); err == nil {
		t.Error("Save accepted a plan with no actions")
	}
}

func TestSaveExistingRequiresOverwrite(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	plan := testPlan("report", time.Now().UTC())
	if err := store.Save(plan, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Save(plan, false); !errors.Is(err, ErrExists) {
		t.Errorf("second Save = %v, want ErrExists", err)
	}
	if err := store.Save(plan, true); err != nil {
		t.Errorf("Save with overwrite failed: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := store.Load("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load missing = %v, want ErrNotFound", err)
	}
}

func TestListCreationOrder(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	// Saved out of creation order.
	for _, p := range []models.Plan{
		testPlan("second", base.Add(time.Hour)),
		testPlan("first", base),
		testPlan("third", base.Add(2*time.Hour)),
	} {
		if err := store.Save(p, false); err != nil {
			t.Fatalf("Save(%s) failed: %v", p.Name, err)
		}
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(names) != len(want) {
		t.Fatalf("List returned %d names, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"daily_report", "daily_report"},
		{"My Workflow", "my_workflow"},
		{"open: the/timesheet!", "open_thetimesheet"},
		{"...", "untitled_plan"},
		{"", "untitled_plan"},
		{"a-b_c9", "a-b_c9"},
	}

	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadBySanitizedName(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	plan := testPlan("My Workflow", time.Now().UTC())
	if err := store.Save(plan, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The spoken form and the sanitized form load the same plan.
	for _, name := range []string{"My Workflow", "my_workflow"} {
		if _, err := store.Load(name); err != nil {
			t.Errorf("Load(%q) failed: %v", name, err)
		}
	}
}
