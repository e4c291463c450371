package synth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/deskpilot/internal/enrich"
	"github.com/nvandessel/deskpilot/internal/eventlog"
	"github.com/nvandessel/deskpilot/internal/models"
	"github.com/nvandessel/deskpilot/internal/planstore"
)

// scriptedCompleter returns one canned response per call.
type scriptedCompleter struct {
	responses []string
	calls     int
	err       error
}

func (c *scriptedCompleter) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return c.responses[i], nil
}

type testHarness struct {
	store     *eventlog.Store
	plans     *planstore.Store
	plansDir  string
	completer *scriptedCompleter
}

func newTestHarness(t *testing.T, completer *scriptedCompleter, cfg Config) (*Synthesizer, *testHarness) {
	t.Helper()
	dir := t.TempDir()

	store, err := eventlog.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	plansDir := filepath.Join(dir, "plans")
	plans, err := planstore.Open(plansDir)
	require.NoError(t, err)

	if cfg.ScreenWidth == 0 {
		cfg.ScreenWidth = 1920
		cfg.ScreenHeight = 1080
	}
	enricher := enrich.New(store, nil, nil, nil)
	s, err := New(store, enricher, plans, completer, cfg, nil)
	require.NoError(t, err)

	return s, &testHarness{store: store, plans: plans, plansDir: plansDir, completer: completer}
}

func captureClicks(t *testing.T, store *eventlog.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := store.NextID()
		require.NoError(t, store.AppendRaw(models.RawEvent{
			ID:        id,
			Timestamp: time.Now().UTC(),
			Kind:      models.EventClick,
			Payload:   models.Payload{X: 10 * i, Y: 20 * i},
		}))
	}
}

const validResponse = `[{"type": "click", "target": {"x": 100, "y": 200}},
{"type": "type", "value": {"text": "quarterly totals"}}]`

func TestLearnSavesValidatedPlan(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{validResponse}}
	s, h := newTestHarness(t, completer, Config{})
	captureClicks(t, h.store, 3)

	report, err := s.Learn(context.Background(), "daily_report", false)
	require.NoError(t, err)

	assert.Equal(t, "daily_report", report.Name)
	assert.Equal(t, 2, report.Actions)
	assert.Equal(t, 1, report.Attempts)
	assert.Equal(t, 3, report.Enrich.Enriched)

	plan, err := h.plans.Load("daily_report")
	require.NoError(t, err)
	assert.Len(t, plan.Actions, 2)
	assert.False(t, plan.CreatedAt.IsZero())
}

func TestLearnRepairsRejectedResponse(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		`[{"type": "scroll"}]`, // rejected, triggers a corrective prompt
		validResponse,
	}}
	s, h := newTestHarness(t, completer, Config{MaxRepairAttempts: 2})
	captureClicks(t, h.store, 1)

	report, err := s.Learn(context.Background(), "fixed_plan", false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempts)
	assert.Equal(t, 2, completer.calls)
}

func TestLearnGivesUpAfterRepairLimit(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"no plan here"}}
	s, h := newTestHarness(t, completer, Config{MaxRepairAttempts: 2})
	captureClicks(t, h.store, 1)

	_, err := s.Learn(context.Background(), "stubborn", false)
	require.Error(t, err)

	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, 3, synthErr.Attempts) // initial try plus two repairs
	assert.Equal(t, 3, completer.calls)

	// Nothing invalid was ever persisted.
	entries, err := os.ReadDir(h.plansDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLearnRequiresReplayableEvents(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{validResponse}}
	s, h := newTestHarness(t, completer, Config{})

	// Only an audio command in the window: nothing to replay.
	id := h.store.NextID()
	require.NoError(t, h.store.AppendRaw(models.RawEvent{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Kind:      models.EventAudioCommand,
	}))

	_, err := s.Learn(context.Background(), "empty_window", false)
	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Zero(t, completer.calls, "completer must not be called without replayable events")
}

func TestLearnExistingNameNeedsOverwrite(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{validResponse}}
	s, h := newTestHarness(t, completer, Config{})
	captureClicks(t, h.store, 1)

	_, err := s.Learn(context.Background(), "report", false)
	require.NoError(t, err)

	_, err = s.Learn(context.Background(), "report", false)
	assert.ErrorIs(t, err, planstore.ErrExists)

	_, err = s.Learn(context.Background(), "report", true)
	assert.NoError(t, err)
}

func TestLearnCompleterFailure(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("model crashed")}
	s, h := newTestHarness(t, completer, Config{})
	captureClicks(t, h.store, 1)

	_, err := s.Learn(context.Background(), "doomed", false)
	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)

	entries, err := os.ReadDir(h.plansDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLearnEmptyName(t *testing.T) {
	s, _ := newTestHarness(t, &scriptedCompleter{responses: []string{validResponse}}, Config{})
	_, err := s.Learn(context.Background(), "", false)
	assert.Error(t, err)
}
