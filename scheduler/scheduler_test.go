package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-bot/bot"
	"rental-bot/models"
	"rental-bot/utils"
)

type staticSearches struct {
	searches []models.ConfiguredSearch
	err      error
}

func (s staticSearches) ListSearches(context.Context) ([]models.ConfiguredSearch, error) {
	return s.searches, s.err
}

type recordingRunner struct {
	mu      sync.Mutex
	ran     []int64
	failIDs map[int64]bool
}

func (r *recordingRunner) RunScheduled(_ context.Context, s models.ConfiguredSearch) (bot.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, s.ID)
	if r.failIDs[s.ID] {
		return bot.Outcome{}, errors.New("boom")
	}
	return bot.Outcome{Notified: 2}, nil
}

func opts() Options {
	return Options{Spec: "@every 1h", MaxConcurrency: 2, RateLimitMs: 0, RunTimeout: time.Second}
}

func TestRunOnceRunsEverySearch(t *testing.T) {
	searches := staticSearches{searches: []models.ConfiguredSearch{
		{ID: 1, ConversationID: "C1"},
		{ID: 2, ConversationID: "C2"},
		{ID: 3, ConversationID: "C3"},
	}}
	runner := &recordingRunner{failIDs: map[int64]bool{2: true}}

	s := New(searches, runner, opts(), utils.NewDiscardLogger())
	stats, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2, 3}, runner.ran)
	assert.Equal(t, CycleStats{Searches: 3, Failed: 1, Notified: 4}, stats)
}

func TestRunOnceListError(t *testing.T) {
	s := New(staticSearches{err: errors.New("db down")}, &recordingRunner{}, opts(), utils.NewDiscardLogger())
	_, err := s.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunOnceCancelled(t *testing.T) {
	searches := staticSearches{searches: []models.ConfiguredSearch{{ID: 1}, {ID: 2}}}
	runner := &recordingRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := opts()
	o.MaxConcurrency = 1
	s := New(searches, runner, o, utils.NewDiscardLogger())
	_, err := s.RunOnce(ctx)

	require.NoError(t, err)
	assert.Empty(t, runner.ran)
}

func TestStartRejectsBadSpec(t *testing.T) {
	o := opts()
	o.Spec = "not a schedule"
	s := New(staticSearches{}, &recordingRunner{}, o, utils.NewDiscardLogger())
	assert.Error(t, s.Start(context.Background()))
}

func TestStartStop(t *testing.T) {
	s := New(staticSearches{}, &recordingRunner{}, opts(), utils.NewDiscardLogger())
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
