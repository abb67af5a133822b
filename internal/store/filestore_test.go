package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conejito/coach/internal/garmin"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestNewFileStoreRequiresDir(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func TestCreateAndListAthletes(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	ids, err := fs.ListAthletes(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, fs.CreateAthlete(ctx, "brian"))
	require.NoError(t, fs.CreateAthlete(ctx, "ana"))

	ids, err = fs.ListAthletes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"brian", "ana"}, ids)

	// creating twice must not clobber an edited profile
	require.NoError(t, fs.SaveProfile(ctx, "brian", Profile{Name: "Brian G", Goals: "BQ"}))
	require.NoError(t, fs.CreateAthlete(ctx, "brian"))
	assert.Equal(t, "Brian G", fs.LoadProfile(ctx, "brian").Name)
}

func TestActivityRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	acts := []garmin.Activity{
		{ActivityID: 1, StartTimeLocal: "2026-01-26 07:00:00", Distance: 8000},
		{ActivityID: 2, StartTimeLocal: "2026-01-28 07:00:00", Distance: 10000},
	}
	for _, a := range acts {
		require.NoError(t, fs.SaveActivity(ctx, "brian", a))
	}

	loaded, err := fs.LoadActivities(ctx, "brian")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	// most recent first
	assert.Equal(t, int64(2), loaded[0].ActivityID)

	// re-saving the same id overwrites rather than duplicates
	acts[1].Distance = 12000
	require.NoError(t, fs.SaveActivity(ctx, "brian", acts[1]))
	loaded, err = fs.LoadActivities(ctx, "brian")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, float64(12000), loaded[0].Distance)
}

func TestLoadActivitiesSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)
	require.NoError(t, fs.SaveActivity(ctx, "brian", garmin.Activity{
		ActivityID: 1, StartTimeLocal: "2026-01-28 07:00:00",
	}))

	dir := filepath.Join(fs.base, "users", "brian", "raw", "garmin")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "activity_2.json"), []byte("{broken"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o600))

	loaded, err := fs.LoadActivities(ctx, "brian")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, int64(1), loaded[0].ActivityID)
}

func TestJournalSortedMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	for _, e := range []JournalEntry{
		{Date: "2026-01-26", RPE: 4, Mood: "ok", Soreness: 1, Notes: "easy"},
		{Date: "2026-01-28", RPE: 8, Mood: "tired", Soreness: 3, Notes: "intervals"},
		{Date: "2026-01-27", RPE: 5, Mood: "good", Soreness: 2, Notes: "steady"},
	} {
		require.NoError(t, fs.SaveJournalEntry(ctx, "brian", e))
	}

	journal, err := fs.LoadJournal(ctx, "brian")
	require.NoError(t, err)
	require.Len(t, journal, 3)
	assert.Equal(t, "2026-01-28", journal[0].Date)
	assert.Equal(t, "2026-01-26", journal[2].Date)
}

func TestJournalEntryOverwriteByDate(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	require.NoError(t, fs.SaveJournalEntry(ctx, "brian", JournalEntry{Date: "2026-01-28", RPE: 5}))
	require.NoError(t, fs.SaveJournalEntry(ctx, "brian", JournalEntry{Date: "2026-01-28", RPE: 9}))

	journal, err := fs.LoadJournal(ctx, "brian")
	require.NoError(t, err)
	require.Len(t, journal, 1)
	assert.Equal(t, 9, journal[0].RPE)
}

func TestProfileDefaults(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	p := fs.LoadProfile(ctx, "brian")
	assert.Equal(t, "Brian", p.Name)
	assert.Equal(t, "Run a sub-3 hour marathon.", p.Goals)
	assert.Equal(t, "None", p.Injuries)
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	in := Profile{Name: "Brian", Goals: "Sub-40 10k", Injuries: "ITB"}
	require.NoError(t, fs.SaveProfile(ctx, "brian", in))
	assert.Equal(t, in, fs.LoadProfile(ctx, "brian"))
}

func TestPlanDefaultsAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	assert.Equal(t, DefaultPlan, fs.LoadPlan(ctx, "brian"))

	plan := "# Week 1\n- Mon: rest\n- Tue: 8km easy\n"
	require.NoError(t, fs.SavePlan(ctx, "brian", plan))
	assert.Equal(t, plan, fs.LoadPlan(ctx, "brian"))
}

func TestChatHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	history, err := fs.LoadChatHistory(ctx, "brian")
	require.NoError(t, err)
	assert.Empty(t, history)

	msgs := []ChatMessage{
		{Role: RoleUser, Content: "How was my week?"},
		{Role: RoleAssistant, Content: "Solid volume."},
	}
	require.NoError(t, fs.SaveChatHistory(ctx, "brian", msgs))

	history, err = fs.LoadChatHistory(ctx, "brian")
	require.NoError(t, err)
	assert.Equal(t, msgs, history)

	// clearing persists an empty list, not an absent file
	require.NoError(t, fs.SaveChatHistory(ctx, "brian", nil))
	history, err = fs.LoadChatHistory(ctx, "brian")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestPromptOverrideRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	_, ok, err := fs.LoadPromptOverride(ctx, "brian", "deepseek-r1:8b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.SavePromptOverride(ctx, "brian", "deepseek-r1:8b", "be brief"))
	text, ok, err := fs.LoadPromptOverride(ctx, "brian", "deepseek-r1:8b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "be brief", text)
}

func TestPromptFileNameSanitized(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	require.NoError(t, fs.SavePromptOverride(ctx, "brian", "mlx-community/phi-4:latest", "x"))

	path := filepath.Join(fs.base, "users", "brian", "profile", "prompts", "mlx-community_phi-4_latest.txt")
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestDefaultProfileCapitalizesID(t *testing.T) {
	assert.Equal(t, "Ana", DefaultProfile("ana").Name)
	assert.Equal(t, "Athlete", DefaultProfile("").Name)
}
