package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/conejito/coach/internal/garmin"
	"github.com/conejito/coach/internal/store"
)

// journalEntries is how many of the most recent subjective entries the
// prompt carries.
const journalEntries = 7

// Composer assembles the full coaching context block for an athlete.
// Given identical store contents and the same clock, the output is
// byte-for-byte deterministic; no network calls are made.
type Composer struct {
	store  store.Store
	now    func() time.Time
	logger zerolog.Logger
}

type ComposerOption func(*Composer)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) ComposerOption {
	return func(c *Composer) { c.now = now }
}

func WithComposerLogger(logger zerolog.Logger) ComposerOption {
	return func(c *Composer) { c.logger = logger }
}

func NewComposer(st store.Store, opts ...ComposerOption) *Composer {
	c := &Composer{
		store:  st,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Instructions resolves the coaching instructions for (athlete, model):
// the stored override if present, else the built-in default.
func (c *Composer) Instructions(ctx context.Context, athleteID, modelID string) string {
	override, ok, err := c.store.LoadPromptOverride(ctx, athleteID, modelID)
	if err != nil {
		c.logger.Warn().Err(err).Str("athlete", athleteID).Str("model", modelID).
			Msg("prompt override unreadable, using default")
		return DefaultInstructions
	}
	if ok && strings.TrimSpace(override) != "" {
		return override
	}
	return DefaultInstructions
}

// SystemPrompt builds the complete context block: instructions, current
// dates, athlete identity, active plan, training log, training load,
// and recent subjective journal. Missing upstream data degrades to the
// placeholder text of each section rather than failing.
func (c *Composer) SystemPrompt(ctx context.Context, athleteID, modelID string) string {
	instructions := c.Instructions(ctx, athleteID, modelID)
	profile := c.store.LoadProfile(ctx, athleteID)
	plan := c.store.LoadPlan(ctx, athleteID)

	activities, err := c.store.LoadActivities(ctx, athleteID)
	if err != nil {
		c.logger.Warn().Err(err).Str("athlete", athleteID).Msg("activities unreadable, treating as empty")
		activities = nil
	}
	garmin.SortByStartDesc(activities)

	journal, err := c.store.LoadJournal(ctx, athleteID)
	if err != nil {
		c.logger.Warn().Err(err).Str("athlete", athleteID).Msg("journal unreadable, treating as empty")
		journal = nil
	}
	if len(journal) > journalEntries {
		journal = journal[:journalEntries]
	}

	now := c.now()
	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")

	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "TODAY: %s (%s)\n", today, now.Weekday())
	fmt.Fprintf(&b, "TOMORROW: %s (%s)\n", tomorrow, now.AddDate(0, 0, 1).Weekday())
	b.WriteString("The two dates above are correct. Ignore any conflicting dates that appear elsewhere in this context.\n")

	b.WriteString("\n=== ATHLETE ===\n")
	fmt.Fprintf(&b, "Name: %s\n", profile.Name)
	fmt.Fprintf(&b, "Goals: %s\n", profile.Goals)
	fmt.Fprintf(&b, "Injuries/Limitations: %s\n", profile.Injuries)

	b.WriteString("\n=== CURRENT ACTIVE PLAN ===\n")
	b.WriteString(plan)
	b.WriteString("\n")

	b.WriteString("\n=== RECENT TRAINING LOG (Garmin) ===\n")
	b.WriteString(SummarizeActivities(activities))
	b.WriteString("\n")

	b.WriteString("\n=== TRAINING LOAD ===\n")
	b.WriteString(ComputeTrainingStats(activities, now))
	b.WriteString("\n")

	fmt.Fprintf(&b, "\n=== SUBJECTIVE JOURNAL (last %d entries) ===\n", journalEntries)
	if len(journal) == 0 {
		b.WriteString("No journal entries recorded.")
	} else {
		lines := make([]string, 0, len(journal))
		for _, e := range journal {
			lines = append(lines, fmt.Sprintf("- %s | RPE %d | Mood %s | Soreness %d | %s",
				e.Date, e.RPE, e.Mood, e.Soreness, e.Notes))
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	return b.String()
}
