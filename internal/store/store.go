// Package store defines the persistence boundary for athlete data and
// provides file-backed and postgres-backed implementations. All writes
// are whole-document replacements; last writer wins.
package store

import (
	"context"

	"github.com/conejito/coach/internal/garmin"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultPlan is returned when an athlete has no stored plan yet.
const DefaultPlan = "No plan generated yet. Chat with the coach to create one."

// Profile describes the athlete. A default is synthesized from the
// athlete identifier when nothing is stored, so loads never fail.
type Profile struct {
	Name     string `yaml:"name" json:"name"`
	Goals    string `yaml:"goals" json:"goals"`
	Injuries string `yaml:"injuries" json:"injuries"`
}

// JournalEntry is one subjective training log entry. One entry per
// calendar day by convention; saving the same date overwrites.
type JournalEntry struct {
	Date     string `json:"date"`
	RPE      int    `json:"rpe"`
	Mood     string `json:"mood"`
	Soreness int    `json:"soreness"`
	Notes    string `json:"notes"`
}

// ChatMessage is one turn of the coach conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is the persistence interface the coaching core consumes.
// Implementations must tolerate missing data: absent documents come back
// as defaults or empty slices, never as errors the core has to handle.
type Store interface {
	ListAthletes(ctx context.Context) ([]string, error)
	CreateAthlete(ctx context.Context, athleteID string) error

	// LoadActivities returns the athlete's full activity set in no
	// particular order; callers re-sort as needed.
	LoadActivities(ctx context.Context, athleteID string) ([]garmin.Activity, error)
	SaveActivity(ctx context.Context, athleteID string, act garmin.Activity) error

	// LoadJournal returns entries sorted date-descending.
	LoadJournal(ctx context.Context, athleteID string) ([]JournalEntry, error)
	SaveJournalEntry(ctx context.Context, athleteID string, entry JournalEntry) error

	LoadProfile(ctx context.Context, athleteID string) Profile
	SaveProfile(ctx context.Context, athleteID string, p Profile) error

	LoadPlan(ctx context.Context, athleteID string) string
	SavePlan(ctx context.Context, athleteID string, text string) error

	LoadChatHistory(ctx context.Context, athleteID string) ([]ChatMessage, error)
	SaveChatHistory(ctx context.Context, athleteID string, messages []ChatMessage) error

	// LoadPromptOverride returns the custom coaching instructions for
	// (athlete, model). The second return is false when none is stored.
	LoadPromptOverride(ctx context.Context, athleteID, modelID string) (string, bool, error)
	SavePromptOverride(ctx context.Context, athleteID, modelID, text string) error
}

// DefaultProfile synthesizes the profile used when none is stored.
func DefaultProfile(athleteID string) Profile {
	name := athleteID
	if name == "" {
		name = "Athlete"
	} else {
		name = capitalize(name)
	}
	return Profile{
		Name:     name,
		Goals:    "Run a sub-3 hour marathon.",
		Injuries: "None",
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	first := r[0]
	if first >= 'a' && first <= 'z' {
		first -= 'a' - 'A'
	}
	return string(first) + string(r[1:])
}
