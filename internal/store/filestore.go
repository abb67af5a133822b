package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conejito/coach/internal/garmin"
)

// FileStore keeps each athlete's data under its own directory tree:
//
//	<base>/users/<athlete>/journal/<date>.json
//	<base>/users/<athlete>/profile/user.yaml
//	<base>/users/<athlete>/profile/current_plan.md
//	<base>/users/<athlete>/profile/chat_history.json
//	<base>/users/<athlete>/profile/prompts/<model>.txt
//	<base>/users/<athlete>/raw/garmin/activity_<id>.json
type FileStore struct {
	base string
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("data directory required")
	}
	if err := os.MkdirAll(filepath.Join(dir, "users"), 0o700); err != nil {
		return nil, err
	}
	return &FileStore{base: dir}, nil
}

func (fs *FileStore) athleteDir(athleteID string) string {
	return filepath.Join(fs.base, "users", athleteID)
}

// TokenPath returns where the athlete's Garmin OAuth token lives.
func (fs *FileStore) TokenPath(athleteID string) string {
	return filepath.Join(fs.athleteDir(athleteID), "profile", ".garmin_tokens", "oauth2.json")
}

func (fs *FileStore) ensureDirs(athleteID string) error {
	for _, sub := range []string{"journal", "profile/prompts", "raw/garmin"} {
		if err := os.MkdirAll(filepath.Join(fs.athleteDir(athleteID), sub), 0o700); err != nil {
			return err
		}
	}
	return nil
}

// writeFileAtomic writes via a temp file and rename so readers never see
// a partially written document.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (fs *FileStore) ListAthletes(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fs.base, "users"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (fs *FileStore) CreateAthlete(ctx context.Context, athleteID string) error {
	if athleteID == "" {
		return errors.New("athlete id required")
	}
	if err := fs.ensureDirs(athleteID); err != nil {
		return err
	}
	profilePath := filepath.Join(fs.athleteDir(athleteID), "profile", "user.yaml")
	if _, err := os.Stat(profilePath); os.IsNotExist(err) {
		return fs.SaveProfile(ctx, athleteID, Profile{Name: athleteID})
	}
	return nil
}

func (fs *FileStore) LoadActivities(ctx context.Context, athleteID string) ([]garmin.Activity, error) {
	dir := filepath.Join(fs.athleteDir(athleteID), "raw", "garmin")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var activities []garmin.Activity
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "activity_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var act garmin.Activity
		if err := json.Unmarshal(data, &act); err != nil {
			// a corrupt record is treated as absent, not fatal
			continue
		}
		activities = append(activities, act)
	}
	garmin.SortByStartDesc(activities)
	return activities, nil
}

func (fs *FileStore) SaveActivity(ctx context.Context, athleteID string, act garmin.Activity) error {
	if err := fs.ensureDirs(athleteID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(act, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(fs.athleteDir(athleteID), "raw", "garmin",
		fmt.Sprintf("activity_%d.json", act.ActivityID))
	return writeFileAtomic(path, data)
}

func (fs *FileStore) LoadJournal(ctx context.Context, athleteID string) ([]JournalEntry, error) {
	dir := filepath.Join(fs.athleteDir(athleteID), "journal")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var journal []JournalEntry
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var entry JournalEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		journal = append(journal, entry)
	}
	sort.SliceStable(journal, func(i, j int) bool {
		return journal[i].Date > journal[j].Date
	})
	return journal, nil
}

func (fs *FileStore) SaveJournalEntry(ctx context.Context, athleteID string, entry JournalEntry) error {
	if err := fs.ensureDirs(athleteID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(fs.athleteDir(athleteID), "journal", entry.Date+".json")
	return writeFileAtomic(path, data)
}

func (fs *FileStore) LoadProfile(ctx context.Context, athleteID string) Profile {
	data, err := os.ReadFile(filepath.Join(fs.athleteDir(athleteID), "profile", "user.yaml"))
	if err != nil {
		return DefaultProfile(athleteID)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return DefaultProfile(athleteID)
	}
	return p
}

func (fs *FileStore) SaveProfile(ctx context.Context, athleteID string, p Profile) error {
	if err := fs.ensureDirs(athleteID); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(fs.athleteDir(athleteID), "profile", "user.yaml"), data)
}

func (fs *FileStore) LoadPlan(ctx context.Context, athleteID string) string {
	data, err := os.ReadFile(filepath.Join(fs.athleteDir(athleteID), "profile", "current_plan.md"))
	if err != nil {
		return DefaultPlan
	}
	return string(data)
}

func (fs *FileStore) SavePlan(ctx context.Context, athleteID string, text string) error {
	if err := fs.ensureDirs(athleteID); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(fs.athleteDir(athleteID), "profile", "current_plan.md"), []byte(text))
}

func (fs *FileStore) LoadChatHistory(ctx context.Context, athleteID string) ([]ChatMessage, error) {
	data, err := os.ReadFile(filepath.Join(fs.athleteDir(athleteID), "profile", "chat_history.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var messages []ChatMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("parse chat history: %w", err)
	}
	return messages, nil
}

func (fs *FileStore) SaveChatHistory(ctx context.Context, athleteID string, messages []ChatMessage) error {
	if err := fs.ensureDirs(athleteID); err != nil {
		return err
	}
	if messages == nil {
		messages = []ChatMessage{}
	}
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(fs.athleteDir(athleteID), "profile", "chat_history.json"), data)
}

func (fs *FileStore) LoadPromptOverride(ctx context.Context, athleteID, modelID string) (string, bool, error) {
	path := filepath.Join(fs.athleteDir(athleteID), "profile", "prompts", promptFileName(modelID))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (fs *FileStore) SavePromptOverride(ctx context.Context, athleteID, modelID, text string) error {
	if err := fs.ensureDirs(athleteID); err != nil {
		return err
	}
	path := filepath.Join(fs.athleteDir(athleteID), "profile", "prompts", promptFileName(modelID))
	return writeFileAtomic(path, []byte(text))
}

// promptFileName makes a model identifier safe for use as a filename.
func promptFileName(modelID string) string {
	safe := strings.ReplaceAll(modelID, ":", "_")
	safe = strings.ReplaceAll(safe, "/", "_")
	return safe + ".txt"
}

var _ Store = (*FileStore)(nil)
