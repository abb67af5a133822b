package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conejito/coach/internal/garmin"
)

// schema is applied on open; statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS athletes (
	id TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS activities (
	athlete_id TEXT NOT NULL REFERENCES athletes(id),
	activity_id BIGINT NOT NULL,
	started_at TEXT NOT NULL DEFAULT '',
	raw JSONB NOT NULL,
	PRIMARY KEY (athlete_id, activity_id)
);
CREATE TABLE IF NOT EXISTS journal_entries (
	athlete_id TEXT NOT NULL REFERENCES athletes(id),
	entry_date TEXT NOT NULL,
	raw JSONB NOT NULL,
	PRIMARY KEY (athlete_id, entry_date)
);
CREATE TABLE IF NOT EXISTS profiles (
	athlete_id TEXT PRIMARY KEY REFERENCES athletes(id),
	name TEXT NOT NULL DEFAULT '',
	goals TEXT NOT NULL DEFAULT '',
	injuries TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS plans (
	athlete_id TEXT PRIMARY KEY REFERENCES athletes(id),
	body TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_histories (
	athlete_id TEXT PRIMARY KEY REFERENCES athletes(id),
	messages JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS prompt_overrides (
	athlete_id TEXT NOT NULL REFERENCES athletes(id),
	model_id TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (athlete_id, model_id)
);
`

// PGStore is a postgres-backed Store. Activities are deduplicated on
// (athlete_id, activity_id) by upsert, which keeps the aggregator's
// no-duplicate-identifiers precondition honest even across re-syncs.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPG connects to postgres and applies the schema.
func OpenPG(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) ListAthletes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM athletes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PGStore) CreateAthlete(ctx context.Context, athleteID string) error {
	if athleteID == "" {
		return errors.New("athlete id required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO athletes (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, athleteID)
	return err
}

func (s *PGStore) LoadActivities(ctx context.Context, athleteID string) ([]garmin.Activity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT raw FROM activities WHERE athlete_id = $1 ORDER BY started_at DESC`, athleteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []garmin.Activity
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var act garmin.Activity
		if err := json.Unmarshal(raw, &act); err != nil {
			continue
		}
		activities = append(activities, act)
	}
	return activities, rows.Err()
}

func (s *PGStore) SaveActivity(ctx context.Context, athleteID string, act garmin.Activity) error {
	if err := s.CreateAthlete(ctx, athleteID); err != nil {
		return err
	}
	raw, err := json.Marshal(act)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO activities (athlete_id, activity_id, started_at, raw)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (athlete_id, activity_id)
		DO UPDATE SET started_at = EXCLUDED.started_at, raw = EXCLUDED.raw`,
		athleteID, act.ActivityID, act.StartTimeLocal, raw)
	return err
}

func (s *PGStore) LoadJournal(ctx context.Context, athleteID string) ([]JournalEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT raw FROM journal_entries WHERE athlete_id = $1 ORDER BY entry_date DESC`, athleteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var journal []JournalEntry
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var entry JournalEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		journal = append(journal, entry)
	}
	return journal, rows.Err()
}

func (s *PGStore) SaveJournalEntry(ctx context.Context, athleteID string, entry JournalEntry) error {
	if err := s.CreateAthlete(ctx, athleteID); err != nil {
		return err
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO journal_entries (athlete_id, entry_date, raw)
		VALUES ($1, $2, $3)
		ON CONFLICT (athlete_id, entry_date) DO UPDATE SET raw = EXCLUDED.raw`,
		athleteID, entry.Date, raw)
	return err
}

func (s *PGStore) LoadProfile(ctx context.Context, athleteID string) Profile {
	var p Profile
	err := s.pool.QueryRow(ctx,
		`SELECT name, goals, injuries FROM profiles WHERE athlete_id = $1`, athleteID).
		Scan(&p.Name, &p.Goals, &p.Injuries)
	if err != nil {
		return DefaultProfile(athleteID)
	}
	return p
}

func (s *PGStore) SaveProfile(ctx context.Context, athleteID string, p Profile) error {
	if err := s.CreateAthlete(ctx, athleteID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (athlete_id, name, goals, injuries)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (athlete_id)
		DO UPDATE SET name = EXCLUDED.name, goals = EXCLUDED.goals, injuries = EXCLUDED.injuries`,
		athleteID, p.Name, p.Goals, p.Injuries)
	return err
}

func (s *PGStore) LoadPlan(ctx context.Context, athleteID string) string {
	var body string
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM plans WHERE athlete_id = $1`, athleteID).Scan(&body)
	if err != nil {
		return DefaultPlan
	}
	return body
}

func (s *PGStore) SavePlan(ctx context.Context, athleteID string, text string) error {
	if err := s.CreateAthlete(ctx, athleteID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO plans (athlete_id, body) VALUES ($1, $2)
		ON CONFLICT (athlete_id) DO UPDATE SET body = EXCLUDED.body`,
		athleteID, text)
	return err
}

func (s *PGStore) LoadChatHistory(ctx context.Context, athleteID string) ([]ChatMessage, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT messages FROM chat_histories WHERE athlete_id = $1`, athleteID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var messages []ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("parse chat history: %w", err)
	}
	return messages, nil
}

func (s *PGStore) SaveChatHistory(ctx context.Context, athleteID string, messages []ChatMessage) error {
	if err := s.CreateAthlete(ctx, athleteID); err != nil {
		return err
	}
	if messages == nil {
		messages = []ChatMessage{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chat_histories (athlete_id, messages) VALUES ($1, $2)
		ON CONFLICT (athlete_id) DO UPDATE SET messages = EXCLUDED.messages`,
		athleteID, raw)
	return err
}

func (s *PGStore) LoadPromptOverride(ctx context.Context, athleteID, modelID string) (string, bool, error) {
	var body string
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM prompt_overrides WHERE athlete_id = $1 AND model_id = $2`,
		athleteID, modelID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return body, true, nil
}

func (s *PGStore) SavePromptOverride(ctx context.Context, athleteID, modelID, text string) error {
	if err := s.CreateAthlete(ctx, athleteID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prompt_overrides (athlete_id, model_id, body) VALUES ($1, $2, $3)
		ON CONFLICT (athlete_id, model_id) DO UPDATE SET body = EXCLUDED.body`,
		athleteID, modelID, text)
	return err
}

var _ Store = (*PGStore)(nil)
