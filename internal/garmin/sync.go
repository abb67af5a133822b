package garmin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNotAuthenticated means no stored Garmin session exists for the
	// athlete and an interactive login is required.
	ErrNotAuthenticated = errors.New("garmin: not authenticated")

	// ErrSessionExpired means the stored session was rejected by Garmin
	// and must be re-established.
	ErrSessionExpired = errors.New("garmin: session expired")
)

// ActivityStore is the slice of the persistence layer the syncer needs.
type ActivityStore interface {
	SaveActivity(ctx context.Context, athleteID string, act Activity) error
}

// Syncer pulls recent activities from Garmin Connect and stores the raw
// records. Records without an activity identifier are skipped; existing
// identifiers are overwritten in place, so re-syncing a window is safe.
type Syncer struct {
	client *Client
	store  ActivityStore
	logger zerolog.Logger
}

func NewSyncer(client *Client, store ActivityStore, logger zerolog.Logger) *Syncer {
	return &Syncer{client: client, store: store, logger: logger}
}

// Sync fetches activities since the given date (through today) and saves
// them. Returns the number of records stored.
func (s *Syncer) Sync(ctx context.Context, athleteID string, since time.Time) (int, error) {
	now := time.Now()
	activities, err := s.client.ActivitiesByDate(ctx, since, now, "running")
	if err != nil {
		return 0, err
	}

	saved := 0
	for _, act := range activities {
		if act.ActivityID == 0 {
			continue
		}
		if err := s.store.SaveActivity(ctx, athleteID, act); err != nil {
			return saved, fmt.Errorf("save activity %d: %w", act.ActivityID, err)
		}
		saved++
	}

	s.logger.Info().
		Str("athlete", athleteID).
		Int("saved", saved).
		Time("since", since).
		Msg("garmin sync complete")
	return saved, nil
}

// SyncMessage converts a sync outcome into the user-facing string the
// settings surface shows. Errors never propagate past this boundary.
func SyncMessage(saved int, since time.Time, err error) string {
	switch {
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrNotAuthenticated):
		return "Session expired or corrupted. Please re-authenticate with Garmin Connect."
	case err != nil:
		return fmt.Sprintf("Garmin Sync Error: %v", err)
	case saved == 0:
		return fmt.Sprintf("No activities found since %s.", since.Format("2006-01-02"))
	default:
		return fmt.Sprintf("Successfully synced %d activities since %s.", saved, since.Format("2006-01-02"))
	}
}
