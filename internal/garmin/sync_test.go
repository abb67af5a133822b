package garmin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type memStore struct {
	saved map[string][]Activity
	fail  bool
}

func (m *memStore) SaveActivity(ctx context.Context, athleteID string, act Activity) error {
	if m.fail {
		return errors.New("disk full")
	}
	if m.saved == nil {
		m.saved = map[string][]Activity{}
	}
	m.saved[athleteID] = append(m.saved[athleteID], act)
	return nil
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "session-token"})
	return NewClient(ts, WithBaseURL(srv.URL))
}

func TestSyncSavesActivities(t *testing.T) {
	var gotQuery map[string]string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"startDate":    r.URL.Query().Get("startDate"),
			"endDate":      r.URL.Query().Get("endDate"),
			"activityType": r.URL.Query().Get("activityType"),
			"auth":         r.Header.Get("Authorization"),
		}
		w.Write([]byte(`[
			{"activityId": 101, "startTimeLocal": "2026-01-28 07:30:00", "distance": 10000, "duration": 3000},
			{"activityId": 0, "startTimeLocal": "2026-01-27 07:30:00", "distance": 5000, "duration": 1500},
			{"activityId": 102, "startTimeLocal": "2026-01-26 07:30:00", "distance": 8000, "duration": 2400}
		]`))
	})

	st := &memStore{}
	syncer := NewSyncer(client, st, zerolog.Nop())

	since := time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC)
	saved, err := syncer.Sync(context.Background(), "brian", since)
	require.NoError(t, err)

	// the zero-id record is skipped
	assert.Equal(t, 2, saved)
	require.Len(t, st.saved["brian"], 2)
	assert.Equal(t, int64(101), st.saved["brian"][0].ActivityID)
	assert.Equal(t, int64(102), st.saved["brian"][1].ActivityID)

	assert.Equal(t, "2026-01-23", gotQuery["startDate"])
	assert.Equal(t, "running", gotQuery["activityType"])
	assert.Equal(t, "Bearer session-token", gotQuery["auth"])
}

func TestSyncSessionExpired(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	syncer := NewSyncer(client, &memStore{}, zerolog.Nop())
	_, err := syncer.Sync(context.Background(), "brian", time.Now().AddDate(0, 0, -7))
	assert.True(t, errors.Is(err, ErrSessionExpired))
}

func TestSyncStoreFailure(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"activityId": 101, "startTimeLocal": "2026-01-28 07:30:00"}]`))
	})

	syncer := NewSyncer(client, &memStore{fail: true}, zerolog.Nop())
	saved, err := syncer.Sync(context.Background(), "brian", time.Now().AddDate(0, 0, -7))
	require.Error(t, err)
	assert.Equal(t, 0, saved)
	assert.Contains(t, err.Error(), "save activity 101")
}

func TestSyncMessage(t *testing.T) {
	since := time.Date(2026, 1, 23, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		saved int
		err   error
		want  string
	}{
		{"success", 3, nil, "Successfully synced 3 activities since 2026-01-23."},
		{"none found", 0, nil, "No activities found since 2026-01-23."},
		{"expired", 0, ErrSessionExpired, "Session expired or corrupted. Please re-authenticate with Garmin Connect."},
		{"not authenticated", 0, ErrNotAuthenticated, "Session expired or corrupted. Please re-authenticate with Garmin Connect."},
		{"other error", 0, errors.New("boom"), "Garmin Sync Error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SyncMessage(tt.saved, since, tt.err))
		})
	}
}

func TestActivityTypeKeyDefault(t *testing.T) {
	assert.Equal(t, "run", Activity{}.TypeKey())
	assert.Equal(t, "cycling", Activity{ActivityType: ActivityType{TypeKey: "cycling"}}.TypeKey())
}

func TestSortByStartDesc(t *testing.T) {
	acts := []Activity{
		{ActivityID: 1, StartTimeLocal: "2026-01-26 07:00:00"},
		{ActivityID: 2, StartTimeLocal: "2026-01-28 07:00:00"},
		{ActivityID: 3, StartTimeLocal: "2026-01-27 07:00:00"},
	}
	SortByStartDesc(acts)
	assert.Equal(t, int64(2), acts[0].ActivityID)
	assert.Equal(t, int64(3), acts[1].ActivityID)
	assert.Equal(t, int64(1), acts[2].ActivityID)
}
