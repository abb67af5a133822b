package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/conejito/coach/internal/config"
	"github.com/conejito/coach/internal/garmin"
	"github.com/conejito/coach/internal/jobs"
	"github.com/conejito/coach/internal/metrics"
	"github.com/conejito/coach/internal/store"
)

// defaultSyncWindow is how far back a sync reaches when the payload does
// not say otherwise.
const defaultSyncWindow = 7 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}

	// Garmin tokens live on disk regardless of which store backs the
	// athlete data, so the worker always needs a file layout for them.
	tokens, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("token store error: %v", err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Garmin.ClientID,
		ClientSecret: cfg.Garmin.ClientSecret,
		Endpoint:     garmin.Endpoint,
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency:    8,
		StrictPriority: false,
		Queues: map[string]int{
			"sync":    10, // higher priority
			"default": 5,  // default priority
		},
	})
	mux := asynq.NewServeMux()

	mux.HandleFunc(jobs.TaskSyncGarmin, func(ctx context.Context, t *asynq.Task) error {
		var p jobs.SyncGarminPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			logger.Error().Err(err).Msg("bad sync payload")
			return err
		}

		since := time.Now().Add(-defaultSyncWindow)
		if p.SinceUnix != 0 {
			since = time.Unix(p.SinceUnix, 0)
		}

		start := time.Now()
		saved, err := syncAthlete(ctx, oauthCfg, tokens, st, logger, p.AthleteID, since)
		elapsed := time.Since(start)

		if err != nil {
			if isRetryableError(err) {
				logger.Warn().Err(err).Str("athlete", p.AthleteID).Dur("elapsed", elapsed).
					Msg("sync failed, will retry")
				metrics.SyncsTotal.WithLabelValues(metrics.ResultFailure).Inc()
				return err // allow retry
			}
			logger.Error().Err(err).Str("athlete", p.AthleteID).Dur("elapsed", elapsed).
				Msg("sync failed permanently, dropping job")
			metrics.SyncsTotal.WithLabelValues(metrics.ResultFailure).Inc()
			return nil // don't retry permanent failures
		}

		logger.Info().Str("athlete", p.AthleteID).Int("saved", saved).Dur("elapsed", elapsed).
			Msg("sync done")
		metrics.SyncsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
		metrics.ActivitiesSynced.Add(float64(saved))
		return nil
	})

	log.Println("Worker running...")
	log.Fatal(srv.Run(mux))
}

func syncAthlete(ctx context.Context, oauthCfg *oauth2.Config, tokens *store.FileStore, st store.Store, logger zerolog.Logger, athleteID string, since time.Time) (int, error) {
	ts, err := garmin.TokenSource(ctx, oauthCfg, tokens.TokenPath(athleteID))
	if err != nil {
		return 0, err
	}
	client := garmin.NewClient(ts)
	syncer := garmin.NewSyncer(client, st, logger)
	return syncer.Sync(ctx, athleteID, since)
}

// isRetryableError determines if an error should trigger a job retry
func isRetryableError(err error) bool {
	errStr := strings.ToLower(err.Error())

	// Network/connectivity issues - should retry
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "dns") {
		return true
	}

	// Rate limiting - should retry later
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") {
		return true
	}

	// Temporary server errors - should retry
	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") {
		return true
	}

	// Everything else (auth failures, bad data, etc.) - don't retry
	return false
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.HasPostgres() {
		return store.OpenPG(context.Background(), cfg.DatabaseURL)
	}
	return store.NewFileStore(cfg.DataDir)
}
