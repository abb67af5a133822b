package jobs

const TaskSyncGarmin = "sync:garmin_athlete"

type SyncGarminPayload struct {
	AthleteID string `json:"athlete_id"`
	SinceUnix int64  `json:"since_unix,omitempty"`
}
