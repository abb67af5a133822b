// Package garmin provides the Garmin Connect activity model and a client
// for syncing activities into local storage.
package garmin

import "sort"

// ActivityType wraps the Garmin activity type descriptor
type ActivityType struct {
	TypeKey string `json:"typeKey"`
}

// Activity is a single synced Garmin Connect activity. Field names match
// the Connect API payload so raw records round-trip unchanged. Activities
// are immutable once synced; ActivityID is the deduplication key.
type Activity struct {
	ActivityID            int64        `json:"activityId"`
	ActivityName          string       `json:"activityName,omitempty"`
	StartTimeLocal        string       `json:"startTimeLocal"`
	ActivityType          ActivityType `json:"activityType"`
	Distance              float64      `json:"distance"`
	Duration              float64      `json:"duration"`
	AverageHR             float64      `json:"averageHR,omitempty"`
	MaxHR                 float64      `json:"maxHR,omitempty"`
	AverageSpeed          float64      `json:"averageSpeed,omitempty"`
	ElevationGain         float64      `json:"elevationGain,omitempty"`
	AverageRunningCadence float64      `json:"averageRunningCadenceInStepsPerMinute,omitempty"`
	AerobicTrainingEffect float64      `json:"aerobicTrainingEffect,omitempty"`
	TrainingEffectLabel   string       `json:"trainingEffectLabel,omitempty"`
	VO2MaxValue           float64      `json:"vO2MaxValue,omitempty"`
	Calories              float64      `json:"calories,omitempty"`
}

// TypeKey returns the activity type key, defaulting to "run" when the
// descriptor is missing from the raw record.
func (a Activity) TypeKey() string {
	if a.ActivityType.TypeKey == "" {
		return "run"
	}
	return a.ActivityType.TypeKey
}

// SortByStartDesc orders activities most-recent-first by start timestamp.
// The timestamps are "YYYY-MM-DD HH:MM:SS" strings, so lexical order is
// chronological order. Ties keep their original relative order.
func SortByStartDesc(activities []Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].StartTimeLocal > activities[j].StartTimeLocal
	})
}
