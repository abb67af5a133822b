package coach

import (
	"fmt"
	"math"
	"strings"

	"github.com/conejito/coach/internal/garmin"
)

// NoActivitiesMessage is the summary for an empty activity set.
const NoActivitiesMessage = "No recent activities recorded."

// maxSummarized caps the training log at the most recent activities so
// the prompt stays bounded regardless of how much history is synced.
const maxSummarized = 10

// SummarizeActivities renders one line per activity, capped at the 10
// most recent. The input is assumed already ordered recency-descending
// by the caller.
func SummarizeActivities(activities []garmin.Activity) string {
	if len(activities) == 0 {
		return NoActivitiesMessage
	}
	if len(activities) > maxSummarized {
		activities = activities[:maxSummarized]
	}

	lines := make([]string, 0, len(activities))
	for _, act := range activities {
		lines = append(lines, summaryLine(act))
	}
	return strings.Join(lines, "\n")
}

// summaryLine formats a single activity. Optional fields (elevation,
// cadence, training effect) are omitted entirely when absent; heart rate
// always shows, with an N/A fallback.
func summaryLine(act garmin.Activity) string {
	date := act.StartTimeLocal
	if len(date) >= 10 {
		date = date[:10]
	} else if date == "" {
		date = "Unknown"
	}

	avgHR := "N/A"
	if act.AverageHR > 0 {
		avgHR = fmt.Sprintf("%d", int(act.AverageHR))
	}

	fields := []string{
		fmt.Sprintf("- %s: %s", date, capitalize(act.TypeKey())),
		fmt.Sprintf("%.2fkm in %.1fmin", act.Distance/1000.0, act.Duration/60.0),
		fmt.Sprintf("Pace: %s min/km", FormatPace(act.AverageSpeed)),
		fmt.Sprintf("Avg HR: %s", avgHR),
	}
	if act.ElevationGain > 0 {
		fields = append(fields, fmt.Sprintf("Elev: %dm", int(math.Round(act.ElevationGain))))
	}
	if act.AverageRunningCadence > 0 {
		fields = append(fields, fmt.Sprintf("Cadence: %d", int(math.Round(act.AverageRunningCadence))))
	}
	if act.AerobicTrainingEffect > 0 {
		te := fmt.Sprintf("TE: %.1f", act.AerobicTrainingEffect)
		if act.TrainingEffectLabel != "" {
			te += fmt.Sprintf(" (%s)", act.TrainingEffectLabel)
		}
		fields = append(fields, te)
	}

	return strings.Join(fields, " | ")
}
