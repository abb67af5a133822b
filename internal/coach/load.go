package coach

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/conejito/coach/internal/garmin"
)

// NoTrainingDataMessage is the report for an empty activity set.
const NoTrainingDataMessage = "No training data available."

// trendWeeks is how many of the most recent ISO weeks the breakdown
// covers.
const trendWeeks = 4

type weeklyBucket struct {
	distanceKm  float64
	sessions    int
	durationMin float64
	elevGain    float64
	longestKm   float64
}

// ComputeTrainingStats buckets the activity set into ISO calendar weeks
// and produces a human-readable load report: weekly breakdown for the
// last 4 distinct weeks present in the data, week-over-week volume
// change, and month/year totals relative to now. It is a pure function
// of the activity set and now; nothing is persisted between calls.
//
// Activities whose start date does not parse as YYYY-MM-DD are skipped
// from the week buckets but still counted in the month/year totals,
// which match on the raw date-string prefix. The two filters are
// deliberately left inconsistent to preserve observed behavior.
func ComputeTrainingStats(activities []garmin.Activity, now time.Time) string {
	if len(activities) == 0 {
		return NoTrainingDataMessage
	}

	weeks := make(map[string]*weeklyBucket)
	for _, act := range activities {
		ts := act.StartTimeLocal
		if len(ts) < 10 {
			continue
		}
		day, err := time.Parse("2006-01-02", ts[:10])
		if err != nil {
			continue
		}
		year, week := day.ISOWeek()
		key := fmt.Sprintf("%d-W%02d", year, week)

		b := weeks[key]
		if b == nil {
			b = &weeklyBucket{}
			weeks[key] = b
		}
		km := act.Distance / 1000.0
		b.distanceKm += km
		b.sessions++
		b.durationMin += act.Duration / 60.0
		b.elevGain += act.ElevationGain
		if km > b.longestKm {
			b.longestKm = km
		}
	}

	keys := make([]string, 0, len(weeks))
	for k := range weeks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > trendWeeks {
		keys = keys[len(keys)-trendWeeks:]
	}

	var report strings.Builder
	report.WriteString("Weekly breakdown (last 4 weeks):\n")
	for _, key := range keys {
		b := weeks[key]
		fmt.Fprintf(&report, "%s: %.1fkm | %d sessions | %dmin | %dm climb | longest %.1fkm\n",
			key, b.distanceKm, b.sessions,
			int(math.Round(b.durationMin)), int(math.Round(b.elevGain)), b.longestKm)
	}

	if len(keys) >= 2 {
		prev := weeks[keys[len(keys)-2]].distanceKm
		cur := weeks[keys[len(keys)-1]].distanceKm
		if prev > 0 {
			change := int(math.Round((cur - prev) / prev * 100))
			fmt.Fprintf(&report, "Week-over-week volume: %+d%%\n", change)
		}
	}

	monthPrefix := now.Format("2006-01")
	yearPrefix := now.Format("2006")
	var monthKm, yearKm float64
	for _, act := range activities {
		if strings.HasPrefix(act.StartTimeLocal, monthPrefix) {
			monthKm += act.Distance / 1000.0
		}
		if strings.HasPrefix(act.StartTimeLocal, yearPrefix) {
			yearKm += act.Distance / 1000.0
		}
	}
	fmt.Fprintf(&report, "Current month (%s): %.1fkm\n", monthPrefix, monthKm)
	fmt.Fprintf(&report, "Current year (%s): %.1fkm", yearPrefix, yearKm)

	return report.String()
}
