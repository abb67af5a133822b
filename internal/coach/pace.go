// Package coach is the coaching core: it turns an athlete's activity
// and journal data into a bounded context block for a language model
// and dispatches completion requests to the selected backend.
package coach

import "fmt"

// FormatPace renders a speed in m/s as a min/km pace string ("M:SS").
// Both fields truncate rather than round so the output is stable across
// platforms. Non-positive speeds (missing GPS data) render as "0:00".
func FormatPace(speed float64) string {
	if speed <= 0 {
		return "0:00"
	}
	pace := 1000.0 / 60.0 / speed // decimal minutes per km
	minutes := int(pace)
	seconds := int((pace - float64(minutes)) * 60)
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
