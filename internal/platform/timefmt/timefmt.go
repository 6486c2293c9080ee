package timefmt

import "fmt"

// Clock renders a second count as HH:MM:SS. Hours are not wrapped at 24 so
// cumulative totals such as 35h stay readable.
func Clock(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
