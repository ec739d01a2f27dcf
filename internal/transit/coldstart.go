package transit

import "time"

const coldStartBaseHours = 24

// ColdStartEstimate is the fixed-heuristic projection used before a user has
// any personalized history.
type ColdStartEstimate struct {
	At           time.Time `json:"at"`
	TransitHours float64   `json:"transit_hours"`
	Reason       string    `json:"reason"`
}

// ColdStart projects from the last elimination with a 24 h base, shortened
// for a large stock and lengthened for a small one.
func ColdStart(lastElimination time.Time, stockG float64) ColdStartEstimate {
	hours := float64(coldStartBaseHours)
	reason := "typical digestion speed"

	switch {
	case stockG > 1000:
		hours -= 6
		reason = "very large intake, faster transit"
	case stockG > 600:
		hours -= 3
		reason = "large intake, slightly faster transit"
	case stockG < 200:
		hours += 4
		reason = "small intake, slower transit"
	}

	return ColdStartEstimate{
		At:           lastElimination.Add(time.Duration(hours * float64(time.Hour))),
		TransitHours: hours,
		Reason:       reason,
	}
}
