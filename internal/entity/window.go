package entity

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect:
// startA < endB && startB < endA.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

func (w Window) Valid() bool {
	return w.End.After(w.Start)
}

// FullDayWindow returns [date 00:00, date+1 00:00) in the date's location.
func FullDayWindow(date time.Time) Window {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// ShortWindow returns the fixed-duration window starting at the given time.
func ShortWindow(start time.Time) Window {
	return Window{Start: start, End: start.Add(ShortRentalDuration)}
}
