package models

import "time"

// DayFormat is the calendar-day key format used by selection records.
const DayFormat = "2006-01-02"

// SelectionRecord maps a calendar day to the photo featured on that day.
// One record exists per day; once written it is never overwritten.
type SelectionRecord struct {
	Day        string    `json:"day"` // YYYY-MM-DD
	PhotoID    string    `json:"photoId"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// Day returns t's calendar day in the selection-record key format.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}
