package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// TimestampLayout is the storage and display format for every event time:
// minute resolution, no seconds, no zone.
const TimestampLayout = "2006-01-02 15:04"

// FormatTimestamp renders t in TimestampLayout. Seconds are dropped.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string in the local zone.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "model: parse timestamp %q", s)
	}
	return t, nil
}

// TruncateMinute drops seconds and sub-second precision so a value survives
// a FormatTimestamp/ParseTimestamp round trip unchanged.
func TruncateMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}
