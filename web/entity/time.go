package entity

import (
	"strconv"
	"time"

	"scenario-annotator/logger"
)

// TimestampLayout is how the annotator writes times: ISO-8601 with microseconds and offset.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// layouts accepted when reading stored times. Values without an offset are local time.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses the ISO-8601 forms found in users.json and annotation files.
func ParseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// Timestamp is a time.Time that reads any accepted ISO-8601 form and writes TimestampLayout.
// A value it cannot parse decodes to the zero time and is written back as it was read.
type Timestamp struct {
	time.Time

	raw string
}

func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() && t.raw != "" {
		return []byte(t.raw), nil
	}
	return []byte(strconv.Quote(FormatTimestamp(t.Time))), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	*t = Timestamp{}
	s, err := strconv.Unquote(string(data))
	if err == nil {
		t.Time, err = ParseTimestamp(s)
	}
	if err != nil {
		logger.Warningf("keeping unreadable timestamp %s: %v", data, err)
		t.raw = string(data)
	}
	return nil
}
