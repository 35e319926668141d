package model

import (
	"fmt"
	"strings"
	"time"
)

// Time wraps time.Time to tolerate the backend's timestamp formats. The
// server serializes java LocalDateTime without a zone offset ("2006-01-02T15:04:05"
// with optional fractional seconds), while some payloads carry full RFC 3339.
type Time struct {
	time.Time
}

const localDateTime = "2006-01-02T15:04:05"

var timeLayouts = []string{
	time.RFC3339Nano,
	localDateTime + ".999999999",
	localDateTime,
}

// UnmarshalJSON parses either RFC 3339 or a bare LocalDateTime string.
// Zoneless timestamps are taken as UTC.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", s)
}

// MarshalJSON emits RFC 3339.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}

// FromMillis builds a Time from a unix-millisecond value, as stored in the
// local cache.
func FromMillis(ms int64) Time {
	if ms == 0 {
		return Time{}
	}
	return Time{time.UnixMilli(ms).UTC()}
}
