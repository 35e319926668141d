package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimeUnmarshalFormats(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{`"2026-03-01T10:30:00"`, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
		{`"2026-03-01T10:30:00.5"`, time.Date(2026, 3, 1, 10, 30, 0, 500000000, time.UTC)},
		{`"2026-03-01T10:30:00Z"`, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
		{`"2026-03-01T10:30:00+02:00"`, time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)},
		{`null`, time.Time{}},
	}
	for _, tc := range cases {
		var ts Time
		if err := json.Unmarshal([]byte(tc.in), &ts); err != nil {
			t.Errorf("%s: %v", tc.in, err)
			continue
		}
		if !ts.Time.Equal(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.in, ts.Time, tc.want)
		}
	}
}

func TestTimeUnmarshalRejectsGarbage(t *testing.T) {
	var ts Time
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestTimeRoundTrip(t *testing.T) {
	orig := Time{time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)}
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatal(err)
	}
	var back Time
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Time.Equal(orig.Time) {
		t.Errorf("round trip: got %v, want %v", back.Time, orig.Time)
	}
}
