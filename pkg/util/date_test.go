package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
	got, ok = ParseTime(strconv.FormatInt(ts*1000, 10))
	if !ok || got.Unix() != ts {
		t.Fatalf("unexpected unix from ms %v", got.Unix())
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2025-05-01", "2025/05/01", " 2025-05-01 ", "05/01/2025", "2025-05-01T16:00:00Z", "2025-05-01 09:30:00"} {
		got, ok := ParseDate(s)
		if !ok {
			t.Fatalf("ParseDate(%q) not ok", s)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, s := range []string{"", "yesterday", "2025-13-45", "-5"} {
		if _, ok := ParseDate(s); ok {
			t.Fatalf("ParseDate(%q) should fail", s)
		}
	}
}
