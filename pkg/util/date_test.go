package util

import (
	"reflect"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2023-01-03")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}
	for _, bad := range []string{"", "2023-1-3", "2023-02-30", "03/01/2023"} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestDateFromMillisTruncates(t *testing.T) {
	ms := time.Date(2023, 1, 3, 23, 59, 59, 999e6, time.UTC).UnixMilli()
	if got := DateFromMillis(ms); got != "2023-01-03" {
		t.Fatalf("got %s", got)
	}
}

func TestShiftDays(t *testing.T) {
	d := time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)
	if got := ShiftDays(d, 7).Format(DateLayout); got != "2024-03-03" {
		t.Fatalf("got %s", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" Bitcoin, ethereum,,bitcoin ")
	if !reflect.DeepEqual(got, []string{"bitcoin", "ethereum"}) {
		t.Fatalf("got %v", got)
	}
	if got := SplitList(""); len(got) != 0 {
		t.Fatalf("expected empty, got %v", got)
	}
}
