package analytics

import (
	"testing"

	"CoinPulse/internal/domain/models"
)

func TestResolveWindow(t *testing.T) {
	cases := []struct {
		date       models.AnomalyDate
		start, end string
	}{
		{"2023-01-03", "2022-12-27", "2023-01-10"},
		{"2024-02-25", "2024-02-18", "2024-03-03"},
		{"2023-02-25", "2023-02-18", "2023-03-04"},
		{"2022-12-31", "2022-12-24", "2023-01-07"},
	}
	for _, tc := range cases {
		w, err := ResolveWindow(tc.date)
		if err != nil {
			t.Fatalf("%s: %v", tc.date, err)
		}
		if w.StartDate() != tc.start || w.EndDate() != tc.end {
			t.Fatalf("%s: got [%s, %s], want [%s, %s]", tc.date, w.StartDate(), w.EndDate(), tc.start, tc.end)
		}
		if w.Date != tc.date {
			t.Fatalf("window date %s", w.Date)
		}
	}
}

func TestResolveWindowInvalidDate(t *testing.T) {
	for _, d := range []models.AnomalyDate{"", "2023-13-01", "03/01/2023"} {
		if _, err := ResolveWindow(d); err == nil {
			t.Fatalf("%q: expected error", d)
		}
	}
}
