package model

import (
	"testing"
	"time"
)

func TestFarmPeriodWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := FarmPeriod{StartTime: start, Duration: 24 * time.Hour}

	if !p.EndTime().Equal(start.Add(24 * time.Hour)) {
		t.Fatalf("end = %v", p.EndTime())
	}

	cases := []struct {
		ts   time.Time
		want bool
	}{
		{start.Add(-time.Second), false},
		{start, true}, // start is inclusive
		{start.Add(12 * time.Hour), true},
		{p.EndTime().Add(-time.Second), true},
		{p.EndTime(), false}, // end is exclusive
		{p.EndTime().Add(time.Second), false},
	}
	for _, tc := range cases {
		if got := p.Contains(tc.ts); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.ts, got, tc.want)
		}
	}
}
