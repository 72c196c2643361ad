package race

import (
	"testing"
	"time"
)

func TestSuppressionWindow(t *testing.T) {
	last := time.Date(2026, 6, 13, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		last      time.Time
		timeout   int
		now       time.Time
		wantBlock bool
		wantRetry int
	}{
		{name: "disabled with zero timeout", last: last, timeout: 0, now: last, wantBlock: false},
		{name: "disabled with negative timeout", last: last, timeout: -3, now: last, wantBlock: false},
		{name: "no prior lap", timeout: 5, now: last, wantBlock: false},
		{name: "same instant", last: last, timeout: 5, now: last, wantBlock: true, wantRetry: 5},
		{name: "fractional elapsed rounds up", last: last, timeout: 5, now: last.Add(1500 * time.Millisecond), wantBlock: true, wantRetry: 4},
		{name: "just before expiry", last: last, timeout: 5, now: last.Add(4900 * time.Millisecond), wantBlock: true, wantRetry: 1},
		{name: "exactly at timeout", last: last, timeout: 5, now: last.Add(5 * time.Second), wantBlock: false},
		{name: "after timeout", last: last, timeout: 5, now: last.Add(6 * time.Second), wantBlock: false},
		{name: "clock behind last lap", last: last, timeout: 5, now: last.Add(-2 * time.Second), wantBlock: true, wantRetry: 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block, retry := SuppressionWindow(tc.last, tc.timeout, tc.now)
			if block != tc.wantBlock {
				t.Fatalf("suppress: got %v, want %v", block, tc.wantBlock)
			}
			if retry != tc.wantRetry {
				t.Fatalf("retryAfter: got %d, want %d", retry, tc.wantRetry)
			}
		})
	}
}

func TestNextLapNumber(t *testing.T) {
	cases := []struct {
		prior, supplied, want int
	}{
		{0, 0, 1},
		{1, 0, 2},
		{2, 0, 3},
		{7, 42, 42},
	}
	for _, c := range cases {
		if got := NextLapNumber(c.prior, c.supplied); got != c.want {
			t.Errorf("NextLapNumber(%d, %d) = %d, want %d", c.prior, c.supplied, got, c.want)
		}
	}
}
