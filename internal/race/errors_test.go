package race

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesSentinelForKind(t *testing.T) {
	cases := []struct {
		kind ErrorKind
		want error
	}{
		{KindInvalid, ErrInvalid},
		{KindNotFound, ErrNotFound},
		{KindNotActive, ErrNotActive},
		{KindConflict, ErrConflict},
		{KindNoActiveSession, ErrNoActiveSession},
		{KindDoubleCount, ErrDoubleCount},
		{KindInternal, ErrInternal},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := fmt.Errorf("outer: %w", Errorf("op", tc.kind, "boom"))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected errors.Is to match %v", tc.want)
			}
			if KindOf(err) != tc.kind {
				t.Fatalf("KindOf: got %s, want %s", KindOf(err), tc.kind)
			}
		})
	}
}

func TestErrorWrapUnwrap(t *testing.T) {
	root := errors.New("db down")
	err := Wrap("store.append_lap", KindInternal, root)

	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is to match cause")
	}
	if !IsKind(err, KindInternal) {
		t.Fatalf("expected IsKind internal")
	}
	if IsKind(errors.New("plain"), KindInternal) {
		t.Fatalf("plain errors carry no kind")
	}
}

func TestRetryAfterOnlyForDoubleCount(t *testing.T) {
	if got := RetryAfter(Suppressed("lap", 3)); got != 3 {
		t.Fatalf("RetryAfter: got %d, want 3", got)
	}
	if got := RetryAfter(Errorf("lap", KindConflict, "x")); got != 0 {
		t.Fatalf("RetryAfter on conflict: got %d, want 0", got)
	}
}
