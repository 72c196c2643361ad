package race

import (
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		got, err := ParseStatus(string(s))
		if err != nil || got != s {
			t.Fatalf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}
	if _, err := ParseStatus(" Active "); err != nil {
		t.Fatalf("expected case and space insensitive parse, got %v", err)
	}
	if _, err := ParseStatus("running"); !IsKind(err, KindInvalid) {
		t.Fatalf("want invalid for unknown status, got %v", err)
	}
}

func TestOnlyActiveCounts(t *testing.T) {
	for _, s := range Statuses {
		if s.Counting() != (s == StatusActive) {
			t.Fatalf("%s: Counting() = %v", s, s.Counting())
		}
	}
}

func TestApplyStatusStampsStartOnce(t *testing.T) {
	t0 := time.Date(2026, 6, 13, 12, 0, 0, 0, time.UTC)
	c := Competition{Status: StatusUpcoming}

	c = c.ApplyStatus(StatusActive, t0)
	c = c.ApplyStatus(StatusPaused, t0.Add(time.Hour))
	c = c.ApplyStatus(StatusActive, t0.Add(2*time.Hour))

	if c.ActualStartTime == nil || !c.ActualStartTime.Equal(t0) {
		t.Fatalf("start time: got %v, want %v", c.ActualStartTime, t0)
	}
	if c.ActualEndTime != nil {
		t.Fatalf("end time should be unset while running")
	}

	c = c.ApplyStatus(StatusCompleted, t0.Add(24*time.Hour))
	if c.ActualEndTime == nil || !c.ActualEndTime.Equal(t0.Add(24*time.Hour)) {
		t.Fatalf("end time: got %v", c.ActualEndTime)
	}
}

func TestSwimmerValidate_GuardianRule(t *testing.T) {
	cases := []struct {
		name    string
		swimmer Swimmer
		wantErr bool
	}{
		{name: "adult without guardian", swimmer: Swimmer{Name: "Ada"}},
		{name: "under age with guardian", swimmer: Swimmer{Name: "Tim", IsUnderAge: true, GuardianName: "Eva", GuardianContact: "0151"}},
		{name: "under age missing name", swimmer: Swimmer{Name: "Tim", IsUnderAge: true, GuardianContact: "0151"}, wantErr: true},
		{name: "under age blank contact", swimmer: Swimmer{Name: "Tim", IsUnderAge: true, GuardianName: "Eva", GuardianContact: "  "}, wantErr: true},
		{name: "missing name", swimmer: Swimmer{}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.swimmer.Validate()
			if tc.wantErr && !IsKind(err, KindInvalid) {
				t.Fatalf("expected invalid, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestSessionWaterSeconds(t *testing.T) {
	start := time.Date(2026, 6, 13, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	if got := (Session{StartTime: start, EndTime: &end}).WaterSeconds(); got != 90 {
		t.Fatalf("closed session: got %v, want 90", got)
	}
	if got := (Session{StartTime: start, IsActive: true}).WaterSeconds(); got != 0 {
		t.Fatalf("open session: got %v, want 0", got)
	}
}
