package checklist

import (
	"testing"
	"time"

	"isru-daily/internal/store"
)

func day(offset int) time.Time {
	base := time.Date(2025, 8, 10, 14, 30, 0, 0, time.Local)
	return base.AddDate(0, 0, offset)
}

func TestStreakIncrementsOncePerDay(t *testing.T) {
	st := openTestStore(t)
	s := NewStreak(st)
	s.Load(day(0))

	s.OnCompletion(day(0))
	if got := s.Record().Count; got != 1 {
		t.Fatalf("after first completion: %d", got)
	}

	// Same day again: no double credit.
	s.OnCompletion(day(0))
	if got := s.Record().Count; got != 1 {
		t.Fatalf("same-day completion double-credited: %d", got)
	}

	s.OnCompletion(day(1))
	if got := s.Record().Count; got != 2 {
		t.Fatalf("next-day completion: %d", got)
	}
}

func TestStreakLoadCarriesOverOneDayGap(t *testing.T) {
	st := openTestStore(t)
	s := NewStreak(st)
	s.Load(day(0))
	s.OnCompletion(day(0))

	// Next day, app restarts before any completion.
	s2 := NewStreak(st)
	s2.Load(day(1))
	if got := s2.Record().Count; got != 2 {
		t.Fatalf("one-day gap on load: %d, want 2", got)
	}
}

func TestStreakLoadResetsLongGap(t *testing.T) {
	st := openTestStore(t)
	s := NewStreak(st)
	s.Load(day(0))
	s.OnCompletion(day(0))

	s2 := NewStreak(st)
	s2.Load(day(3))
	if got := s2.Record().Count; got != 0 {
		t.Fatalf("three-day gap on load: %d, want 0", got)
	}
	if v, _, _ := st.Get(store.KeyCurrentStreak); v != "0" {
		t.Fatalf("persisted streak after reset: %q", v)
	}
}

func TestStreakLoadSameDayIsNoop(t *testing.T) {
	st := openTestStore(t)
	s := NewStreak(st)
	s.Load(day(0))
	s.OnCompletion(day(0))

	s2 := NewStreak(st)
	s2.Load(day(0))
	if got := s2.Record().Count; got != 1 {
		t.Fatalf("same-day reload: %d, want 1", got)
	}
}

func TestStreakToleratesGarbage(t *testing.T) {
	st := openTestStore(t)
	if err := st.Set(store.KeyCurrentStreak, "lots"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.Set(store.KeyLastCompletedDate, "not a date"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewStreak(st)
	s.Load(day(0))
	if got := s.Record().Count; got != 0 {
		t.Fatalf("garbage store: %d, want 0", got)
	}

	s.OnCompletion(day(0))
	if got := s.Record().Count; got != 1 {
		t.Fatalf("completion after garbage: %d, want 1", got)
	}
}

func TestDaysBetween(t *testing.T) {
	now := day(0)
	cases := []struct {
		last string
		want int
	}{
		{day(0).Format(DateFormat), 0},
		{day(-1).Format(DateFormat), 1},
		{day(-5).Format(DateFormat), 5},
		{day(1).Format(DateFormat), 0},
	}
	for _, c := range cases {
		if got := daysBetween(c.last, now); got != c.want {
			t.Fatalf("daysBetween(%q): got %d, want %d", c.last, got, c.want)
		}
	}
}
