package checklist

import (
	"strconv"
	"time"

	"isru-daily/internal/model"
	"isru-daily/internal/store"
)

// DateFormat renders a local calendar date with no time component
// ("Thu Aug 28 2025"). It matches the format the page era persisted, so an
// imported browser store keeps its streak.
const DateFormat = "Mon Jan 02 2006"

// Streak tracks consecutive calendar days with at least one task completion.
//
// Both entry points (completion and load) independently reconcile against the
// current date: the user may reopen the app days later without completing
// anything, and a completion may be the first activity after a gap. The
// crediting path only ever increments; resets happen on load.
type Streak struct {
	st  *store.Store
	rec model.StreakRecord
}

func NewStreak(st *store.Store) *Streak {
	return &Streak{st: st}
}

// Load reads the persisted record and reconciles it against now's date:
// same day => unchanged, exactly one day since the last credit => increment
// (carried-over streak), longer gap => reset to 0.
func (s *Streak) Load(now time.Time) {
	s.rec = model.StreakRecord{}
	if v, ok, err := s.st.Get(store.KeyCurrentStreak); err == nil && ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			s.rec.Count = n
		}
	}
	if v, ok, err := s.st.Get(store.KeyLastCompletedDate); err == nil && ok {
		s.rec.LastCompletedDate = v
	}

	today := now.Format(DateFormat)
	if s.rec.LastCompletedDate == today {
		return
	}
	if s.rec.LastCompletedDate != "" {
		switch gap := daysBetween(s.rec.LastCompletedDate, now); {
		case gap == 1:
			s.rec.Count++
		case gap > 1:
			s.rec.Count = 0
		}
	}
	_ = s.st.Set(store.KeyCurrentStreak, strconv.Itoa(s.rec.Count))
}

// OnCompletion credits today's first completion. Idempotent per calendar day.
func (s *Streak) OnCompletion(now time.Time) {
	today := now.Format(DateFormat)
	if s.rec.LastCompletedDate != today {
		s.rec.Count++
		_ = s.st.Set(store.KeyCurrentStreak, strconv.Itoa(s.rec.Count))
	}
	s.rec.LastCompletedDate = today
	_ = s.st.Set(store.KeyLastCompletedDate, today)
}

// Record returns the current streak state.
func (s *Streak) Record() model.StreakRecord { return s.rec }

// daysBetween returns the whole-day gap between a persisted date string and
// now, via floor division of the millisecond difference. Unparseable dates
// count as a long gap.
func daysBetween(last string, now time.Time) int {
	t, err := time.ParseInLocation(DateFormat, last, time.Local)
	if err != nil {
		return 1 << 20
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	diff := today.Sub(t)
	if diff < 0 {
		return 0
	}
	return int(diff / (24 * time.Hour))
}
