package checklist

import (
	"sync"
	"time"

	"isru-daily/internal/store"
)

// DefaultSettleDebounce is how long after the last scroll signal the
// protection window stays open before the settle check runs.
const DefaultSettleDebounce = 200 * time.Millisecond

// ChangeSource labels who caused a task state change.
type ChangeSource int

const (
	// SourceTap is a deliberate user action (checkbox tap, toggle command).
	SourceTap ChangeSource = iota
	// SourceExternal is anything else: another client, a store edit, a
	// replayed update arriving mid-scroll.
	SourceExternal
)

// Reconciler guards the visual task state against external mutation while the
// user is scrolling, then settles visual and persisted state afterwards.
//
// While a window is open, external changes that diverge from the snapshot
// taken at window open are reverted. Tap changes always win and refresh the
// snapshot so a later external change cannot quietly undo them. When the
// window closes (debounce expiry after the last scroll signal) the settle
// check runs: per task, visual state is authoritative and the store is
// rewritten wherever the two disagree.
//
// Callers hold the outer lock around every method; the expiry timer acquires
// the same lock itself before settling.
type Reconciler struct {
	outer    sync.Locker
	st       *store.Store
	reg      *Registry
	debounce time.Duration

	timer    *time.Timer
	seq      uint64
	active   bool
	snapshot map[string]bool

	// OnSettle, when set, runs (under the outer lock) after each settle
	// check so the app can recompute progress and notify watchers.
	OnSettle func()
}

func NewReconciler(outer sync.Locker, st *store.Store, reg *Registry, debounce time.Duration) *Reconciler {
	if debounce <= 0 {
		debounce = DefaultSettleDebounce
	}
	return &Reconciler{outer: outer, st: st, reg: reg, debounce: debounce}
}

// Active reports whether a protection window is currently open.
func (rc *Reconciler) Active() bool { return rc.active }

// ReportScroll opens the protection window, or extends it if already open.
// The snapshot is taken once, at open; extensions only push the deadline.
func (rc *Reconciler) ReportScroll() {
	if !rc.active {
		rc.active = true
		rc.snapshot = map[string]bool{}
		for _, t := range rc.reg.Tasks() {
			rc.snapshot[t.ID] = t.Completed
		}
	}
	rc.seq++
	seq := rc.seq
	if rc.timer != nil {
		rc.timer.Stop()
	}
	rc.timer = time.AfterFunc(rc.debounce, func() {
		rc.outer.Lock()
		defer rc.outer.Unlock()
		// A newer scroll signal rearmed the timer; this fire is stale.
		if rc.seq != seq || !rc.active {
			return
		}
		rc.settleLocked()
	})
}

// ObserveChange routes a task state change through window protection. Tap
// changes are accepted and, inside a window, folded into the snapshot.
// External changes inside a window are compared against the snapshot: a
// divergent one is reverted in the registry and reported as such; a matching
// one is applied. Outside a window external changes apply directly.
//
// The caller has already applied tap changes to the registry (Toggle);
// external changes are applied here.
func (rc *Reconciler) ObserveChange(taskID string, completed bool, source ChangeSource) (reverted bool) {
	if source == SourceTap {
		if rc.active {
			rc.snapshot[taskID] = completed
		}
		return false
	}
	if rc.active {
		if want, ok := rc.snapshot[taskID]; ok && want != completed {
			rc.reg.SetState(taskID, want, nil)
			return true
		}
	}
	rc.reg.SetState(taskID, completed, nil)
	return false
}

// Settle closes an open window immediately and runs the settle check. No-op
// when no window is open. Used on shutdown and by tests; normal closure goes
// through the debounce timer.
func (rc *Reconciler) Settle() {
	if !rc.active {
		return
	}
	rc.seq++
	if rc.timer != nil {
		rc.timer.Stop()
		rc.timer = nil
	}
	rc.settleLocked()
}

// settleLocked trusts visual state and rewrites any persisted value that
// disagrees with it.
func (rc *Reconciler) settleLocked() {
	rc.active = false
	rc.snapshot = nil
	for _, t := range rc.reg.Tasks() {
		want := "false"
		if t.Completed {
			want = "true"
		}
		got, ok, err := rc.st.Get(store.TaskKey(t.ID))
		if err == nil && ok && got == want {
			continue
		}
		_ = rc.st.Set(store.TaskKey(t.ID), want)
	}
	if rc.OnSettle != nil {
		rc.OnSettle()
	}
}
