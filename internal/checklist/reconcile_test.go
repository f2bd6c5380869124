package checklist

import (
	"testing"
	"time"

	"isru-daily/internal/store"
)

func newTestApp(t *testing.T, debounce time.Duration) (*App, *store.Store) {
	t.Helper()
	st := openTestStore(t)
	a := New(st, DefaultDefinitions(), debounce)
	if err := a.Load(time.Now()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return a, st
}

func TestExternalChangeRevertedDuringWindow(t *testing.T) {
	a, _ := newTestApp(t, time.Hour)

	a.ReportScroll()

	task, reverted, err := a.ReportExternalChange("out-and-back", true, time.Now())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !reverted {
		t.Fatalf("divergent external change inside window should be reverted")
	}
	if task.Completed {
		t.Fatalf("task should hold its pre-scroll state")
	}

	a.SettleNow()
	got, _ := a.Task("out-and-back")
	if got.Completed {
		t.Fatalf("after window close: task diverged from pre-scroll snapshot")
	}
}

func TestExternalChangeAppliedOutsideWindow(t *testing.T) {
	a, st := newTestApp(t, time.Hour)

	task, reverted, err := a.ReportExternalChange("out-and-back", true, time.Now())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if reverted || !task.Completed {
		t.Fatalf("no window open: change should apply, got reverted=%v task=%+v", reverted, task)
	}
	// External changes are not persisted until a settle check runs.
	if v, ok, _ := st.Get(store.TaskKey("out-and-back")); ok && v == "true" {
		t.Fatalf("external change persisted before settle")
	}
}

func TestTapDuringWindowWinsOverLaterExternalChange(t *testing.T) {
	a, _ := newTestApp(t, time.Hour)

	a.ReportScroll()
	if _, err := a.Toggle("wall-drawing", time.Now()); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	// An external update trying to undo the tap diverges from the refreshed
	// snapshot and is reverted.
	task, reverted, err := a.ReportExternalChange("wall-drawing", false, time.Now())
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !reverted || !task.Completed {
		t.Fatalf("tap should survive: reverted=%v task=%+v", reverted, task)
	}
}

func TestSettleRepairsStoreFromVisualState(t *testing.T) {
	a, st := newTestApp(t, time.Hour)

	if _, err := a.Toggle("read-before-bed", time.Now()); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	// Sabotage the persisted value behind the registry's back.
	if err := st.Set(store.TaskKey("read-before-bed"), "false"); err != nil {
		t.Fatalf("sabotage: %v", err)
	}

	a.ReportScroll()
	a.SettleNow()

	if v, _, _ := st.Get(store.TaskKey("read-before-bed")); v != "true" {
		t.Fatalf("settle did not repair store: got %q", v)
	}
}

func TestWindowClosesAfterDebounce(t *testing.T) {
	a, _ := newTestApp(t, 30*time.Millisecond)

	a.ReportScroll()
	if !a.WindowActive() {
		t.Fatalf("window should be open right after a scroll signal")
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.WindowActive() {
		if time.Now().After(deadline) {
			t.Fatalf("window never closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScrollSignalsRearmNotStack(t *testing.T) {
	a, _ := newTestApp(t, 60*time.Millisecond)

	a.ReportScroll()
	time.Sleep(30 * time.Millisecond)
	a.ReportScroll()
	time.Sleep(30 * time.Millisecond)

	// The first timer would have fired by now; the rearm must have kept the
	// window open.
	if !a.WindowActive() {
		t.Fatalf("window closed despite rearm")
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.WindowActive() {
		if time.Now().After(deadline) {
			t.Fatalf("window never closed after last signal")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSnapshotTakenAtWindowOpenNotExtended(t *testing.T) {
	a, _ := newTestApp(t, time.Hour)

	a.ReportScroll()
	// Extension after an in-window tap must not re-snapshot (which would
	// bless the tapped state as "external truth" and lose the tap marker,
	// but more importantly must not revert the tap).
	if _, err := a.Toggle("ten-free-throws", time.Now()); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	a.ReportScroll()

	task, _ := a.Task("ten-free-throws")
	if !task.Completed {
		t.Fatalf("tap lost across window extension")
	}

	a.SettleNow()
	task, _ = a.Task("ten-free-throws")
	if !task.Completed {
		t.Fatalf("tap lost at settle")
	}
}
