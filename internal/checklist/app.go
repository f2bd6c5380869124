package checklist

import (
	"fmt"
	"sync"
	"time"

	"isru-daily/internal/model"
	"isru-daily/internal/store"
)

// Event types recorded in the store's audit log.
const (
	EventTaskToggled  = "task.toggled"
	EventTaskExternal = "task.external"
	EventTaskReverted = "task.reverted"
	EventOrderChanged = "order.changed"
	EventTasksReset   = "tasks.reset"
	EventDayComplete  = "day.complete"
)

// App ties the registry, streak tracker, aggregator and reconciler together
// behind one lock. Every frontend (CLI, web, TUI) goes through it.
type App struct {
	mu sync.Mutex
	st *store.Store

	reg    *Registry
	streak *Streak
	agg    *Aggregator
	rc     *Reconciler

	watchers map[chan struct{}]bool
}

// New assembles an App over an open store. Load must be called before use.
func New(st *store.Store, defs []Definition, debounce time.Duration) *App {
	a := &App{st: st, watchers: map[chan struct{}]bool{}}
	a.reg = NewRegistry(st, defs)
	a.streak = NewStreak(st)
	a.agg = NewAggregator(st, a.reg, a.streak)
	a.rc = NewReconciler(&a.mu, st, a.reg, debounce)
	a.agg.OnAllComplete = func(snap model.ProgressSnapshot) {
		_ = st.AppendEvent(EventDayComplete, "", snap)
	}
	a.rc.OnSettle = func() {
		a.agg.Recompute(time.Now())
		a.notify()
	}
	return a
}

// SetSink installs the downstream progress consumer (the profile cache).
func (a *App) SetSink(sink ProgressSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.agg.SetSink(sink)
}

// Load restores persisted state in dependency order: task flags and display
// order first, then the streak record, then an initial progress pass.
func (a *App) Load(now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.reg.Load(now); err != nil {
		return err
	}
	a.streak.Load(now)
	a.agg.Recompute(now)
	return nil
}

// Toggle flips a task as a deliberate user action.
func (a *App) Toggle(taskID string, now time.Time) (model.Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, err := a.reg.Toggle(taskID, now)
	if err != nil {
		return model.Task{}, err
	}
	a.rc.ObserveChange(taskID, t.Completed, SourceTap)
	// Any single task completing credits the streak; untoggling never does.
	if t.Completed {
		a.streak.OnCompletion(now)
	}
	_ = a.st.AppendEvent(EventTaskToggled, taskID, map[string]bool{"completed": t.Completed})
	a.agg.Recompute(now)
	a.notify()
	return t, nil
}

// ReportExternalChange feeds a non-tap state change through window
// protection. It returns the task's state after protection was applied and
// whether the change was reverted.
func (a *App) ReportExternalChange(taskID string, completed bool, now time.Time) (model.Task, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.reg.Get(taskID); !ok {
		return model.Task{}, false, errUnknownTask(taskID)
	}
	reverted := a.rc.ObserveChange(taskID, completed, SourceExternal)
	typ := EventTaskExternal
	if reverted {
		typ = EventTaskReverted
	}
	_ = a.st.AppendEvent(typ, taskID, map[string]bool{"completed": completed})
	a.agg.Recompute(now)
	a.notify()
	t, _ := a.reg.Get(taskID)
	return t, reverted, nil
}

// ReportScroll opens or extends the protection window.
func (a *App) ReportScroll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rc.ReportScroll()
}

// SettleNow forces an open protection window closed. Called on shutdown so a
// mid-scroll exit cannot leave the store behind the screen.
func (a *App) SettleNow() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rc.Settle()
}

// WindowActive reports whether a protection window is open.
func (a *App) WindowActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rc.Active()
}

// SetOrder records a new display order.
func (a *App) SetOrder(ids []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.reg.SetOrder(ids); err != nil {
		return err
	}
	_ = a.st.AppendEvent(EventOrderChanged, "", ids)
	a.notify()
	return nil
}

// Reset clears all completion state for a fresh day.
func (a *App) Reset(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reg.Reset()
	_ = a.st.AppendEvent(EventTasksReset, "", nil)
	a.agg.Recompute(now)
	a.notify()
}

// Tasks returns the current tasks in display order.
func (a *App) Tasks() []model.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reg.Tasks()
}

// Task returns one task by id.
func (a *App) Task(taskID string) (model.Task, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reg.Get(taskID)
}

// Progress returns the last computed snapshot.
func (a *App) Progress() model.ProgressSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.agg.Snapshot()
}

// StreakRecord returns the current streak state.
func (a *App) StreakRecord() model.StreakRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.streak.Record()
}

// Subscribe registers a change watcher. The channel receives a signal (at
// most one pending) after every state change; cancel unregisters it.
func (a *App) Subscribe() (<-chan struct{}, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ch := make(chan struct{}, 1)
	a.watchers[ch] = true
	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.watchers, ch)
	}
}

func errUnknownTask(id string) error { return fmt.Errorf("unknown task %q", id) }

func (a *App) notify() {
	for ch := range a.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
