package checklist

import (
	"encoding/json"
	"time"

	"isru-daily/internal/model"
	"isru-daily/internal/store"
)

// ProgressSink receives progress snapshots after every recompute. The profile
// cache implements it to mirror progress into the per-user namespace.
type ProgressSink interface {
	ProgressChanged(tasks []model.Task, streak model.StreakRecord)
}

// Aggregator derives completed/total counts from the registry and fires the
// all-complete celebration exactly once per full completion.
//
// The latch rearms whenever the count drops below total, so un-completing a
// task and finishing again celebrates again.
type Aggregator struct {
	st          *store.Store
	reg         *Registry
	streak      *Streak
	sink        ProgressSink
	wasComplete bool
	last        model.ProgressSnapshot

	// OnAllComplete, when set, runs on the 0->full transition.
	OnAllComplete func(model.ProgressSnapshot)
}

func NewAggregator(st *store.Store, reg *Registry, streak *Streak) *Aggregator {
	return &Aggregator{st: st, reg: reg, streak: streak}
}

// SetSink installs the downstream progress consumer.
func (a *Aggregator) SetSink(sink ProgressSink) { a.sink = sink }

// Recompute counts completed tasks, persists the summary, fires the
// all-complete latch, and notifies the sink. Streak crediting is not its job;
// that happens on the toggle path, per task completion.
func (a *Aggregator) Recompute(now time.Time) model.ProgressSnapshot {
	tasks := a.reg.Tasks()
	snap := model.ProgressSnapshot{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			snap.Completed++
		}
	}
	a.last = snap

	raw, _ := json.Marshal(map[string]int{"completed": snap.Completed})
	_ = a.st.Set(store.KeyProgress, string(raw))

	if snap.AllComplete() {
		if !a.wasComplete {
			a.wasComplete = true
			if a.OnAllComplete != nil {
				a.OnAllComplete(snap)
			}
		}
	} else {
		a.wasComplete = false
	}

	if a.sink != nil {
		a.sink.ProgressChanged(tasks, a.streak.Record())
	}
	return snap
}

// Snapshot returns the last computed progress without recomputing.
func (a *Aggregator) Snapshot() model.ProgressSnapshot { return a.last }
