package checklist

import (
	"encoding/json"
	"fmt"
	"time"

	"isru-daily/internal/model"
	"isru-daily/internal/store"
)

// Registry holds the in-memory reflection of every task: what the page (or
// TUI) shows. It is the visual side of the visual/persisted pair the
// reconciler keeps in agreement.
//
// Invariant: after any operation completes, the in-memory Completed flag and
// the persisted "true"/"false" string agree, within the reconciliation
// window (see Reconciler).
type Registry struct {
	st    *store.Store
	tasks []*model.Task // display order
	byID  map[string]*model.Task
}

func NewRegistry(st *store.Store, defs []Definition) *Registry {
	r := &Registry{st: st, byID: map[string]*model.Task{}}
	for _, d := range defs {
		t := &model.Task{ID: d.ID, Title: d.Title, Description: d.Description}
		r.tasks = append(r.tasks, t)
		r.byID[t.ID] = t
	}
	return r
}

// Load applies persisted completion flags, then the persisted display order.
// Unknown persisted ids are ignored; tasks absent from the saved order keep
// their original relative position, appended at the end.
func (r *Registry) Load(now time.Time) error {
	for _, t := range r.tasks {
		v, ok, err := r.st.Get(store.TaskKey(t.ID))
		if err != nil {
			return err
		}
		completed := ok && v == "true"
		t.Completed = completed
		if completed {
			ts := now
			t.CompletedAt = &ts
		} else {
			t.CompletedAt = nil
		}
	}

	raw, ok, err := r.st.Get(store.KeyTaskOrder)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	var order []string
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		// Corrupted order is not worth failing a load over.
		return nil
	}
	r.applyOrder(order)
	return nil
}

func (r *Registry) applyOrder(order []string) {
	placed := map[string]bool{}
	var next []*model.Task
	for _, id := range order {
		t, ok := r.byID[id]
		if !ok || placed[id] {
			continue
		}
		next = append(next, t)
		placed[id] = true
	}
	for _, t := range r.tasks {
		if !placed[t.ID] {
			next = append(next, t)
		}
	}
	r.tasks = next
}

// Toggle flips a task's completion flag, maintains CompletedAt, and persists
// the new value. The returned task is the post-toggle state.
//
// A store write failure is deliberately not fatal: the in-memory state stays
// authoritative and the settle check repairs the store later.
func (r *Registry) Toggle(taskID string, now time.Time) (model.Task, error) {
	t, ok := r.byID[taskID]
	if !ok {
		return model.Task{}, fmt.Errorf("unknown task %q", taskID)
	}
	t.Completed = !t.Completed
	if t.Completed {
		ts := now
		t.CompletedAt = &ts
	} else {
		t.CompletedAt = nil
	}
	_ = r.persist(t)
	return *t, nil
}

// SetState applies a completion value without toggling. Used by the
// reconciler for reverts and by external (non-tap) state reports; it does not
// persist. Persistence of external changes is the settle check's job.
func (r *Registry) SetState(taskID string, completed bool, completedAt *time.Time) bool {
	t, ok := r.byID[taskID]
	if !ok {
		return false
	}
	t.Completed = completed
	if completed {
		if completedAt != nil {
			ts := *completedAt
			t.CompletedAt = &ts
		} else if t.CompletedAt == nil {
			ts := time.Now()
			t.CompletedAt = &ts
		}
	} else {
		t.CompletedAt = nil
	}
	return true
}

// SetOrder records a new display order and persists it. Unknown ids are
// ignored, ids missing from the argument keep their relative position at the
// end (same tolerance as Load).
func (r *Registry) SetOrder(order []string) error {
	r.applyOrder(order)
	ids := make([]string, 0, len(r.tasks))
	for _, t := range r.tasks {
		ids = append(ids, t.ID)
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return r.st.Set(store.KeyTaskOrder, string(raw))
}

// Reset clears every task's completion flag and timestamp and persists
// "false" for each.
func (r *Registry) Reset() {
	for _, t := range r.tasks {
		t.Completed = false
		t.CompletedAt = nil
		_ = r.st.Set(store.TaskKey(t.ID), "false")
	}
}

func (r *Registry) persist(t *model.Task) error {
	v := "false"
	if t.Completed {
		v = "true"
	}
	return r.st.Set(store.TaskKey(t.ID), v)
}

// Get returns a copy of one task.
func (r *Registry) Get(taskID string) (model.Task, bool) {
	t, ok := r.byID[taskID]
	if !ok {
		return model.Task{}, false
	}
	return *t, true
}

// Tasks returns copies of all tasks in display order.
func (r *Registry) Tasks() []model.Task {
	out := make([]model.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, *t)
	}
	return out
}

// Len returns the task count.
func (r *Registry) Len() int { return len(r.tasks) }
