package profile

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"isru-daily/internal/model"
	"isru-daily/internal/store"
)

// Cache holds the logged-in session and mirrors checklist progress into the
// per-user store namespace. It implements the checklist package's progress
// sink.
//
// Logins race: a slow relay response for an old username must not clobber a
// newer login or logout. Each mutation bumps a generation counter; a lookup
// result is applied only if the generation it started under is still current.
type Cache struct {
	mu     sync.Mutex
	st     *store.Store
	client *Client

	gen      uint64
	username string
	raw      json.RawMessage
}

func NewCache(st *store.Store, client *Client) *Cache {
	return &Cache{st: st, client: client}
}

// Restore loads a persisted session, if any. Corrupted cached data clears the
// session rather than failing.
func (c *Cache) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok, err := c.st.Get(store.KeyUsername)
	if err != nil || !ok || u == "" {
		return
	}
	c.username = u
	if raw, ok, err := c.st.Get(store.KeyUserData); err == nil && ok && json.Valid([]byte(raw)) {
		c.raw = json.RawMessage(raw)
	}
}

// Login looks the username up via the relay and, on success, makes it the
// active session. A login or logout issued while the lookup was in flight
// wins; the stale result is discarded without touching the store.
func (c *Cache) Login(ctx context.Context, username string) (model.UserProfile, error) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	raw, err := c.client.Lookup(ctx, username)
	if err != nil {
		return model.UserProfile{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return parseProfile(username, raw), nil
	}
	c.username = username
	c.raw = raw
	_ = c.st.Set(store.KeyUsername, username)
	_ = c.st.Set(store.KeyUserData, string(raw))
	_ = c.st.AppendEvent("user.login", username, nil)
	return parseProfile(username, raw), nil
}

// Logout clears the session and cached profile. The per-user progress
// namespace is left in place so a later login finds it again.
func (c *Cache) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.username != "" {
		_ = c.st.AppendEvent("user.logout", c.username, nil)
	}
	c.username = ""
	c.raw = nil
	_ = c.st.Remove(store.KeyUsername)
	_ = c.st.Remove(store.KeyUserData)
}

// Session returns the active username, if any.
func (c *Cache) Session() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username, c.username != ""
}

// Profile returns the cached profile for the active session.
func (c *Cache) Profile() (model.UserProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.username == "" {
		return model.UserProfile{}, false
	}
	return parseProfile(c.username, c.raw), true
}

// ProgressChanged mirrors a progress recompute into isru_progress_<username>.
// No-op without an active session. The namespace is write-only from this
// side: nothing here ever reads it back into checklist state.
func (c *Cache) ProgressChanged(tasks []model.Task, streak model.StreakRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.username == "" {
		return
	}
	up := model.UserProgress{
		Completed:   make([]model.UserProgressEntry, 0, len(tasks)),
		Streak:      streak.Count,
		LastUpdated: time.Now().UTC(),
	}
	for _, t := range tasks {
		e := model.UserProgressEntry{ID: t.ID, Completed: t.Completed}
		if t.CompletedAt != nil {
			e.Timestamp = t.CompletedAt.Format(time.RFC3339)
		}
		up.Completed = append(up.Completed, e)
	}
	raw, err := json.Marshal(up)
	if err != nil {
		return
	}
	_ = c.st.Set(store.UserProgressKey(c.username), string(raw))
}

// UserProgress reads back the stored per-user snapshot, for display.
func (c *Cache) UserProgress(username string) (model.UserProgress, bool) {
	raw, ok, err := c.st.Get(store.UserProgressKey(username))
	if err != nil || !ok {
		return model.UserProgress{}, false
	}
	var up model.UserProgress
	if err := json.Unmarshal([]byte(raw), &up); err != nil {
		return model.UserProgress{}, false
	}
	return up, true
}

func parseProfile(username string, raw json.RawMessage) model.UserProfile {
	p := model.UserProfile{Username: username}
	if len(raw) > 0 {
		// Best effort; the raw blob is the source of truth.
		_ = json.Unmarshal(raw, &p)
		if p.Username == "" {
			p.Username = username
		}
	}
	return p
}
