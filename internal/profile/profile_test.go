package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"isru-daily/internal/model"
	"isru-daily/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func relayHandler(t *testing.T) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil || body.Username == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if body.Username == "ghost" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"username": body.Username,
			"rank":     42,
			"stats":    map[string]int{"sols": 7},
		})
	}
}

func TestLoginCachesProfileAndSession(t *testing.T) {
	srv := httptest.NewServer(relayHandler(t))
	defer srv.Close()

	st := openTestStore(t)
	c := NewCache(st, NewClient(srv.URL))

	p, err := c.Login(context.Background(), "marsha")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if p.Username != "marsha" || p.Rank != "42" {
		t.Fatalf("profile: %+v", p)
	}

	if u, ok := c.Session(); !ok || u != "marsha" {
		t.Fatalf("session: %q %v", u, ok)
	}
	if v, _, _ := st.Get(store.KeyUsername); v != "marsha" {
		t.Fatalf("cached username: %q", v)
	}
	raw, ok, _ := st.Get(store.KeyUserData)
	if !ok || !json.Valid([]byte(raw)) {
		t.Fatalf("cached user data: %q", raw)
	}
}

func TestLoginFailureLeavesSessionUnset(t *testing.T) {
	srv := httptest.NewServer(relayHandler(t))
	defer srv.Close()

	st := openTestStore(t)
	c := NewCache(st, NewClient(srv.URL))

	if _, err := c.Login(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected error for unknown user")
	}
	if _, ok := c.Session(); ok {
		t.Fatalf("failed login must not set a session")
	}
	if _, ok, _ := st.Get(store.KeyUsername); ok {
		t.Fatalf("failed login must not cache a username")
	}
}

func TestLoginRejectsInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewCache(openTestStore(t), NewClient(srv.URL))
	if _, err := c.Login(context.Background(), "marsha"); err == nil {
		t.Fatalf("expected error for non-JSON body")
	}
}

func TestLoginWithoutRelayConfigured(t *testing.T) {
	c := NewCache(openTestStore(t), NewClient(""))
	if _, err := c.Login(context.Background(), "marsha"); err == nil {
		t.Fatalf("expected error without relay endpoint")
	}
}

func TestStaleLoginResponseDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fast := relayHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if json.Valid(raw) && string(raw) == `{"username":"slow"}` {
			close(started)
			<-release
			_ = json.NewEncoder(w).Encode(map[string]any{"username": "slow"})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))
		fast(w, r)
	}))
	defer srv.Close()

	st := openTestStore(t)
	c := NewCache(st, NewClient(srv.URL))

	done := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), "slow")
		done <- err
	}()

	<-started
	if _, err := c.Login(context.Background(), "fresh"); err != nil {
		t.Fatalf("second login: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first login: %v", err)
	}

	// The superseded response must not clobber the newer session.
	if u, _ := c.Session(); u != "fresh" {
		t.Fatalf("session: %q, want fresh", u)
	}
	if v, _, _ := st.Get(store.KeyUsername); v != "fresh" {
		t.Fatalf("cached username: %q, want fresh", v)
	}
}

func TestLogoutKeepsProgressNamespace(t *testing.T) {
	srv := httptest.NewServer(relayHandler(t))
	defer srv.Close()

	st := openTestStore(t)
	c := NewCache(st, NewClient(srv.URL))
	if _, err := c.Login(context.Background(), "marsha"); err != nil {
		t.Fatalf("login: %v", err)
	}

	ts := time.Now()
	c.ProgressChanged([]model.Task{
		{ID: "ten-free-throws", Completed: true, CompletedAt: &ts},
		{ID: "out-and-back"},
	}, model.StreakRecord{Count: 3})

	c.Logout()

	if _, ok := c.Session(); ok {
		t.Fatalf("session survived logout")
	}
	if _, ok, _ := st.Get(store.KeyUsername); ok {
		t.Fatalf("username key survived logout")
	}
	if _, ok, _ := st.Get(store.KeyUserData); ok {
		t.Fatalf("user data key survived logout")
	}

	up, ok := c.UserProgress("marsha")
	if !ok {
		t.Fatalf("progress namespace removed on logout")
	}
	if up.Streak != 3 || len(up.Completed) != 2 {
		t.Fatalf("stored progress: %+v", up)
	}
	if up.Completed[0].ID != "ten-free-throws" || !up.Completed[0].Completed || up.Completed[0].Timestamp == "" {
		t.Fatalf("completed entry: %+v", up.Completed[0])
	}
	if up.Completed[1].Timestamp != "" {
		t.Fatalf("incomplete entry should have no timestamp: %+v", up.Completed[1])
	}
}

func TestProgressChangedWithoutSessionIsNoop(t *testing.T) {
	st := openTestStore(t)
	c := NewCache(st, NewClient(""))

	c.ProgressChanged([]model.Task{{ID: "ten-free-throws", Completed: true}}, model.StreakRecord{Count: 1})

	keys, err := st.KeysWithPrefix("isru_progress_")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("progress written without session: %v", keys)
	}
}

func TestRestoreSession(t *testing.T) {
	st := openTestStore(t)
	if err := st.Set(store.KeyUsername, "marsha"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.Set(store.KeyUserData, `{"username":"marsha","rank":9}`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := NewCache(st, NewClient(""))
	c.Restore()

	u, ok := c.Session()
	if !ok || u != "marsha" {
		t.Fatalf("restored session: %q %v", u, ok)
	}
	p, ok := c.Profile()
	if !ok || p.Rank != "9" {
		t.Fatalf("restored profile: %+v", p)
	}
}
