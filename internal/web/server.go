package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"isru-daily/internal/checklist"
	"isru-daily/internal/model"
	"isru-daily/internal/profile"

	"github.com/starfederation/datastar-go/datastar"
)

//go:embed templates/*.html static/*.js static/*.css
var assetsFS embed.FS

type ServerConfig struct {
	Addr string
	Dir  string
}

// Server renders the daily checklist page and exposes the state endpoints the
// page (and any other client) drives it with. All mutations go through the
// checklist App, so window protection applies to web clients too.
type Server struct {
	cfg      ServerConfig
	tmpl     *template.Template
	app      *checklist.App
	profiles *profile.Cache
}

func NewServer(cfg ServerConfig, app *checklist.App, profiles *profile.Cache) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.Dir = strings.TrimSpace(cfg.Dir)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim": strings.TrimSpace,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Server{cfg: cfg, tmpl: tmpl, app: app, profiles: profiles}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /static/app.css", s.handleAppCSS)
	mux.HandleFunc("GET /static/app.js", s.handleAppJS)
	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("POST /tasks/{taskId}/toggle", s.handleTaskToggle)
	mux.HandleFunc("POST /tasks/{taskId}/state", s.handleTaskState)
	mux.HandleFunc("POST /scroll", s.handleScroll)
	mux.HandleFunc("POST /order", s.handleOrder)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("POST /login", s.handleLoginPost)
	mux.HandleFunc("POST /logout", s.handleLogoutPost)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAppJS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.js")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

type pageVM struct {
	Now          string
	Tasks        []model.Task
	Progress     model.ProgressSnapshot
	Streak       model.StreakRecord
	Username     string
	LoggedIn     bool
	WindowActive bool
}

func (s *Server) pageVMNow() pageVM {
	vm := pageVM{
		Now:          time.Now().Format(time.RFC3339),
		Tasks:        s.app.Tasks(),
		Progress:     s.app.Progress(),
		Streak:       s.app.StreakRecord(),
		WindowActive: s.app.WindowActive(),
	}
	if s.profiles != nil {
		vm.Username, vm.LoggedIn = s.profiles.Session()
	}
	return vm
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.writeHTMLTemplate(w, "home.html", s.pageVMNow())
}

// handleEvents streams re-renders of the checklist main region whenever app
// state changes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	ch, cancel := s.app.Subscribe()
	defer cancel()

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	patch := func() {
		html, err := s.renderTemplate("mission_main", s.pageVMNow())
		if err != nil {
			return
		}
		_ = sse.PatchElements(html,
			datastar.WithSelector("#mission-main"),
			datastar.WithMode(datastar.ElementPatchModeOuter))
	}

	// Initial snapshot so a freshly connected client is not blank until the
	// next change.
	patch()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			patch()
		}
	}
}

type stateResponse struct {
	Tasks        []model.Task           `json:"tasks"`
	Progress     model.ProgressSnapshot `json:"progress"`
	Streak       model.StreakRecord     `json:"streak"`
	WindowActive bool                   `json:"windowActive"`
	Username     string                 `json:"username,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		Tasks:        s.app.Tasks(),
		Progress:     s.app.Progress(),
		Streak:       s.app.StreakRecord(),
		WindowActive: s.app.WindowActive(),
	}
	if s.profiles != nil {
		resp.Username, _ = s.profiles.Session()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTaskToggle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("taskId"))
	if id == "" {
		http.Error(w, "missing task id", http.StatusBadRequest)
		return
	}
	t, err := s.app.Toggle(id, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleTaskState reports an external (non-tap) state change. Inside a
// protection window a divergent change is reverted; the response carries the
// state after protection was applied.
func (s *Server) handleTaskState(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("taskId"))
	if id == "" {
		http.Error(w, "missing task id", http.StatusBadRequest)
		return
	}
	var body struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	t, reverted, err := s.app.ReportExternalChange(id, body.Completed, time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": t, "reverted": reverted})
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	s.app.ReportScroll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Order []string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.app.SetOrder(body.Order); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.app.Reset(time.Now())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	username := ""
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		username = body.Username
	} else {
		username = r.FormValue("username")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		http.Error(w, "missing username", http.StatusBadRequest)
		return
	}
	if s.profiles == nil {
		http.Error(w, "profiles unavailable", http.StatusServiceUnavailable)
		return
	}
	p, err := s.profiles.Login(r.Context(), username)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	if s.profiles != nil {
		s.profiles.Logout()
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}
