// Package debug runs the optional loopback HTTP listener with health,
// a scheduler snapshot and the pprof handlers.
package debug

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"calbot/internal/scheduler"
	"calbot/internal/transport"
	"calbot/pkg/logx"
)

const DefaultAddress = "127.0.0.1:6060"

type Config struct {
	Enabled              bool
	Address              string
	BlockProfileRate     int
	MutexProfileFraction int
}

func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	return c
}

// Tasks is the read side of the scheduler exposed on /tasks.
type Tasks interface {
	List() []scheduler.TaskInfo
	Bindings() map[string]transport.ChatTarget
	Location() *time.Location
}

// Server manages the lifecycle of the debug listener. The zero value is not
// usable; call New.
type Server struct {
	mu      sync.Mutex
	log     logx.Logger
	tasks   Tasks
	started time.Time

	srv  *http.Server
	ln   net.Listener
	addr string
}

func New(tasks Tasks, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{tasks: tasks, log: log, started: time.Now()}
}

// Apply starts, stops or moves the listener according to cfg. Profile rates
// are updated even when the server stays disabled.
func (s *Server) Apply(ctx context.Context, cfg Config) {
	cfg = cfg.withDefaults()
	runtime.SetBlockProfileRate(cfg.BlockProfileRate)
	runtime.SetMutexProfileFraction(cfg.MutexProfileFraction)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !cfg.Enabled {
		s.stopLocked(ctx)
		return
	}
	if s.srv != nil && s.addr == cfg.Address {
		return
	}
	s.stopLocked(ctx)
	s.startLocked(cfg)
}

func (s *Server) startLocked(cfg Config) {
	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		s.log.Warn("debug listen failed", logx.String("addr", cfg.Address), logx.Err(err))
		return
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()

	addr := s.addr
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("debug server error", logx.String("addr", addr), logx.Err(err))
		}
	}()
	s.log.Info("debug server enabled", logx.String("addr", addr))
}

// Stop shuts the listener down if it is running.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *Server) stopLocked(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	srv, ln, addr := s.srv, s.ln, s.addr
	s.srv, s.ln, s.addr = nil, nil, ""

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	err := srv.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if ln != nil {
		_ = ln.Close()
	}
	s.log.Info("debug server disabled", logx.String("addr", addr))
	return err
}

// Addr reports the bound address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/tasks", s.handleTasks)

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

type healthBody struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthBody{
		Status:     "ok",
		Uptime:     time.Since(s.started).Truncate(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	})
}

type taskBody struct {
	Name      string `json:"name"`
	Time      string `json:"time"`
	Enabled   bool   `json:"enabled"`
	Running   bool   `json:"running"`
	ChannelID *int64 `json:"channel_id,omitempty"`
	ThreadID  int    `json:"thread_id,omitempty"`
	Next      string `json:"next,omitempty"`
	LastRun   string `json:"last_run,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

type bindingBody struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`
}

type tasksBody struct {
	Timezone string                 `json:"timezone"`
	Tasks    []taskBody             `json:"tasks"`
	Bindings map[string]bindingBody `json:"bindings"`
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if s.tasks == nil {
		http.Error(w, "scheduler not available", http.StatusServiceUnavailable)
		return
	}
	list := s.tasks.List()
	bindings := s.tasks.Bindings()
	body := tasksBody{
		Timezone: s.tasks.Location().String(),
		Tasks:    make([]taskBody, 0, len(list)),
		Bindings: make(map[string]bindingBody, len(bindings)),
	}
	for name, to := range bindings {
		body.Bindings[name] = bindingBody{ChatID: to.ChatID, ThreadID: to.ThreadID}
	}
	for _, t := range list {
		body.Tasks = append(body.Tasks, taskBody{
			Name:      t.Name,
			Time:      t.Time,
			Enabled:   t.Enabled,
			Running:   t.Running,
			ChannelID: t.ChannelID,
			ThreadID:  t.ThreadID,
			Next:      rfc3339(t.Next),
			LastRun:   rfc3339(t.LastRun),
			LastError: t.LastError,
		})
	}
	writeJSON(w, body)
}

func rfc3339(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
