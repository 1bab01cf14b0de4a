// Package devserver simulates the story generation service for local runs
// and tests. It speaks the same HTTP contract as the real service.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/itory/itory/internal/domain"
	"github.com/itory/itory/internal/logging"
)

// Config controls simulated timings
type Config struct {
	FinalizeDuration time.Duration
	JobTTL           time.Duration
	NoOptions        bool
	Now              func() time.Time
	StageDuration    time.Duration
}

// DefaultConfig returns timings suitable for interactive use
func DefaultConfig() Config {
	return Config{
		FinalizeDuration: 8 * time.Second,
		JobTTL:           24 * time.Hour,
		Now:              time.Now,
		StageDuration:    6 * time.Second,
	}
}

// Server is an in-memory generation service
type Server struct {
	cfg    Config
	mu     sync.Mutex
	jobs   map[string]*job
	router chi.Router
}

// New creates a simulator with the given timings
func New(cfg Config) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{
		cfg:  cfg,
		jobs: make(map[string]*job),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler of the simulator
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Story Generation API is running", "version": "dev"})
	})
	r.Route("/api/story", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Get("/status/{jobID}", s.handleStatus)
		r.Get("/options/{jobID}/{stageNo}", s.handleOptions)
		r.Post("/select/{jobID}/{stageNo}", s.handleSelect)
		r.Post("/finalize/{jobID}", s.handleFinalize)
	})
	r.Get("/stages/{file}", serveMedia)
	r.Get("/final/{file}", serveMedia)
	return r
}

// Run serves on addr until ctx is cancelled, evicting expired jobs meanwhile
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Logger.Info("Dev server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := s.Evict(); n > 0 {
					logging.Logger.Info("Evicted expired jobs", "count", n)
				}
			}
		}
	})

	return g.Wait()
}

// Evict removes jobs idle for longer than the TTL and returns how many were removed
func (s *Server) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.cfg.Now()
	n := 0
	for id, j := range s.jobs {
		if j.expired(now, s.cfg.JobTTL) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// Forget drops a job immediately, as if the service had restarted
func (s *Server) Forget(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

// lookup returns a settled job, or nil when unknown or expired. Caller holds s.mu.
func (s *Server) lookup(jobID string) *job {
	j, ok := s.jobs[jobID]
	if !ok {
		return nil
	}
	now := s.cfg.Now()
	if j.expired(now, s.cfg.JobTTL) {
		delete(s.jobs, jobID)
		return nil
	}
	j.lastSeen = now
	j.settle(now, s.cfg)
	return j
}

type startRequest struct {
	ArtStyle  string `json:"art_style"`
	TaleTitle string `json:"tale_title"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.TaleTitle) == "" {
		writeError(w, http.StatusBadRequest, "tale_title is required")
		return
	}
	style, err := domain.ParseArtStyle(req.ArtStyle)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := "job_" + uuid.New().String()[:8]

	s.mu.Lock()
	s.jobs[id] = newJob(id, req.TaleTitle, style, s.cfg.Now())
	s.mu.Unlock()

	logging.Logger.Info("Simulated job started", "job_id", id, "title", req.TaleTitle, "style", style)
	writeJSON(w, http.StatusOK, map[string]string{"job_id": id, "status": string(domain.JobStarted)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.lookup(chi.URLParam(r, "jobID"))
	if j == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, j.status(s.cfg.Now(), s.cfg))
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	stageNo, ok := parseStageNo(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.lookup(chi.URLParam(r, "jobID"))
	if j == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	opts := []string{}
	if !s.cfg.NoOptions {
		opts = j.options(stageNo)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"options": opts})
}

type selectRequest struct {
	Choice string `json:"choice"`
	Text   string `json:"text"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	stageNo, ok := parseStageNo(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := req.Text
	if text == "" {
		text = req.Choice
	}
	if text == "" {
		writeError(w, http.StatusBadRequest, "choice or text is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.lookup(chi.URLParam(r, "jobID"))
	if j == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if j.step == stepFinalizing || j.step == stepDone {
		writeError(w, http.StatusBadRequest, "story already finalized")
		return
	}
	if j.busy(s.cfg.Now(), s.cfg) && j.stage != stageNo {
		writeError(w, http.StatusConflict, fmt.Sprintf("stage %d is still processing", j.stage))
		return
	}

	j.beginStage(stageNo, text, s.cfg.Now())
	status := domain.StageProcessingStatus(stageNo)
	logging.Logger.Info("Simulated choice", "job_id", j.id, "stage_no", stageNo, "choice", req.Choice)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": status})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.lookup(chi.URLParam(r, "jobID"))
	if j == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if j.step != stepComplete || j.stage != domain.StageCount {
		writeError(w, http.StatusBadRequest, "Stage 5 not completed yet")
		return
	}

	j.beginFinalize(s.cfg.Now())
	logging.Logger.Info("Simulated finalize", "job_id", j.id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": domain.JobFinalizing})
}

func parseStageNo(w http.ResponseWriter, r *http.Request) (int, bool) {
	stageNo, err := strconv.Atoi(chi.URLParam(r, "stageNo"))
	if err != nil || stageNo < 2 || stageNo > domain.StageCount {
		writeError(w, http.StatusBadRequest, "stage_no must be between 2 and 5")
		return 0, false
	}
	return stageNo, true
}

func serveMedia(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "video/mp4")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "simulated video %s\n", chi.URLParam(r, "file"))
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Logger.Debug("Dev server request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError uses the {"detail": ...} envelope of the real service
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
