// Package server serves the built site for local preview and exposes a
// rebuild endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/afero"

	"github.com/tkwsnb/notepress/internal/logger"
	"github.com/tkwsnb/notepress/internal/site"
	"github.com/tkwsnb/notepress/internal/storage"
)

// RebuildFunc regenerates the site.
type RebuildFunc func(ctx context.Context) (site.Report, error)

type Server struct {
	router  chi.Router
	store   *storage.Storage
	rebuild RebuildFunc
	token   string
	log     logger.Logger
}

// New returns a server for the site in store. An empty token leaves the API
// unauthenticated.
func New(store *storage.Storage, rebuild RebuildFunc, token string, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{store: store, rebuild: rebuild, token: token, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.token))

		r.Post("/api/rebuild", s.handleRebuild)
		r.Get("/api/files", s.handleListFiles)
	})

	files := afero.NewHttpFs(afero.NewBasePathFs(s.store.Fs(), s.store.Dir()))
	r.Handle("/*", http.FileServer(files))

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type rebuildResponse struct {
	Pages      int `json:"pages"`
	Embeds     int `json:"embeds"`
	Unresolved int `json:"unresolved"`
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	report, err := s.rebuild(r.Context())
	if err != nil {
		s.log.Errorf("site build error: %v", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Infof("site rebuilt: %d pages", report.Pages)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rebuildResponse{
		Pages:      report.Pages,
		Embeds:     report.Embeds,
		Unresolved: report.Unresolved,
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.List()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(files)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
