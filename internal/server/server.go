package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/memofeed/internal/store"
)

// Server is the memofeed HTTP API server.
type Server struct {
	db      *store.DB
	router  chi.Router
	logger  *log.Logger
	version string
	started time.Time
}

// New creates a new Server with the given database and version string.
// A nil logger logs through log.Default().
func New(db *store.DB, version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		db:      db,
		logger:  logger,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/memos", func(r chi.Router) {
			r.Get("/", s.handleListMemos)
			r.Post("/", s.handleCreateMemo)

			r.Route("/{uid}", func(r chi.Router) {
				r.Get("/", s.handleGetMemo)
				r.Patch("/", s.handleUpdateMemo)
				r.Delete("/", s.handleDeleteMemo)

				r.Get("/comments", s.handleListComments)
				r.Post("/comments", s.handleCreateComment)

				r.Get("/relations", s.handleListRelations)
				r.Post("/relations", s.handleAddReference)
				r.Delete("/relations/{related}", s.handleRemoveReference)
			})
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	memos, _ := s.db.CountMemos(store.StateNormal)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
		"memos":   memos,
	})
}

// logRequests logs each request at debug level once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start).Round(time.Microsecond),
		)
	})
}
