package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"

	"datalens/app"
	"datalens/domain/rag"
	"datalens/internal"
)

// Server exposes the query pipeline over HTTP.
type Server struct {
	router  *chi.Mux
	queries *app.QueryService
	index   *app.EmbeddingIndex
	logger  *internal.Logger
}

// NewServer builds the router with middleware and routes.
func NewServer(queries *app.QueryService, index *app.EmbeddingIndex, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	s := &Server{
		router:  chi.NewRouter(),
		queries: queries,
		index:   index,
		logger:  logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Post("/v1/query", s.handleQuery)
	s.router.Get("/v1/index/stats", s.handleIndexStats)
}

// ServeHTTP makes Server a http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe blocks serving HTTP on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

type queryRequest struct {
	Query  string `json:"query"`
	Type   string `json:"type,omitempty"`   // correlation | search | insights
	K      int    `json:"k,omitempty"`      // evidence pool size
	Render string `json:"render,omitempty"` // "html" renders the answer from markdown
}

type queryResponse struct {
	rag.Response
	AnswerHTML string `json:"answer_html,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	queryType := rag.QueryType(req.Type)
	if req.Type != "" && !queryType.Valid() {
		s.writeError(w, http.StatusBadRequest, "type must be correlation, search or insights")
		return
	}

	resp := s.queries.QueryCorrelations(r.Context(), req.Query, queryType, req.K)

	out := queryResponse{Response: resp}
	if req.Render == "html" {
		out.AnswerHTML = string(markdown.ToHTML([]byte(resp.Answer), nil, nil))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleIndexStats(w http.ResponseWriter, r *http.Request) {
	count, err := s.index.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "index unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"indexed_entities": count})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
