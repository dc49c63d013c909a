// Package admin serves the operator dashboard API. It is mounted at /admin
// and is reachable only through the secret path rewrite.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/allmovieshub/internal/domain"
	"github.com/tjfontaine/allmovieshub/internal/metadata"
	"github.com/tjfontaine/allmovieshub/internal/server"
	"github.com/tjfontaine/allmovieshub/internal/stats"
	"github.com/tjfontaine/allmovieshub/internal/storage"
)

// Generator produces movie metadata on demand.
type Generator interface {
	Generate(ctx context.Context, req metadata.Request) (*storage.MovieMetadata, error)
}

// Overview is a read-only summary of how the site is wired.
type Overview struct {
	SiteName      string `json:"site_name"`
	SiteURL       string `json:"site_url"`
	StorageType   string `json:"storage_type"`
	MailTransport string `json:"mail_transport"` // smtp or log
	MetadataModel string `json:"metadata_model,omitempty"`
	RateLimited   bool   `json:"rate_limited"`
	StatsBackend  string `json:"stats_backend"` // redis, memory or none
	Tracing       bool   `json:"tracing"`
}

// Options wires the server's collaborators. Nil fields disable the
// corresponding endpoints with 503.
type Options struct {
	Store     storage.Store
	Stats     stats.Reader
	Generator Generator
	// Overview is evaluated per request so it reflects reloaded config.
	Overview func() Overview
	Logger   *slog.Logger
}

type Server struct {
	router    *chi.Mux
	startTime time.Time
	opts      Options
	logger    *slog.Logger
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:    chi.NewRouter(),
		startTime: time.Now(),
		opts:      opts,
		logger:    logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/api/stats", s.handleStats)
	s.router.Get("/api/overview", s.handleOverview)
	s.router.Get("/api/submissions", s.handleListSubmissions)
	s.router.Get("/api/metadata", s.handleListMetadata)
	s.router.Post("/api/metadata", s.handleGenerateMetadata)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type StatsResponse struct {
	Uptime       string           `json:"uptime"`
	GoVersion    string           `json:"go_version"`
	NumGoroutine int              `json:"num_goroutine"`
	Memory       MemoryStats      `json:"memory"`
	Contact      map[string]int64 `json:"contact,omitempty"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := StatsResponse{
		Uptime:       time.Since(s.startTime).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
	}

	if s.opts.Stats != nil {
		totals, err := s.opts.Stats.Totals(r.Context())
		if err != nil {
			// Counters are optional; report the rest.
			s.logger.WarnContext(r.Context(), "failed to read contact stats",
				slog.String("request_id", server.GetRequestID(r.Context())),
				slog.String("error", err.Error()))
		} else {
			resp.Contact = totals
		}
	}

	domain.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	var ov Overview
	if s.opts.Overview != nil {
		ov = s.opts.Overview()
	}
	domain.WriteJSON(w, http.StatusOK, ov)
}

type SubmissionListResponse struct {
	Submissions []*storage.SubmissionRecord `json:"submissions"`
	Limit       int                         `json:"limit"`
	Offset      int                         `json:"offset"`
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		domain.WriteError(w, domain.ErrServer("storage not configured").WithStatusCode(http.StatusServiceUnavailable))
		return
	}

	opts := listOptions(r)
	subs, err := s.opts.Store.ListSubmissions(r.Context(), opts)
	if err != nil {
		server.AddError(r.Context(), err)
		domain.WriteError(w, domain.ErrServer("failed to list submissions"))
		return
	}

	domain.WriteJSON(w, http.StatusOK, SubmissionListResponse{Submissions: subs, Limit: opts.Limit, Offset: opts.Offset})
}

type MetadataListResponse struct {
	Metadata []*storage.MovieMetadata `json:"metadata"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

func (s *Server) handleListMetadata(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		domain.WriteError(w, domain.ErrServer("storage not configured").WithStatusCode(http.StatusServiceUnavailable))
		return
	}

	opts := listOptions(r)
	items, err := s.opts.Store.ListMetadata(r.Context(), opts)
	if err != nil {
		server.AddError(r.Context(), err)
		domain.WriteError(w, domain.ErrServer("failed to list metadata"))
		return
	}

	domain.WriteJSON(w, http.StatusOK, MetadataListResponse{Metadata: items, Limit: opts.Limit, Offset: opts.Offset})
}

func (s *Server) handleGenerateMetadata(w http.ResponseWriter, r *http.Request) {
	if s.opts.Generator == nil {
		domain.WriteError(w, domain.ErrServer("metadata generation not configured").WithStatusCode(http.StatusServiceUnavailable))
		return
	}

	var req metadata.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		domain.WriteError(w, domain.ErrInvalidRequest("invalid JSON body"))
		return
	}

	md, err := s.opts.Generator.Generate(r.Context(), req)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && apiErr.Cause != nil {
			server.AddError(r.Context(), apiErr.Cause)
		}
		domain.WriteError(w, err)
		return
	}

	domain.WriteJSON(w, http.StatusOK, md)
}

// listOptions reads limit and offset, ignoring malformed values.
func listOptions(r *http.Request) storage.ListOptions {
	var opts storage.ListOptions
	if q := r.URL.Query().Get("limit"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 {
			opts.Limit = v
		}
	}
	if q := r.URL.Query().Get("offset"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v >= 0 {
			opts.Offset = v
		}
	}
	return opts.Normalized()
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.SiteName}} admin</title></head>
<body style="font-family: Arial, sans-serif;">
  <h1>{{.SiteName}} admin</h1>
  <ul>
    <li><a href="api/stats">Runtime stats</a></li>
    <li><a href="api/overview">Overview</a></li>
    <li><a href="api/submissions">Contact submissions</a></li>
    <li><a href="api/metadata">Generated metadata</a></li>
  </ul>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ov := Overview{SiteName: "AllMoviesHub"}
	if s.opts.Overview != nil {
		ov = s.opts.Overview()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, ov); err != nil {
		server.AddError(r.Context(), err)
	}
}
