// Package site serves the public pages, robots.txt, the sitemap and the
// health check.
package site

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/allmovieshub/internal/domain"
	"github.com/tjfontaine/allmovieshub/internal/server"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages lists the public HTML pages by path.
var Pages = map[string]string{
	"/":        "home.html",
	"/privacy": "privacy.html",
	"/dmca":    "dmca.html",
	"/contact": "contact.html",
}

// Info identifies the site in rendered pages.
type Info struct {
	Name string
	URL  string
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type pageData struct {
	Site Info
	Path string
	Year int
}

// Handler serves the public site.
type Handler struct {
	info   Info
	pinger Pinger
	logger *slog.Logger
	pages  map[string]*template.Template
	now    func() time.Time
}

// New parses the embedded templates. pinger may be nil.
func New(info Info, pinger Pinger, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info.URL = strings.TrimRight(info.URL, "/")

	h := &Handler{
		info:   info,
		pinger: pinger,
		logger: logger,
		pages:  make(map[string]*template.Template, len(Pages)),
		now:    time.Now,
	}
	for path, file := range Pages {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		h.pages[path] = tmpl
	}
	return h, nil
}

// Routes registers the public routes on r.
func (h *Handler) Routes(r chi.Router) {
	for path := range Pages {
		r.Get(path, h.handlePage(path))
	}
	r.Get("/robots.txt", h.handleRobots)
	r.Get("/sitemap.xml", h.handleSitemap)
	r.Get("/healthz", h.handleHealth)
	r.NotFound(h.handleNotFound)
}

func (h *Handler) handlePage(path string) http.HandlerFunc {
	tmpl := h.pages[path]
	return func(w http.ResponseWriter, r *http.Request) {
		// Render into a buffer so a template error still yields a clean 500.
		var buf bytes.Buffer
		data := pageData{Site: h.info, Path: path, Year: h.now().Year()}
		if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
			server.AddError(r.Context(), err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}

// Robots renders robots.txt for siteURL. The admin surface is only listed
// under its public /admin/ prefix.
func Robots(siteURL string) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sitemap: %s/sitemap.xml\n", strings.TrimRight(siteURL, "/"))
	return b.String()
}

func (h *Handler) handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(Robots(h.info.URL)))
}

func (h *Handler) handleSitemap(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, path := range []string{"/", "/contact", "/privacy", "/dmca"} {
		fmt.Fprintf(&b, "  <url><loc>%s%s</loc></url>\n", template.HTMLEscapeString(h.info.URL), path)
	}
	b.WriteString("</urlset>\n")

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed",
				slog.String("request_id", server.GetRequestID(ctx)),
				slog.String("error", err.Error()))
			domain.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	domain.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		domain.WriteError(w, domain.ErrNotFound("not found"))
		return
	}
	http.NotFound(w, r)
}
