package guard

import (
	"log/slog"
	"net/http"

	"github.com/tjfontaine/allmovieshub/internal/server"
)

// SecretSource yields the current secret path segment. It is consulted on
// every request so a config reload takes effect immediately.
type SecretSource interface {
	SecretSegment() string
}

// StaticSecret is a SecretSource with a fixed value.
type StaticSecret string

// SecretSegment implements SecretSource.
func (s StaticSecret) SecretSegment() string { return string(s) }

// Middleware applies Decide to admin-looking requests.
//
// RedirectHome answers with 307 to "/". A bare /<secret> is redirected to
// /<secret>/ so relative links under it resolve. Rewrite replaces r.URL.Path before
// the router matches, so it must be installed with Router.Use on the root
// router.
func Middleware(src SecretSource, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := ""
			if src != nil {
				secret = src.SecretSegment()
			}

			if !Matches(r.URL.Path, secret) {
				next.ServeHTTP(w, r)
				return
			}

			d := Decide(r.URL.Path, secret)
			switch d.Action {
			case ActionRedirectHome:
				logger.Debug("admin probe redirected",
					slog.String("request_id", server.GetRequestID(r.Context())),
					slog.String("path", d.OriginalPath))
				http.Redirect(w, r, d.Target, http.StatusTemporaryRedirect)
				return
			case ActionRewrite:
				if d.Target == AdminPrefix {
					// The admin index links relative to its own directory.
					target := d.OriginalPath + "/"
					if r.URL.RawQuery != "" {
						target += "?" + r.URL.RawQuery
					}
					http.Redirect(w, r, target, http.StatusTemporaryRedirect)
					return
				}
				server.AddLogField(r.Context(), "rewritten_path", d.Target)
				r2 := r.Clone(r.Context())
				r2.URL.Path = d.Target
				r2.URL.RawPath = ""
				next.ServeHTTP(w, r2)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
