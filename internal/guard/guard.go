// Package guard hides the administrative surface behind a configurable
// secret path segment.
//
// Requests to the well-known /admin prefix are bounced to the site root,
// while requests to /<secret>/... are served by the /admin handler tree
// without changing the address the client sees.
package guard

import "strings"

// DefaultSecretSegment is used when no secret path segment is configured.
const DefaultSecretSegment = "admin-secret-dashboard-2024"

// AdminPrefix is the internal mount point of the admin handler tree.
const AdminPrefix = "/admin"

// Action is what the dispatch layer should do with a request.
type Action int

const (
	// ActionPass lets the request continue unmodified.
	ActionPass Action = iota
	// ActionRedirectHome sends the client to the site root.
	ActionRedirectHome
	// ActionRewrite serves Target internally, leaving the visible path alone.
	ActionRewrite
)

func (a Action) String() string {
	switch a {
	case ActionPass:
		return "pass"
	case ActionRedirectHome:
		return "redirect_home"
	case ActionRewrite:
		return "rewrite"
	default:
		return "unknown"
	}
}

// Decision is the routing outcome for one request path.
type Decision struct {
	OriginalPath string
	Action       Action
	// Target is "/" for ActionRedirectHome and the internal admin path for
	// ActionRewrite. Empty for ActionPass.
	Target string
}

// Decide maps a request path to a routing decision. It is a pure function of
// its inputs.
func Decide(path, secretSegment string) Decision {
	secretPrefix := "/" + resolveSecret(secretSegment)

	switch {
	case strings.HasPrefix(path, AdminPrefix) && !strings.HasPrefix(path, secretPrefix):
		return Decision{OriginalPath: path, Action: ActionRedirectHome, Target: "/"}
	case strings.HasPrefix(path, secretPrefix):
		return Decision{
			OriginalPath: path,
			Action:       ActionRewrite,
			Target:       AdminPrefix + strings.TrimPrefix(path, secretPrefix),
		}
	default:
		return Decision{OriginalPath: path, Action: ActionPass}
	}
}

// Matches reports whether path falls under /admin or /<secret>, on a segment
// boundary. Paths that do not match never reach Decide.
func Matches(path, secretSegment string) bool {
	return underPrefix(path, AdminPrefix) || underPrefix(path, "/"+resolveSecret(secretSegment))
}

func underPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/'
}

func resolveSecret(secretSegment string) string {
	s := strings.Trim(strings.TrimSpace(secretSegment), "/")
	if s == "" {
		return DefaultSecretSegment
	}
	return s
}
