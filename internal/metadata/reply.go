package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Reply is the normalised model output.
type Reply struct {
	Description string   `json:"description"`
	Cast        []string `json:"cast"`
	Tags        []string `json:"tags"`
}

// ParseReply decodes the model's JSON answer. Markdown code fences around
// the object are tolerated. The result is normalised: whitespace trimmed,
// duplicates dropped, tags lowercased, lists capped at MaxCast and MaxTags.
func ParseReply(content string) (*Reply, error) {
	body := stripFences(content)
	if body == "" {
		return nil, errors.New("empty reply")
	}

	var r Reply
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		return nil, errors.New("reply has no description")
	}
	r.Cast = dedupe(r.Cast, MaxCast, false)
	r.Tags = dedupe(r.Tags, MaxTags, true)
	return &r, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string, e.g. ```json
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func dedupe(in []string, limit int, lower bool) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.Join(strings.Fields(v), " ")
		if lower {
			v = strings.ToLower(v)
		}
		k := strings.ToLower(v)
		if v == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
