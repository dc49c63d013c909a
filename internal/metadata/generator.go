// Package metadata generates catalog metadata (synopsis, cast, tags) for
// movie titles with an OpenAI chat model and caches the results.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tjfontaine/allmovieshub/internal/api/openai"
	"github.com/tjfontaine/allmovieshub/internal/domain"
	"github.com/tjfontaine/allmovieshub/internal/storage"
	"github.com/tjfontaine/allmovieshub/internal/telemetry"
	"github.com/tjfontaine/allmovieshub/internal/tokens"
)

// Limits applied to generated lists.
const (
	MaxCast = 10
	MaxTags = 8
)

const systemPrompt = `You are a movie catalog assistant. Reply with one JSON object and nothing else, using exactly these keys:
"description": a two or three sentence synopsis,
"cast": an array of up to 10 plausible lead actor names,
"tags": an array of up to 8 short lowercase genre or theme tags.`

// Completer is the subset of the OpenAI client the generator needs.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req *openai.ChatCompletionRequest, opts *openai.RequestOptions) (*openai.ChatCompletionResponse, error)
}

// Request describes the title to generate metadata for.
type Request struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
	Genre string `json:"genre,omitempty"`
	// Force regenerates even when a cached entry exists.
	Force bool `json:"force,omitempty"`
}

// Config tunes generation.
type Config struct {
	Model       string
	Temperature float32
	// MaxPromptTokens bounds the whole prompt, overhead included.
	MaxPromptTokens int
	// MaxFieldTokens bounds each user-supplied field before it is embedded.
	MaxFieldTokens int
	// MaxTokens caps the completion.
	MaxTokens int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxPromptTokens == 0 {
		c.MaxPromptTokens = 512
	}
	if c.MaxFieldTokens == 0 {
		c.MaxFieldTokens = 64
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 600
	}
	return c
}

// Generator produces MovieMetadata.
type Generator struct {
	client  Completer
	store   storage.MetadataStore
	counter *tokens.Counter
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewGenerator creates a Generator. store may be nil to disable caching.
func NewGenerator(client Completer, store storage.MetadataStore, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:  client,
		store:   store,
		counter: tokens.NewCounter(),
		cfg:     cfg.withDefaults(),
		logger:  logger,
		now:     time.Now,
	}
}

// Generate returns metadata for req, from the cache unless req.Force is set.
func (g *Generator) Generate(ctx context.Context, req Request) (md *storage.MovieMetadata, err error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidRequest("title is required")
	}
	if req.Year < 0 {
		return nil, domain.ErrInvalidRequest("year must not be negative")
	}

	key := storage.MetadataKey(title, req.Year)

	ctx, span := telemetry.StartSpan(ctx, "metadata.generate",
		attribute.String("metadata.key", key),
		attribute.Bool("metadata.force", req.Force))
	defer func() { telemetry.EndSpan(span, err) }()

	if g.store != nil && !req.Force {
		cached, err := g.store.GetMetadata(ctx, key)
		if err == nil {
			span.SetAttributes(attribute.Bool("metadata.cached", true))
			return cached, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			g.logger.WarnContext(ctx, "metadata cache lookup failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}

	genre := strings.TrimSpace(req.Genre)
	msgs, err := g.buildPrompt(title, req.Year, genre)
	if err != nil {
		return nil, err
	}

	temp := g.cfg.Temperature
	resp, err := g.client.CreateChatCompletion(ctx, &openai.ChatCompletionRequest{
		Model:          g.cfg.Model,
		Messages:       msgs,
		Temperature:    &temp,
		MaxTokens:      g.cfg.MaxTokens,
		ResponseFormat: &openai.ResponseFormat{Type: "json_object"},
	}, nil)
	if err != nil {
		var apiErr *domain.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, domain.ErrUpstream("metadata generation failed").WithCause(err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.ErrUpstream("model returned no choices")
	}

	parsed, err := ParseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, domain.ErrUpstream("model returned unusable metadata").WithCause(err)
	}

	md = &storage.MovieMetadata{
		Key:         key,
		Title:       title,
		Year:        req.Year,
		Genre:       genre,
		Description: parsed.Description,
		Cast:        parsed.Cast,
		Tags:        parsed.Tags,
		Model:       resp.Model,
		CreatedAt:   g.now().UTC(),
	}
	if md.Model == "" {
		md.Model = g.cfg.Model
	}

	g.logger.InfoContext(ctx, "metadata generated",
		slog.String("key", key),
		slog.String("model", md.Model),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens))

	if g.store != nil {
		if err := g.store.SaveMetadata(ctx, md); err != nil {
			g.logger.WarnContext(ctx, "failed to cache metadata",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}

	return md, nil
}

// buildPrompt trims user fields to the field budget and rejects prompts over
// the overall budget.
func (g *Generator) buildPrompt(title string, year int, genre string) ([]openai.ChatCompletionMessage, error) {
	var err error
	if title, _, err = g.counter.Truncate(g.cfg.Model, title, g.cfg.MaxFieldTokens); err != nil {
		return nil, fmt.Errorf("trim title: %w", err)
	}
	if genre, _, err = g.counter.Truncate(g.cfg.Model, genre, g.cfg.MaxFieldTokens); err != nil {
		return nil, fmt.Errorf("trim genre: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate catalog metadata for the movie %q", title)
	if year > 0 {
		b.WriteString(" released in " + strconv.Itoa(year))
	}
	if genre != "" {
		fmt.Fprintf(&b, " (genre: %s)", genre)
	}
	b.WriteString(".")

	msgs := []openai.ChatCompletionMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}

	n, err := g.counter.CountMessages(g.cfg.Model, msgs)
	if err != nil {
		return nil, fmt.Errorf("count prompt tokens: %w", err)
	}
	if n > g.cfg.MaxPromptTokens {
		return nil, domain.ErrInvalidRequest(
			fmt.Sprintf("prompt is %d tokens, limit is %d", n, g.cfg.MaxPromptTokens)).
			WithCode(domain.ErrorCodeContextLength)
	}
	return msgs, nil
}
