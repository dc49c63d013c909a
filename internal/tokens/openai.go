// Package tokens counts and trims prompt text with tiktoken encodings so
// generated prompts stay within a token budget.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tjfontaine/allmovieshub/internal/api/openai"
)

// Chat formatting overhead, per OpenAI's accounting guidance.
const (
	tokensPerMessage = 3
	tokensPerRole    = 1
	assistantPriming = 3
)

// Counter counts tokens for OpenAI models. Codecs are cached by encoding.
type Counter struct {
	codecCache map[tokenizer.Encoding]tokenizer.Codec
	cacheMu    sync.RWMutex
}

// NewCounter creates a Counter.
func NewCounter() *Counter {
	return &Counter{
		codecCache: make(map[tokenizer.Encoding]tokenizer.Codec),
	}
}

func (c *Counter) getCodec(model string) (tokenizer.Codec, error) {
	encoding := modelToEncoding(model)

	c.cacheMu.RLock()
	if cached, ok := c.codecCache[encoding]; ok {
		c.cacheMu.RUnlock()
		return cached, nil
	}
	c.cacheMu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}

	c.cacheMu.Lock()
	c.codecCache[encoding] = codec
	c.cacheMu.Unlock()

	return codec, nil
}

// modelToEncoding maps model names to encodings.
//
// - O200kBase: GPT-5, GPT-4.1, GPT-4o, o-series and unknown newer models
// - Cl100kBase: GPT-4, GPT-3.5-turbo
func modelToEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "gpt-5"),
		strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "gpt-4o"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}

// CountText counts tokens for a plain text string.
func (c *Counter) CountText(model, text string) (int, error) {
	codec, err := c.getCodec(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// CountMessages counts the prompt tokens of a chat request, including
// per-message overhead and assistant priming.
func (c *Counter) CountMessages(model string, msgs []openai.ChatCompletionMessage) (int, error) {
	codec, err := c.getCodec(model)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, msg := range msgs {
		total += tokensPerMessage + tokensPerRole
		ids, _, err := codec.Encode(msg.Content)
		if err != nil {
			return 0, err
		}
		total += len(ids)
	}
	if len(msgs) > 0 {
		total += assistantPriming
	}
	return total, nil
}

// Truncate returns the longest token prefix of text that fits in maxTokens.
// The second return value reports whether text was shortened.
func (c *Counter) Truncate(model, text string, maxTokens int) (string, bool, error) {
	if maxTokens <= 0 {
		return "", text != "", nil
	}
	codec, err := c.getCodec(model)
	if err != nil {
		return "", false, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return "", false, err
	}
	if len(ids) <= maxTokens {
		return text, false, nil
	}
	out, err := codec.Decode(ids[:maxTokens])
	if err != nil {
		return "", false, err
	}
	// A cut inside a multi-byte rune decodes to U+FFFD.
	return strings.TrimRight(out, "\uFFFD"), true, nil
}

// Estimate approximates the token count of text at four characters per
// token. It is used when no codec is available.
func Estimate(text string) int {
	return (len(text) + 3) / 4
}
