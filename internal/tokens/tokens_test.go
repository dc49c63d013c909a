package tokens

import (
	"strings"
	"testing"

	"github.com/tiktoken-go/tokenizer"

	"github.com/tjfontaine/allmovieshub/internal/api/openai"
)

func TestModelToEncoding(t *testing.T) {
	tests := []struct {
		model string
		want  tokenizer.Encoding
	}{
		{"gpt-4o-mini", tokenizer.O200kBase},
		{"GPT-4o", tokenizer.O200kBase},
		{"gpt-4.1-nano", tokenizer.O200kBase},
		{"gpt-5", tokenizer.O200kBase},
		{"o3-mini", tokenizer.O200kBase},
		{"gpt-4-turbo", tokenizer.Cl100kBase},
		{"gpt-3.5-turbo", tokenizer.Cl100kBase},
		{"some-future-model", tokenizer.O200kBase},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := modelToEncoding(tt.model); got != tt.want {
				t.Errorf("modelToEncoding(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func TestCounter_CountText(t *testing.T) {
	c := NewCounter()

	n, err := c.CountText("gpt-4o-mini", "Hello, world!")
	if err != nil {
		t.Fatalf("CountText() error = %v", err)
	}
	if n < 2 || n > 6 {
		t.Errorf("CountText() = %d, want between 2 and 6", n)
	}

	n, err = c.CountText("gpt-4o-mini", "")
	if err != nil || n != 0 {
		t.Errorf("CountText(\"\") = %d, %v, want 0", n, err)
	}
}

func TestCounter_CountMessages(t *testing.T) {
	c := NewCounter()

	msgs := []openai.ChatCompletionMessage{
		{Role: "system", Content: "You are a film archivist."},
		{Role: "user", Content: "Describe Night Train (2021)."},
	}
	n, err := c.CountMessages("gpt-4o-mini", msgs)
	if err != nil {
		t.Fatalf("CountMessages() error = %v", err)
	}

	text := 0
	for _, m := range msgs {
		k, _ := c.CountText("gpt-4o-mini", m.Content)
		text += k
	}
	want := text + 2*(tokensPerMessage+tokensPerRole) + assistantPriming
	if n != want {
		t.Errorf("CountMessages() = %d, want %d", n, want)
	}

	if n, _ := c.CountMessages("gpt-4o-mini", nil); n != 0 {
		t.Errorf("CountMessages(nil) = %d, want 0", n)
	}
}

func TestCounter_Truncate(t *testing.T) {
	c := NewCounter()
	long := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)

	tests := []struct {
		name      string
		text      string
		max       int
		wantShort bool
	}{
		{"fits", "Night Train", 50, false},
		{"cut", long, 10, true},
		{"zero budget", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated, err := c.Truncate("gpt-4o-mini", tt.text, tt.max)
			if err != nil {
				t.Fatalf("Truncate() error = %v", err)
			}
			if truncated != tt.wantShort {
				t.Errorf("Truncate() truncated = %v, want %v", truncated, tt.wantShort)
			}
			if !strings.HasPrefix(tt.text, got) {
				t.Errorf("Truncate() = %q is not a prefix of the input", got)
			}
			if n, _ := c.CountText("gpt-4o-mini", got); n > tt.max {
				t.Errorf("Truncate() result has %d tokens, want <= %d", n, tt.max)
			}
		})
	}
}

func TestEstimate(t *testing.T) {
	if got := Estimate(""); got != 0 {
		t.Errorf("Estimate(\"\") = %d", got)
	}
	if got := Estimate("abcd"); got != 1 {
		t.Errorf("Estimate(abcd) = %d, want 1", got)
	}
	if got := Estimate("abcde"); got != 2 {
		t.Errorf("Estimate(abcde) = %d, want 2", got)
	}
}
