package contact

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		failAt     map[int]bool
		wantStatus int
		wantBody   map[string]any
		wantSends  int
	}{
		{
			name:       "delivered",
			method:     http.MethodPost,
			body:       `{"name":"Jane","email":"jane@x.com","subject":"Movie request","message":"Please add Foo (2024)"}`,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"success": true, "message": "Message sent successfully! We'll get back to you soon."},
			wantSends:  2,
		},
		{
			name:       "received when transport fails",
			method:     http.MethodPost,
			body:       `{"name":"Jane","email":"jane@x.com","subject":"Movie request","message":"Please add Foo (2024)"}`,
			failAt:     map[int]bool{0: true, 1: true},
			wantStatus: http.StatusOK,
			wantBody: map[string]any{
				"success": true,
				"message": "Message received! We'll get back to you soon.",
				"note":    "Email notification may be delayed.",
			},
			wantSends: 2,
		},
		{
			name:       "empty name",
			method:     http.MethodPost,
			body:       `{"name":"","email":"jane@x.com","subject":"Movie request","message":"hi"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "All fields are required"},
		},
		{
			name:       "missing key",
			method:     http.MethodPost,
			body:       `{"email":"jane@x.com","subject":"Movie request","message":"hi"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "All fields are required"},
		},
		{
			name:       "bad email",
			method:     http.MethodPost,
			body:       `{"name":"Jane","email":"jane@x","subject":"Movie request","message":"hi"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "Invalid email format"},
		},
		{
			name:       "not json",
			method:     http.MethodPost,
			body:       `name=Jane`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "All fields are required"},
		},
		{
			name:       "json array",
			method:     http.MethodPost,
			body:       `["Jane"]`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "All fields are required"},
		},
		{
			name:       "json null",
			method:     http.MethodPost,
			body:       `null`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "All fields are required"},
		},
		{
			name:       "oversized body",
			method:     http.MethodPost,
			body:       `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": "All fields are required"},
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   map[string]any{"error": "method not allowed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{failAt: tt.failAt}
			h := NewHandler(NewPipeline(testConfig, sender), nil)

			req := httptest.NewRequest(tt.method, "/api/contact", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var got map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("unmarshal body: %v", err)
			}
			if len(got) != len(tt.wantBody) {
				t.Errorf("body = %v, want %v", got, tt.wantBody)
			}
			for k, want := range tt.wantBody {
				if got[k] != want {
					t.Errorf("body[%q] = %v, want %v", k, got[k], want)
				}
			}

			if len(sender.sent) != tt.wantSends {
				t.Errorf("sent %d messages, want %d", len(sender.sent), tt.wantSends)
			}
		})
	}
}
