package contact

import (
	"encoding/json"
	"net/http"

	"github.com/tjfontaine/allmovieshub/internal/domain"
	"github.com/tjfontaine/allmovieshub/internal/server"
)

// MaxBodyBytes caps the contact request body.
const MaxBodyBytes = 64 << 10

const (
	msgDelivered = "Message sent successfully! We'll get back to you soon."
	msgReceived  = "Message received! We'll get back to you soon."
)

// Response is the success body of POST /api/contact.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Note    string `json:"note,omitempty"`
}

// Handler serves POST /api/contact.
type Handler struct {
	pipeline *Pipeline
	clientIP server.KeyFunc
}

// NewHandler creates a Handler. clientIP may be nil.
func NewHandler(p *Pipeline, clientIP server.KeyFunc) *Handler {
	if clientIP == nil {
		clientIP = server.ClientKey(false)
	}
	return &Handler{pipeline: p, clientIP: clientIP}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		domain.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		// Unreadable, oversized or non-object bodies carry no usable fields.
		h.reject(w, r, ErrMissingField())
		return
	}

	sub, err := ParseSubmission(fields)
	if err != nil {
		h.reject(w, r, err)
		return
	}

	ctx := WithRemoteIP(r.Context(), h.clientIP(r))
	res, err := h.pipeline.Submit(ctx, sub)
	if err != nil {
		h.reject(w, r, err)
		return
	}

	resp := Response{Success: true, Message: msgDelivered}
	if res.Outcome == OutcomeReceived {
		resp.Message = msgReceived
		resp.Note = res.Note
	}
	domain.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := domain.AsAPIError(err)
	if apiErr.Code != "" {
		server.AddLogField(r.Context(), "error_code", string(apiErr.Code))
	}
	if apiErr.Cause != nil {
		server.AddError(r.Context(), apiErr.Cause)
	}
	domain.WriteError(w, apiErr)
}
