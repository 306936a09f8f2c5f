// Package httpapi exposes the wizard over HTTP: clients post updates and
// poll a per-chat outbox for the replies.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/alexanderramin/sitepilot/internal/logging"
	"github.com/alexanderramin/sitepilot/internal/wizard"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxBodyBytes caps an update body; images travel base64-encoded inside it.
const MaxBodyBytes = 32 << 20

// Handler consumes updates; *wizard.Wizard satisfies it.
type Handler interface {
	HandleUpdate(ctx context.Context, upd wizard.Update) error
}

// UpdateRequest is the body of POST /v1/updates.
type UpdateRequest struct {
	UserID  string     `json:"user_id"`
	ChatID  string     `json:"chat_id"`
	Text    string     `json:"text,omitempty"`
	Command string     `json:"command,omitempty"`
	Images  []ImageDTO `json:"images,omitempty"`
}

// ImageDTO carries one upload. Data is base64 in JSON.
type ImageDTO struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server wires the routes.
type Server struct {
	Updates Handler
	Outbox  *Outbox
	Metrics http.Handler
	Log     *slog.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(s *Server) http.Handler {
	if s.Log == nil {
		s.Log = logging.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/updates", s.PostUpdate)
		r.Get("/chats/{chatID}/outbox", s.GetOutbox)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Log.DebugContext(r.Context(), "http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// PostUpdate handles POST /v1/updates. The update is accepted once the
// wizard has taken it; replies arrive in the chat's outbox.
func (s *Server) PostUpdate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var body UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if body.UserID == "" || body.ChatID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id and chat_id are required"})
		return
	}
	if body.Text == "" && body.Command == "" && len(body.Images) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "one of text, command or images is required"})
		return
	}

	upd := wizard.Update{
		UserID:  body.UserID,
		ChatID:  body.ChatID,
		Text:    body.Text,
		Command: body.Command,
	}
	for _, img := range body.Images {
		if len(img.Data) == 0 {
			continue
		}
		mime := img.MimeType
		if mime == "" {
			mime = http.DetectContentType(img.Data)
		}
		upd.Images = append(upd.Images, llm.Image{Data: img.Data, MimeType: mime})
	}

	// Background tasks outlive the request.
	if err := s.Updates.HandleUpdate(context.WithoutCancel(r.Context()), upd); err != nil {
		s.Log.ErrorContext(r.Context(), "update_rejected", "user", body.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "update could not be processed"})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetOutbox handles GET /v1/chats/{chatID}/outbox.
func (s *Server) GetOutbox(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.Outbox.Drain(chatID)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
