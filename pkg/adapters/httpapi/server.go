// Package httpapi exposes the funnel engine as a JSON API over HTTP,
// with a per-session SSE stream for view updates and redirect signals.
package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/funnelworks/funnel"
	"github.com/funnelworks/funnel/internal/logging"
	"github.com/funnelworks/funnel/pkg/domain"
)

// Server wires the engine into chi handlers.
type Server struct {
	engine  *funnel.Engine
	streams *StreamManager
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewHandler creates the HTTP handler for the engine. The StreamManager
// must be the same instance wired into the engine as its redirect
// broker and change listener, so SSE clients see every settled view.
func NewHandler(engine *funnel.Engine, streams *StreamManager, opts ...Option) http.Handler {
	s := &Server{
		engine:  engine,
		streams: streams,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Method(http.MethodGet, "/metrics", engine.Metrics().Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getView)
			r.Delete("/", s.endSession)
			r.Post("/answer", s.answer)
			r.Post("/next", s.next)
			r.Post("/back", s.back)
			r.Post("/continue", s.exitInterstitial)
			r.Get("/events", s.subscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	// An empty body is fine; the server generates an ID.
	_ = json.NewDecoder(r.Body).Decode(&body)

	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = newSessionID()
	}

	view, err := s.engine.StartSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Start error: %v", err), http.StatusInternalServerError)
		s.logger.Error("StartSession failed", "err", err)
		return
	}
	s.writeView(w, view, http.StatusCreated)
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.View(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.writeView(w, view, http.StatusOK)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.viewError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("answer: invalid request body", "err", err)
		return
	}
	if body.QuestionID == "" {
		http.Error(w, "question_id is required", http.StatusBadRequest)
		return
	}

	view, err := s.engine.RecordAnswer(r.Context(), chi.URLParam(r, "sessionID"), body.QuestionID, body.Value)
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.writeView(w, view, http.StatusOK)
}

func (s *Server) next(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.Advance(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.writeView(w, view, http.StatusOK)
}

func (s *Server) back(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.Retreat(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.writeView(w, view, http.StatusOK)
}

func (s *Server) exitInterstitial(w http.ResponseWriter, r *http.Request) {
	view, err := s.engine.ExitInterstitialForward(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.viewError(w, err)
		return
	}
	s.writeView(w, view, http.StatusOK)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"app":       "funnel-http",
		"version":   funnel.Version,
		"questions": s.engine.Funnel().Catalog.Len(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// subscribeEvents handles the per-session SSE stream.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("subscribeEvents: streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeView(w http.ResponseWriter, view domain.View, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(view); err != nil {
		s.logger.Error("view encode failed", "err", err)
	}
}

func (s *Server) viewError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, domain.ErrQuestionNotFound) {
		http.Error(w, "Unknown question", http.StatusBadRequest)
		return
	}
	http.Error(w, fmt.Sprintf("Internal error: %v", err), http.StatusInternalServerError)
	s.logger.Error("request failed", "err", err)
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "session-fallback"
	}
	return hex.EncodeToString(buf)
}
