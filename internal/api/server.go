package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/IsaacCespedes/BriefingRoom/internal/transcript"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Lifecycle is the mutation surface of the transcript reconciler. All
// writes go through it; the store is only read directly.
type Lifecycle interface {
	Reconcile(ctx context.Context, roomName, interviewID string) (*transcript.Record, error)
	MergeClientSubmission(ctx context.Context, interviewID string, sub transcript.ClientSubmission) (*transcript.Record, error)
}

type Server struct {
	store     transcript.Store
	lifecycle Lifecycle
	router    chi.Router
	port      int
}

func NewServer(s transcript.Store, lc Lifecycle, port int) *Server {
	srv := &Server{
		store:     s,
		lifecycle: lc,
		port:      port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.handleHealth)
		r.Route("/transcripts/{interviewID}", func(r chi.Router) {
			r.Get("/", srv.handleGetTranscript)
			r.Post("/", srv.handleSaveTranscript)
			r.Post("/fetch", srv.handleFetchTranscript)
			r.Get("/download", srv.handleDownloadTranscript)
		})
	})

	srv.router = r
	return srv
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("starting HTTP API", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "scribe",
	})
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewID")

	rec, err := s.store.GetByInterviewID(r.Context(), interviewID)
	if err != nil {
		slog.Error("get transcript failed", "interview_id", interviewID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "transcript not found; it may not be available yet, try fetching it first",
		})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleFetchTranscript triggers a reconcile against the provider. The
// response status distinguishes nothing: the record's status field does
// (pending means try again later).
func (s *Server) handleFetchTranscript(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewID")
	roomName := transcript.RoomNameForInterview(interviewID)

	rec, err := s.lifecycle.Reconcile(r.Context(), roomName, interviewID)
	if err != nil {
		if errors.Is(err, transcript.ErrTransientProvider) {
			slog.Warn("provider fetch failed", "interview_id", interviewID, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error": "conferencing provider unavailable, retry later",
			})
			return
		}
		slog.Error("reconcile failed", "interview_id", interviewID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// saveRequest is the body posted by the frontend with a locally captured
// transcript.
type saveRequest struct {
	TranscriptData transcript.ClientSubmission `json:"transcript_data"`
	Source         string                      `json:"source,omitempty"`
}

func (s *Server) handleSaveTranscript(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewID")

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	sub := req.TranscriptData
	if sub.Source == "" {
		sub.Source = req.Source
	}

	rec, err := s.lifecycle.MergeClientSubmission(r.Context(), interviewID, sub)
	if err != nil {
		if errors.Is(err, transcript.ErrInvalidSubmission) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("save transcript failed", "interview_id", interviewID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleDownloadTranscript serves the stored transcript as an attachment
// in txt, vtt, or json form. A representation that was never captured is
// a 404, not an empty success.
func (s *Server) handleDownloadTranscript(w http.ResponseWriter, r *http.Request) {
	interviewID := chi.URLParam(r, "interviewID")

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "txt"
	}

	rec, err := s.store.GetByInterviewID(r.Context(), interviewID)
	if err != nil {
		slog.Error("get transcript failed", "interview_id", interviewID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transcript not found"})
		return
	}

	var (
		content   []byte
		mediaType string
		ext       string
	)
	switch format {
	case "txt":
		if rec.Text == "" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "transcript text not available"})
			return
		}
		content, mediaType, ext = []byte(rec.Text), "text/plain", "txt"
	case "vtt":
		if rec.RawVTT == "" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "WebVTT transcript not available"})
			return
		}
		content, mediaType, ext = []byte(rec.RawVTT), "text/vtt", "vtt"
	case "json":
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		content, mediaType, ext = data, "application/json", "json"
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unsupported format %q, expected txt, vtt, or json", format),
		})
		return
	}

	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="transcript-%s.%s"`, interviewID, ext))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
