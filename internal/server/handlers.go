package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khushi491/interview-buddy-sub000/internal/session"
)

const maxBodyBytes = 1 << 20

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// fail maps session errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrInvalidRequest):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrInterviewEnded),
		errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrAnalysisInProgress):
		Error(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		Error(w, http.StatusBadGateway, "interviewer unavailable")
	}
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) listFlows(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"flows": s.flows})
}

func (s *Server) startInterview(w http.ResponseWriter, r *http.Request) {
	var req session.StartRequest
	if !decode(w, r, &req) {
		return
	}
	req.Transport = "http"

	sess, err := s.manager.Start(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, sess.View())
}

func (s *Server) getInterview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, sess.View())
}

type messageRequest struct {
	Content string `json:"content"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}

	msg, err := sess.Reply(r.Context(), req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"message":   msg,
		"interview": sess.View(),
	})
}

type transcriptRequest struct {
	Turns []session.TranscriptTurn `json:"turns"`
}

func (s *Server) putTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req transcriptRequest
	if !decode(w, r, &req) {
		return
	}
	if err := sess.AppendTranscript(r.Context(), req.Turns); err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, sess.View())
}

func (s *Server) continueInterview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Continue(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, sess.View())
}

func (s *Server) finishInterview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Finish(r.Context())
	JSON(w, http.StatusOK, sess.View())
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	a, err := sess.Analyze(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, a)
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if sess, err := s.manager.Get(id); err == nil {
		if a, ok := sess.Analysis(); ok {
			JSON(w, http.StatusOK, a)
			return
		}
		Error(w, http.StatusNotFound, "analysis not generated yet")
		return
	}

	rec, err := s.manager.Record(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rec.Analysis == nil {
		Error(w, http.StatusNotFound, "analysis not generated yet")
		return
	}
	JSON(w, http.StatusOK, rec.Analysis)
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.manager.Record(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	JSON(w, http.StatusOK, rec)
}
