package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/sozercan/cheatsheet-ai/apimodels"
	"github.com/sozercan/cheatsheet-ai/internal/cheatsheet"
	"github.com/sozercan/cheatsheet-ai/internal/metrics"
	"github.com/sozercan/cheatsheet-ai/internal/pipeline"
	"github.com/sozercan/cheatsheet-ai/internal/upstream"
)

const invalidInput = "Invalid input"

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req apimodels.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("Rejecting malformed query", "error", err)
		s.writeQueryError(w, http.StatusBadRequest, invalidInput, "")
		return
	}

	slog.Debug("Received query request", "thread_id", req.Thread(), "language", req.Language)

	result, err := s.pipeline.Run(r.Context(), req)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidInput) {
			slog.Debug("Rejecting invalid query", "error", err)
			s.writeQueryError(w, http.StatusBadRequest, invalidInput, "")
			return
		}
		slog.Error("Query request failed", "error", err)
		s.writeQueryError(w, http.StatusInternalServerError, upstream.Message(err), upstream.Kind(err))
		return
	}

	metrics.ObserveQuery(http.StatusOK)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeQueryError(w http.ResponseWriter, status int, message, kind string) {
	metrics.ObserveQuery(status)
	writeJSON(w, status, apimodels.ErrorResponse{
		Status:  apimodels.StatusError,
		Message: message,
		Kind:    kind,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCheatsheets(w http.ResponseWriter, r *http.Request) {
	files, err := s.persister.List("")
	if err != nil {
		slog.Error("Listing cheatsheets failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleGetCheatsheet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	content, err := s.persister.Read("", name)
	switch {
	case errors.Is(err, cheatsheet.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, os.ErrNotExist):
		writeError(w, http.StatusNotFound, "cheatsheet not found")
		return
	case err != nil:
		slog.Error("Reading cheatsheet failed", "name", name, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if r.URL.Query().Get("format") == "html" {
		html, err := cheatsheet.RenderHTML(content)
		if err != nil {
			slog.Error("Rendering cheatsheet failed", "name", name, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		writeBody(w, html)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	writeBody(w, content)
}

func writeBody(w http.ResponseWriter, body []byte) {
	if _, err := w.Write(body); err != nil {
		slog.Debug("Writing response body failed", "error", err)
	}
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	history, err := s.memory.History(r.Context(), id)
	if err != nil {
		slog.Error("Loading thread failed", "thread_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(history) == 0 {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}

	resp := apimodels.ThreadResponse{ThreadID: id, Messages: make([]apimodels.Message, 0, len(history))}
	for _, m := range history {
		resp.Messages = append(resp.Messages, apimodels.Message{Role: m.Role, Content: m.Content})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.memory.Delete(r.Context(), id); err != nil {
		slog.Error("Deleting thread failed", "thread_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	slog.Info("Thread deleted", "thread_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apimodels.ErrorResponse{Status: apimodels.StatusError, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encoding response failed", "error", err)
	}
}
