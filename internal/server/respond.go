package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openclaw/board/internal/board"
	"github.com/openclaw/board/internal/chat"
	"github.com/openclaw/board/internal/files"
	"github.com/openclaw/board/internal/logger"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("encode response failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondStoreError maps store errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrNotFound) || errors.Is(err, chat.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, board.ErrValidation) || errors.Is(err, chat.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, files.ErrTraversal):
		respondError(w, http.StatusForbidden, "access denied: path traversal detected")
	case errors.Is(err, files.ErrTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "file too large (max 1MB)")
	case errors.Is(err, files.ErrIsDirectory):
		respondError(w, http.StatusBadRequest, "path is a directory")
	default:
		logger.L.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}
