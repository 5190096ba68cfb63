package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/julianstephens/habitsync/internal/constants"
	apperrors "github.com/julianstephens/habitsync/internal/errors"
	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/models"
)

const maxBodyBytes = constants.MaxRequestBodyMiB << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, models.ErrorBody{Error: models.ErrorDetail{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

func writeInternal(w http.ResponseWriter, err error) {
	logger.Error("Request failed", "error", err)
	writeError(w, http.StatusInternalServerError, apperrors.CodeInternal, "internal server error", nil)
}

// readBody reads at most maxBodyBytes of the request body. On failure the
// error response has already been written.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, apperrors.CodeValidation,
				fmt.Sprintf("request body exceeds %d MiB", constants.MaxRequestBodyMiB), nil)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, apperrors.CodeValidation, "failed to read request body", nil)
		return nil, false
	}
	return body, true
}

// decodeBody decodes a JSON object body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.CodeValidation, "request body must be a JSON object", nil)
		return false
	}
	return true
}
