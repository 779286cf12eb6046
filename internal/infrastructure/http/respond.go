// Package http - respond.go maps domain errors to JSON responses.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/0xcro3dile/bacopilot-go/internal/domain/entities"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encoding response failed")
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrSessionNotFound), errors.Is(err, entities.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrInvalidPhase), errors.Is(err, entities.ErrStaleReview),
		errors.Is(err, entities.ErrDuplicateDocument):
		return http.StatusConflict
	case errors.Is(err, entities.ErrEmptyContent), errors.Is(err, entities.ErrProviderUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrProviderCallFailed):
		return http.StatusBadGateway
	case errors.Is(err, entities.ErrKnowledgeBaseUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}
