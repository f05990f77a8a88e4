package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/dukerupert/homecrew/internal/apperr"
	"github.com/dukerupert/homecrew/internal/middleware"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders service errors with their mapped status. Anything that
// is not an *apperr.Error is logged and surfaces as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Code == apperr.Internal {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err,
		)
		apperr.Write(w, apperr.New(apperr.Internal))
		return
	}
	apperr.Write(w, e)
}

// decodeJSON reads a single JSON object from the request body. Malformed
// bodies are reported as BAD_REQUEST.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Newf(apperr.BadRequest, "request body is required")
		}
		return apperr.Newf(apperr.BadRequest, "invalid JSON: %v", err)
	}
	if dec.More() {
		return apperr.Newf(apperr.BadRequest, "request body must be a single JSON object")
	}
	return nil
}

// pathID returns the {id} path value, which must be a UUID.
func pathID(r *http.Request) (string, error) {
	id := r.PathValue("id")
	if err := uuid.Validate(id); err != nil {
		return "", apperr.Field("id", "must be a valid UUID")
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent yields 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Newf(apperr.BadRequest, "query parameter %s must be an integer", name)
	}
	return n, nil
}

// queryString returns a pointer to the query value, nil when absent.
func queryString(r *http.Request, name string) *string {
	if !r.URL.Query().Has(name) {
		return nil
	}
	v := r.URL.Query().Get(name)
	return &v
}
