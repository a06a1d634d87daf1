package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/hisa/internal/apperr"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

type errorBody struct {
	Error      string             `json:"error"`
	Violations []apperr.Violation `json:"violations,omitempty"`
	Details    map[string]any     `json:"details,omitempty"`
}

// writeError maps err onto an HTTP status. Unexpected errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *apperr.ValidationError
		nf *apperr.NotFoundError
		de *apperr.DuplicateError
		ce *apperr.CycleError
		iq *apperr.InsufficientQuantityError
		cf *apperr.ConflictError
		cg *apperr.ConfigurationError
	)
	switch {
	case errors.As(err, &ve):
		jsonResponse(w, http.StatusBadRequest, errorBody{Error: "validation failed", Violations: ve.Violations})
	case errors.As(err, &nf):
		jsonError(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &de):
		jsonResponse(w, http.StatusConflict, errorBody{Error: de.Error(), Details: map[string]any{
			"field": de.Field, "value": de.Value,
		}})
	case errors.As(err, &ce):
		jsonResponse(w, http.StatusConflict, errorBody{Error: ce.Error(), Details: map[string]any{
			"location_id": ce.LocationID, "parent_id": ce.ParentID,
		}})
	case errors.As(err, &iq):
		jsonResponse(w, http.StatusConflict, errorBody{Error: iq.Error(), Details: map[string]any{
			"item_id": iq.ItemID, "location_id": iq.LocationID, "available": iq.Available, "requested": iq.Requested,
		}})
	case errors.As(err, &cf):
		jsonResponse(w, http.StatusConflict, errorBody{Error: cf.Error(), Details: map[string]any{
			"expected_version": cf.Expected, "actual_version": cf.Actual,
		}})
	case errors.As(err, &cg):
		jsonError(w, http.StatusServiceUnavailable, cg.Component+" is unavailable")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", RequestID(r.Context()), "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(target); err != nil {
		return apperr.Invalid("body", "invalid JSON: %v", err)
	}
	return nil
}

// pathID parses a positive int64 path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

// queryInt64 parses an optional integer query parameter; missing yields 0.
func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, apperr.Invalid(name, "must be a non-negative integer")
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperr.Invalid(name, "must be true or false")
	}
	return b, nil
}

// expectedVersion reads the optimistic version from the body field, falling
// back to the If-Match header.
func expectedVersion(r *http.Request, body *int64) (*int64, error) {
	if body != nil {
		return body, nil
	}
	raw := r.Header.Get("If-Match")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(strings.Trim(raw, `"`), 10, 64)
	if err != nil {
		return nil, apperr.Invalid("If-Match", "must be an item version")
	}
	return &v, nil
}

// versionTag formats an item version as a strong entity tag.
func versionTag(version int64) string {
	return strconv.Quote(strconv.FormatInt(version, 10))
}
