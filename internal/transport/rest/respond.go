package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mediagrid/timestore/internal/domain"
)

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleError maps domain errors to HTTP statuses. Unrecognized errors are
// logged and masked as 500s.
func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrMalformedRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrDanglingReference):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrReferentialIntegrity):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrStorageConflict):
		writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, domain.ErrFlowReadOnly):
		writeError(w, http.StatusForbidden, "flow is read-only")
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	default:
		log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathUUID parses the named path segment as a UUID, writing a 400 on failure.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// queryRange parses the timerange query parameter, defaulting to eternity.
func queryRange(w http.ResponseWriter, r *http.Request) (domain.TimeRange, bool) {
	raw := r.URL.Query().Get("timerange")
	if raw == "" {
		return domain.EternityRange(), true
	}
	rng, err := domain.ParseTimeRange(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return domain.TimeRange{}, false
	}
	return rng, true
}
