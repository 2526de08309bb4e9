package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"mdbrowse/internal/auth"
	"mdbrowse/internal/domain"
	"mdbrowse/internal/httputil"
	"mdbrowse/internal/service"
)

// handleError maps domain errors onto the shared error envelope.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		forbiddenErr  *domain.ForbiddenError
		conflictErr   *domain.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", validationErr.Message, validationErr.Hint)
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, r, http.StatusBadRequest, "validation_error", err.Error(), "")
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, r, http.StatusUnauthorized, "unauthorized", err.Error(), "")
	case errors.As(err, &forbiddenErr):
		httputil.RespondError(w, r, http.StatusForbidden, "forbidden", forbiddenErr.Message, forbiddenErr.Hint)
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, r, http.StatusForbidden, "forbidden", err.Error(), "")
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, r, http.StatusNotFound, "not_found", err.Error(), "")
	case errors.As(err, &conflictErr):
		httputil.RespondError(w, r, http.StatusConflict, "conflict", conflictErr.Message, "")
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, r, http.StatusConflict, "conflict", err.Error(), "")
	default:
		httputil.RespondError(w, r, http.StatusInternalServerError, "internal_error", "internal server error", "")
	}
}

// requireActor rejects unauthenticated requests. Scope checks live in the
// services; this only guarantees some credential was presented.
func requireActor(w http.ResponseWriter, r *http.Request) (*auth.Actor, bool) {
	actor := httputil.GetActor(r)
	if actor == nil {
		httputil.RespondError(w, r, http.StatusUnauthorized, "unauthorized", "authentication required",
			"send a Bearer session token or an X-Agent-Token header")
		return nil, false
	}
	return actor, true
}

// IdempotencyKeyHeader is the client-supplied deduplication key for
// mutating requests.
const IdempotencyKeyHeader = "Idempotency-Key"

// guarded runs a mutating operation under the idempotency service and
// writes its canonical response. Replays are marked with a response header
// and return stored bytes verbatim.
func guarded(w http.ResponseWriter, r *http.Request, idem *service.IdempotencyService, op service.IdempotencyOperation) {
	status, body, replayed, err := idem.Guard(r.Context(), r.Header.Get(IdempotencyKeyHeader), op)
	if err != nil {
		handleError(w, r, err)
		return
	}

	if replayed {
		w.Header().Set("Idempotency-Replayed", "true")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// jsonOp adapts a result-producing closure into an idempotency operation.
func jsonOp(status int, fn func(ctx context.Context) (any, error)) service.IdempotencyOperation {
	return func(ctx context.Context) (int, []byte, error) {
		result, err := fn(ctx)
		if err != nil {
			return 0, nil, err
		}
		body, err := json.Marshal(result)
		if err != nil {
			return 0, nil, err
		}
		return status, body, nil
	}
}
