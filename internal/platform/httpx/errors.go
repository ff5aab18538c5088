package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/stocklane/stocklane/internal/shared"
)

// RespondError maps shared domain errors to RFC7807 responses. Handlers
// map their package specific errors before falling back here.
func RespondError(w http.ResponseWriter, err error) {
	var verr validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, shared.ErrPermissionDenied):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.As(err, &verr):
		Problem(w, http.StatusUnprocessableEntity, "Validation Failed", verr.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
