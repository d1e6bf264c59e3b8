package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/feedmill/feedmill/internal/shared"
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrValidation), errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as {"error": message}. Internal errors never leak their text.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		Error(w, status, "internal server error")
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		Error(w, status, describeFieldError(verrs[0]))
		return
	}
	Error(w, status, err.Error())
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "gt", "gte", "lt", "lte", "min", "max":
		return fe.Field() + " must be " + fe.Tag() + " " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
