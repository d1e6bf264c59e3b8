package httpx

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/feedmill/feedmill/internal/shared"
)

// Bind decodes the JSON body into target and runs struct validation.
func Bind(r *http.Request, v *validator.Validate, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		if errors.Is(err, io.EOF) {
			return shared.Invalid("request body is required")
		}
		return shared.Invalid("malformed JSON body: " + err.Error())
	}
	if v == nil {
		return nil
	}
	return v.Struct(target)
}

// IDParam parses a positive int64 chi URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Invalid("invalid " + name)
	}
	return id, nil
}
