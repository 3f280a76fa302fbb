package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hugh/go-contacts/internal/api/validation"
)

const maxBodyBytes = 1 << 20

// Validatable is a request payload that can check itself.
type Validatable interface {
	Validate() error
}

type bodyKey struct{}

// ValidateBody decodes the JSON body into T and rejects the request with 400
// before the handler runs if decoding or validation fails. An empty body
// validates as the zero T, so it reports the payload's missing fields.
func ValidateBody[T Validatable]() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body T
			err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body)
			if err != nil && !errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "Invalid request body", nil)
				return
			}

			if err := body.Validate(); err != nil {
				writeError(w, http.StatusBadRequest, validation.Message(err), validation.Details(err))
				return
			}

			ctx := context.WithValue(r.Context(), bodyKey{}, body)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Body returns the payload stored by ValidateBody.
func Body[T Validatable](ctx context.Context) (T, bool) {
	body, ok := ctx.Value(bodyKey{}).(T)
	return body, ok
}
