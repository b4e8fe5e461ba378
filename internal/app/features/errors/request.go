// internal/app/features/errors/request.go
package errors

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/dalemusser/groupwork/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

// DecodeJSON reads the request body into v. An empty body leaves v as is.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return apperr.Validation("Malformed JSON request body.")
	}
	return nil
}

// URLID parses the integer path parameter key. Anything that is not a
// positive integer cannot name an entity, so it reads as not found.
func URLID(r *http.Request, key, entity string) (int64, error) {
	raw := chi.URLParam(r, key)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("%s %q does not exist", entity, raw)
	}
	return id, nil
}
