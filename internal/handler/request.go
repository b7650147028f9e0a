package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/auth"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
)

// maxJSONBody bounds JSON request bodies. Webhooks use their own limit.
const maxJSONBody = 1 << 20

// decodeJSON reads a single JSON object from the request body into v.
// Unknown fields are rejected so typos in field names surface as 400s.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError

		switch {
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body must not be empty")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return domain.Invalid(op, "Request body contains malformed JSON")
		case errors.As(err, &typeErr):
			return domain.Invalid(op, fmt.Sprintf("Field %q has the wrong type", typeErr.Field))
		case errors.As(err, &maxErr):
			return domain.Errorf(domain.ETOOLARGE, op, "Request body is too large")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return domain.Invalid(op, "Unknown field "+field)
		default:
			return domain.Invalid(op, "Invalid request body")
		}
	}

	if dec.More() {
		return domain.Invalid(op, "Request body must contain a single JSON object")
	}
	return nil
}

// pathUUID parses the named path value as a UUID.
func pathUUID(r *http.Request, name, op string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Invalid(op, fmt.Sprintf("Invalid %s", name))
	}
	return id, nil
}

// pagination reads ?limit= and ?offset=. Services clamp the values.
func pagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

// requestUser returns the authenticated user. Routes are wrapped in
// RequireUser, so a nil user is a wiring bug reported as 401.
func requestUser(r *http.Request, op string) (*domain.User, error) {
	user := auth.GetUser(r.Context())
	if user == nil {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	return user, nil
}

// writeOK writes v with status 200.
func writeOK(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}
