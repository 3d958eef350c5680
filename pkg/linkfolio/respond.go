package linkfolio

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/linkfolio/linkfolio/pkg/apperr"
	"github.com/rs/zerolog"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

type errorResponse struct {
	Error  apperr.Code       `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondStatus(w http.ResponseWriter, status string) {
	respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

// respondError writes err as {"error": code}. Internal errors are logged and reported
// without detail.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.CodeOf(err)
	status := code.HTTPStatus()

	log := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError && code != apperr.CodeReadOnly {
		log.Error().Err(err).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("code", string(code)).Msg("request rejected")
	}

	respondJSON(w, status, errorResponse{Error: code, Fields: apperr.FieldsOf(err)})
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.New(apperr.CodeTooLarge, "request body too large")
		}
		return apperr.Validation(map[string]string{"body": "invalid JSON"})
	}
	return nil
}

// textID is implemented by the pointer types of the typed IDs.
type textID[T any] interface {
	*T
	UnmarshalText(text []byte) error
	IsZero() bool
}

// pathID parses the mux variable name into a typed ID. A malformed ID is reported as a
// missing resource.
func pathID[T any, PT textID[T]](r *http.Request, name, what string) (T, error) {
	var id T
	if err := PT(&id).UnmarshalText([]byte(mux.Vars(r)[name])); err != nil || PT(&id).IsZero() {
		return id, apperr.NotFound(what)
	}
	return id, nil
}

// queryInt returns the integer query parameter name, or def when it is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
