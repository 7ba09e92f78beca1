package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatauth/internal/auth"

	"go.uber.org/zap"
)

type errorBody struct {
	Message       string   `json:"message"`
	MissingFields []string `json:"missingFields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes {"message": message}.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

// writeError maps a service error to its HTTP form. Internal causes are
// logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var e *auth.Error
	if !errors.As(err, &e) {
		e = &auth.Error{Kind: auth.Internal, Message: "Internal Server Error", Err: err}
	}
	if e.Kind == auth.Internal {
		log.Error("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(e.Err))
	}
	writeJSON(w, e.Kind.Status(), errorBody{Message: e.Message, MissingFields: e.Missing})
}

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
