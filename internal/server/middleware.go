package server

import (
	"context"
	"io"
	"net/http"

	"chatauth/internal/auth"
	"chatauth/internal/models"
	"chatauth/internal/token"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userKey
)

// requestID tags every request with an X-Request-ID, reusing the caller's
// value when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// protect requires a valid access token in the session cookie and loads the
// user into the request context.
func (h *Handler) protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(token.CookieName)
		if err != nil || c.Value == "" {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized - No token provided")
			return
		}
		acc, err := h.svc.Tokens().VerifyAccess(c.Value)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized - Invalid token")
			return
		}
		u, err := h.svc.Me(r.Context(), acc.Subject)
		if err != nil {
			if auth.KindOf(err) == auth.NotFound {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized - User not found")
				return
			}
			writeError(w, r, h.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

// Wrap applies recovery, CORS with credentials for the allowed origins, and
// access logging to access.
func Wrap(next http.Handler, origins []string, access io.Writer) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID"}),
		handlers.AllowCredentials(),
	)
	return handlers.LoggingHandler(access, handlers.RecoveryHandler()(cors(next)))
}
