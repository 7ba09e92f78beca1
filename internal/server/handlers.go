// Package server exposes the auth service over HTTP.
package server

import (
	"net/http"

	"chatauth/internal/auth"
	"chatauth/internal/models"
	"chatauth/internal/token"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler serves the /api/auth routes.
type Handler struct {
	svc    *auth.Service
	secure bool
	log    *zap.Logger
}

// NewHandler returns a Handler. secure controls the Secure cookie flag and
// should be true in production.
func NewHandler(svc *auth.Service, secure bool, log *zap.Logger) *Handler {
	return &Handler{svc: svc, secure: secure, log: log}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID)

	api := r.PathPrefix("/api/auth").Subrouter()
	api.HandleFunc("/signup", h.signup).Methods(http.MethodPost)
	api.HandleFunc("/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/verify-otp", h.verifyOTP).Methods(http.MethodPost)
	api.HandleFunc("/resend-otp", h.resendOTP).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.logout).Methods(http.MethodPost)
	api.Handle("/onboard", h.protect(http.HandlerFunc(h.onboard))).Methods(http.MethodPost)
	api.Handle("/me", h.protect(http.HandlerFunc(h.me))).Methods(http.MethodGet)
	return r
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
	}
	if err := decode(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	u, err := h.svc.Signup(r.Context(), auth.SignupInput{Email: req.Email, Password: req.Password, FullName: req.FullName})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "user": u})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string `json:"code"`
		OTPToken string `json:"otpToken"`
	}
	if err := decode(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	sess, err := h.svc.VerifyOTP(r.Context(), req.Code, req.OTPToken)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	token.SetSessionCookie(w, sess.AccessToken, h.secure)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": sess.User})
}

func (h *Handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OTPToken string `json:"otpToken"`
	}
	if err := decode(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := h.svc.ResendOTP(r.Context(), req.OTPToken)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token.ClearSessionCookie(w, h.secure)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Logout successful"})
}

func (h *Handler) onboard(w http.ResponseWriter, r *http.Request) {
	var p models.Profile
	if err := decode(w, r, &p); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	u, err := h.svc.Onboard(r.Context(), userFrom(r.Context()).ID.Hex(), p)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": u})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": userFrom(r.Context())})
}
