package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nldav/accountd/internal/domain"
	"github.com/nldav/accountd/internal/service"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// HandleRegister processes a registration request.
// POST /register
// Request:  {"email":"...","name":"...","password":"..."}
// Response: {"message":"...","user":{...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "An account with that email already exists.")
			return
		}
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("register user", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User registered successfully. Please confirm your email.",
		"user":    toUserDTO(user),
	})
}

// HandleLogin processes a login request.
// POST /login
// Request:  {"email":"...","password":"..."}
// Response: {"message":"...","user":{...},"token":"..."}
//
// An unknown email and a wrong password return the identical response so
// account existence cannot be probed. An unconfirmed account is told so:
// the caller already proved ownership of the credentials.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusUnauthorized, "Invalid email or password.")
		case errors.Is(err, domain.ErrNotConfirmed):
			writeError(w, http.StatusUnauthorized, "Please confirm your email address before logging in.")
		default:
			slog.Error("login user", "error", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Logged in successfully.",
		"user":    toUserDTO(user),
		"token":   token,
	})
}

// HandleConfirmEmail confirms an account from an emailed link.
// GET /confirm-email?token=...
// Response: {"message":"..."}
func (h *AuthHandler) HandleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	if err := h.auth.ConfirmEmail(r.Context(), token); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, "Invalid confirmation token.")
			return
		}
		slog.Error("confirm email", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Email confirmed successfully.",
	})
}

// HandleForgotPassword starts the password reset flow.
// POST /forgot-password
// Request:  {"email":"..."}
// Response: {"message":"..."} — identical whether or not the account exists.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("forgot password", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If an account with that email exists, password reset instructions have been sent.",
	})
}

// HandleResetPassword consumes a reset token and sets a new password.
// POST /reset-password
// Request:  {"token":"...","password":"..."}
// Response: {"message":"..."}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, domain.ErrResetTokenInvalid):
			writeError(w, http.StatusBadRequest, "Password reset token is invalid or has expired.")
		case errors.Is(err, domain.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("reset password", "error", err)
			writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password has been reset successfully. Please log in with your new password.",
	})
}

// HandleMe returns the currently authenticated user.
// GET /me
// Response: {"user":{...}}
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromContext(r.Context())
	if ac == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), ac.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Not authenticated.")
			return
		}
		slog.Error("get current user", "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleAdmin is the admin-only endpoint. Reaching it at all means the
// caller passed RequireAdmin.
// GET /admin
// Response: {"message":"..."}
func (h *AuthHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the admin panel.",
	})
}
