package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avelldiaz/authbase/internal/auth"
	"github.com/avelldiaz/authbase/internal/config"
	"github.com/avelldiaz/authbase/internal/http/respond"
	"github.com/avelldiaz/authbase/internal/middleware"
	"github.com/avelldiaz/authbase/internal/models"
	"github.com/avelldiaz/authbase/internal/models/dto"
	"github.com/avelldiaz/authbase/internal/validate"
)

// AuthHandler owns the signup/signin/me endpoints.
type AuthHandler struct {
	svc *auth.Service
	cfg config.Config
	log *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *auth.Service, cfg config.Config, log *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg, log: log}
}

// Register attaches auth routes to the router. The guard protects /me only.
func (h *AuthHandler) Register(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Post("/signup", h.handleSignUp)
	r.Post("/signin", h.handleSignIn)
	r.With(guard).Get("/me", h.handleMe)
}

func (h *AuthHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}

	in, errs := validate.SignUp(req.Email, req.Password, req.FullName)
	if len(errs) > 0 {
		respond.ValidationError(w, errs)
		return
	}

	session, err := h.svc.SignUp(r.Context(), in)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			respond.Error(w, http.StatusConflict, "An account with this email already exists.")
			return
		}
		h.internalError(w, "sign up", err)
		return
	}

	respond.JSON(w, http.StatusCreated, "Registration successful.", session)
}

func (h *AuthHandler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid JSON payload.")
		return
	}

	in, errs := validate.SignIn(req.Email, req.Password)
	if len(errs) > 0 {
		respond.ValidationError(w, errs)
		return
	}

	session, err := h.svc.SignIn(r.Context(), in)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respond.Error(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		h.internalError(w, "sign in", err)
		return
	}

	respond.JSON(w, http.StatusOK, "Login successful.", session)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Invalid or expired token.")
		return
	}

	respond.JSON(w, http.StatusOK, "", meResponse{User: h.svc.CurrentUser(user)})
}

type meResponse struct {
	User models.SafeUser `json:"user"`
}

// internalError hides error detail in production-like mode.
func (h *AuthHandler) internalError(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, "error", err)

	if errors.Is(err, auth.ErrNoSecret) {
		respond.Error(w, http.StatusInternalServerError, "Server configuration error.")
		return
	}

	message := "An unexpected error occurred."
	if !h.cfg.IsProduction() {
		message = err.Error()
	}
	respond.Error(w, http.StatusInternalServerError, message)
}
