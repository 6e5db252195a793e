package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/oncontrol/platform/internal/auth"
	"github.com/oncontrol/platform/internal/model"
	"github.com/oncontrol/platform/pkg/logging"
)

// AuthHandler exposes doctor registration and login.
type AuthHandler struct {
	svc    *auth.Service
	logger *logging.Logger
}

func NewAuthHandler(svc *auth.Service, logger *logging.Logger) *AuthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuthHandler{svc: svc, logger: logger}
}

// RegisterRequest is the request body for doctor registration.
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	Specialty    string `json:"specialty"`
	License      string `json:"license"`
	Phone        string `json:"phone"`
	DocumentType string `json:"documentType"`
	DNI          string `json:"dni,omitempty"`
	RUC          string `json:"ruc,omitempty"`
}

// RegisterResponse is returned after successful registration.
type RegisterResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session token and identity.
type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Register creates a credential plus the public doctor profile.
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		jsonError(w, "valid email is required", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		jsonError(w, "password is required", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}

	profile := model.DoctorProfile{
		Name:         req.Name,
		Specialty:    req.Specialty,
		License:      req.License,
		Phone:        req.Phone,
		DocumentType: model.DocumentType(req.DocumentType),
		DNI:          req.DNI,
		RUC:          req.RUC,
	}

	uid, err := h.svc.RegisterDoctor(r.Context(), req.Email, req.Password, profile)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			jsonError(w, "an account already exists for this email", http.StatusConflict)
			return
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			jsonError(w, "invalid email or password", http.StatusBadRequest)
			return
		}
		h.logger.Error("register doctor", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{UID: uid, Email: req.Email})
}

// Login verifies credentials and issues a session token.
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	user, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			jsonError(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		h.logger.Error("login", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: *user})
}
