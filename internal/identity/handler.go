package identity

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gearconnect/statuspage/internal/pkg/ctxlog"
	"github.com/gearconnect/statuspage/internal/pkg/httputil"
)

// maxLoginBody bounds the login request body.
const maxLoginBody = 4 << 10

// Handler serves the admin login endpoint.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler creates a login handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// RegisterRoutes mounts POST /auth/login.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
}

// Both failures answer 401 with the same message so callers cannot tell a
// disabled login from a wrong password.
var loginErrors = []httputil.ErrorMapping{
	{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	{Error: ErrLoginDisabled, Status: http.StatusUnauthorized, Message: "invalid credentials"},
}

// LoginRequest is the login body.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login exchanges admin credentials for an access token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		ctxlog.FromContext(r.Context()).Warn("admin login failed", "username", req.Username)
		httputil.HandleError(r.Context(), w, err, loginErrors)
		return
	}

	ctxlog.FromContext(r.Context()).Info("admin logged in", "username", req.Username)
	httputil.JSON(w, http.StatusOK, LoginResponse{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt.UTC(),
	})
}
