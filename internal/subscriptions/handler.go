package subscriptions

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/pkg/httputil"
)

// Handler handles subscription HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new subscription handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registers routes open to anonymous visitors.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/subscriptions", h.Subscribe)
	r.Delete("/subscriptions", h.Unsubscribe)
}

// RegisterAdminRoutes registers routes that require an admin token.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/subscriptions", h.List)
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrInvalidEmail, Status: http.StatusBadRequest, Message: "Invalid email address"},
	{Error: ErrNotFound, Status: http.StatusNotFound, Message: "Email not found in subscriptions"},
}

// SubscribeRequest is the body of POST /subscriptions.
type SubscribeRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type subscriptionSummary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type subscribeResponse struct {
	Message      string              `json:"message"`
	Subscription subscriptionSummary `json:"subscription"`
}

type maskedSubscription struct {
	ID        string                    `json:"id"`
	Email     string                    `json:"email"`
	CreatedAt time.Time                 `json:"createdAt"`
	Verified  bool                      `json:"verified"`
	Types     []domain.NotificationType `json:"types"`
}

type listResponse struct {
	Total         int                  `json:"total"`
	Subscriptions []maskedSubscription `json:"subscriptions"`
}

// Subscribe handles POST /subscriptions.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	sub, created, err := h.service.Subscribe(r.Context(), req.Email)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	if !created {
		httputil.JSON(w, http.StatusOK, messageResponse{Message: "Email already subscribed"})
		return
	}

	httputil.JSON(w, http.StatusCreated, subscribeResponse{
		Message: "Successfully subscribed to notifications",
		Subscription: subscriptionSummary{
			ID:        sub.ID,
			Email:     sub.Email,
			CreatedAt: sub.CreatedAt,
		},
	})
}

// Unsubscribe handles DELETE /subscriptions?email=.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unsubscribe(r.Context(), r.URL.Query().Get("email")); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}
	httputil.JSON(w, http.StatusOK, messageResponse{Message: "Successfully unsubscribed"})
}

// List handles GET /subscriptions. Emails are masked.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.List(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	out := make([]maskedSubscription, 0, len(subs))
	for _, s := range subs {
		types := s.Types
		if types == nil {
			types = []domain.NotificationType{}
		}
		out = append(out, maskedSubscription{
			ID:        s.ID,
			Email:     MaskEmail(s.Email),
			CreatedAt: s.CreatedAt,
			Verified:  s.Verified,
			Types:     types,
		})
	}

	httputil.JSON(w, http.StatusOK, listResponse{Total: len(out), Subscriptions: out})
}
