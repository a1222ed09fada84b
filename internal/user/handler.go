package user

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/tribe/internal/vibe"
	"github.com/fkhayef/tribe/pkg/apperr"
	"github.com/fkhayef/tribe/pkg/middleware"
	"github.com/fkhayef/tribe/pkg/response"
)

var (
	ErrNotSelf    = fmt.Errorf("users can only change their own vibe check: %w", apperr.ErrUnauthorized)
	ErrSelfRating = fmt.Errorf("users cannot rate themselves: %w", apperr.ErrValidation)
)

// Handler handles HTTP requests for user operations
type Handler struct {
	service *Service
}

// NewHandler creates a new user handler with service dependency injected
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for user endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Get("/{id}/trust", h.GetTrust)
	r.Put("/{id}/vibe", h.UpdateVibe)
	r.Post("/{id}/ratings", h.Rate)

	return r
}

// InternalRoutes returns the endpoints fed by verification, moderation and
// trip completion. They carry no user identity and must be mounted behind
// middleware.RequireServiceToken.
func (h *Handler) InternalRoutes() chi.Router {
	r := chi.NewRouter()

	r.Put("/{id}/kyc", h.SetKYC)
	r.Post("/{id}/chat-flags", h.FlagChat)
	r.Post("/{id}/trips/outcome", h.RecordTripOutcome)

	return r
}

func userIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// Create handles POST /users
// @Summary      Create a new user
// @Description  Create a traveller profile with a display name
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body CreateUserRequest true "User creation request"
// @Success      201 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /users [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	user, err := h.service.Create(r.Context(), &req)
	if err != nil {
		response.FromError(w, err, "Failed to create user")
		return
	}

	response.JSON(w, http.StatusCreated, user.ToResponse())
}

// GetByID handles GET /users/{id}
// @Summary      Get user by ID
// @Tags         users
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /users/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		response.FromError(w, err, "Failed to get user")
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}

// GetTrust handles GET /users/{id}/trust
// @Summary      Get a user's trust score
// @Description  Trust score from 0 to 10 with the reasons behind it
// @Tags         users
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} response.APIResponse{data=TrustResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /users/{id}/trust [get]
func (h *Handler) GetTrust(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	result, err := h.service.Trust(r.Context(), id)
	if err != nil {
		response.FromError(w, err, "Failed to compute trust score")
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// UpdateVibe handles PUT /users/{id}/vibe
// @Summary      Submit the vibe check
// @Description  Replace the caller's travel-style answers
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path int true "User ID"
// @Param        request body vibe.Profile true "Vibe answers"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /users/{id}/vibe [put]
func (h *Handler) UpdateVibe(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}
	if callerID, _ := middleware.GetUserID(r.Context()); callerID != id {
		response.FromError(w, ErrNotSelf, "Failed to update vibe")
		return
	}

	var req vibe.Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	user, err := h.service.UpdateVibe(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, err, "Failed to update vibe")
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}

// SetKYC handles PUT /internal/users/{id}/kyc
// @Summary      Record identity verification
// @Description  Called by the verification workflow once a decision is made
// @Tags         internal
// @Accept       json
// @Produce      json
// @Param        id path int true "User ID"
// @Param        request body KYCRequest true "Verification result"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Security     ServiceToken
// @Router       /internal/users/{id}/kyc [put]
func (h *Handler) SetKYC(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req KYCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	user, err := h.service.SetKYC(r.Context(), id, req.Verified)
	if err != nil {
		response.FromError(w, err, "Failed to record verification")
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}

// Rate handles POST /users/{id}/ratings
// @Summary      Rate a co-traveller
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id path int true "User ID"
// @Param        request body RatingRequest true "Rating from 1 to 5"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /users/{id}/ratings [post]
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}
	if callerID, _ := middleware.GetUserID(r.Context()); callerID == id {
		response.FromError(w, ErrSelfRating, "Failed to record rating")
		return
	}

	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	user, err := h.service.RecordRating(r.Context(), id, req.Rating)
	if err != nil {
		response.FromError(w, err, "Failed to record rating")
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}

// FlagChat handles POST /internal/users/{id}/chat-flags
// @Summary      Record a chat moderation flag
// @Tags         internal
// @Accept       json
// @Produce      json
// @Param        id path int true "User ID"
// @Param        request body ChatFlagRequest true "Flag"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Security     ServiceToken
// @Router       /internal/users/{id}/chat-flags [post]
func (h *Handler) FlagChat(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req ChatFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	user, err := h.service.RecordChatFlag(r.Context(), id, &req)
	if err != nil {
		response.FromError(w, err, "Failed to record chat flag")
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}

// RecordTripOutcome handles POST /internal/users/{id}/trips/outcome
// @Summary      Record a completed or dropped trip
// @Tags         internal
// @Accept       json
// @Produce      json
// @Param        id path int true "User ID"
// @Param        request body TripOutcomeRequest true "Outcome"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Security     ServiceToken
// @Router       /internal/users/{id}/trips/outcome [post]
func (h *Handler) RecordTripOutcome(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req TripOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	user, err := h.service.RecordTripOutcome(r.Context(), id, req.Outcome)
	if err != nil {
		response.FromError(w, err, "Failed to record trip outcome")
		return
	}

	response.JSON(w, http.StatusOK, user.ToResponse())
}
