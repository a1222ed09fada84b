package participation

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/tribe/pkg/middleware"
	"github.com/fkhayef/tribe/pkg/response"
)

// Handler handles HTTP requests for trip membership
type Handler struct {
	service *Service
}

// NewHandler creates a new participation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for membership endpoints, mounted under /trips/{id}/members
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/me", h.Me)
	r.Post("/join", h.Join)
	r.Post("/{userId}/approve", h.Approve)
	r.Post("/{userId}/deny", h.Deny)

	return r
}

// caller extracts the trip ID from the URL and the acting user from the context
func caller(w http.ResponseWriter, r *http.Request) (tripID, userID int64, ok bool) {
	tripID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return 0, 0, false
	}
	userID, ok = middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid user context")
		return 0, 0, false
	}
	return tripID, userID, true
}

// Join handles POST /trips/{id}/members/join
// @Summary      Ask to join a trip
// @Description  Verified travellers with a trust score of at least 6.5 are approved at once
// @Tags         members
// @Produce      json
// @Param        id path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=MembershipResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/members/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	tripID, userID, ok := caller(w, r)
	if !ok {
		return
	}

	m, err := h.service.RequestToJoin(r.Context(), tripID, userID)
	if err != nil {
		response.FromError(w, err, "Failed to join trip")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// List handles GET /trips/{id}/members
// @Summary      List a trip's memberships
// @Tags         members
// @Produce      json
// @Param        id path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=[]MembershipResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id}/members [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tripID, _, ok := caller(w, r)
	if !ok {
		return
	}

	memberships, err := h.service.ListByTrip(r.Context(), tripID)
	if err != nil {
		response.FromError(w, err, "Failed to list members")
		return
	}

	out := make([]*MembershipResponse, len(memberships))
	for i, m := range memberships {
		out[i] = m.ToResponse()
	}
	response.JSON(w, http.StatusOK, out)
}

// Me handles GET /trips/{id}/members/me
// @Summary      Get the caller's membership
// @Tags         members
// @Produce      json
// @Param        id path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=MembershipResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id}/members/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	tripID, userID, ok := caller(w, r)
	if !ok {
		return
	}

	m, err := h.service.Get(r.Context(), tripID, userID)
	if err != nil {
		response.FromError(w, err, "Failed to get membership")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// Approve handles POST /trips/{id}/members/{userId}/approve
// @Summary      Approve a join request
// @Tags         members
// @Produce      json
// @Param        id path int true "Trip ID"
// @Param        userId path int true "Requesting user ID"
// @Success      200 {object} response.APIResponse{data=MembershipResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/members/{userId}/approve [post]
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	tripID, hostID, ok := caller(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	m, err := h.service.Approve(r.Context(), tripID, hostID, userID)
	if err != nil {
		response.FromError(w, err, "Failed to approve member")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// Deny handles POST /trips/{id}/members/{userId}/deny
// @Summary      Deny a join request
// @Tags         members
// @Produce      json
// @Param        id path int true "Trip ID"
// @Param        userId path int true "Requesting user ID"
// @Success      200 {object} response.APIResponse{data=MembershipResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/members/{userId}/deny [post]
func (h *Handler) Deny(w http.ResponseWriter, r *http.Request) {
	tripID, hostID, ok := caller(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	m, err := h.service.Deny(r.Context(), tripID, hostID, userID)
	if err != nil {
		response.FromError(w, err, "Failed to deny member")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}
