package matching

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/tribe/pkg/middleware"
	"github.com/fkhayef/tribe/pkg/response"
)

// Handler handles HTTP requests for trip matching
type Handler struct {
	service *Service
}

// NewHandler creates a new matching handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register adds the matching endpoints to r
func (h *Handler) Register(r chi.Router) {
	r.Get("/trips/{id}/trust", h.GroupTrust)
	r.Get("/trips/{id}/vibe-match", h.VibeMatch)
	r.Get("/discover", h.Discover)
}

// GroupTrust handles GET /trips/{id}/trust
// @Summary      Get a trip's group trust
// @Description  Average trust score of the host and approved members, 5.0 when nobody resolves
// @Tags         matching
// @Produce      json
// @Param        id path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=GroupTrustResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id}/trust [get]
func (h *Handler) GroupTrust(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	gt, err := h.service.GroupTrust(r.Context(), tripID)
	if err != nil {
		response.FromError(w, err, "Failed to compute group trust")
		return
	}

	response.JSON(w, http.StatusOK, gt)
}

// VibeMatch handles GET /trips/{id}/vibe-match
// @Summary      Get the caller's vibe match with a trip
// @Description  Match is null until the caller takes the vibe check
// @Tags         matching
// @Produce      json
// @Param        id path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=VibeMatchResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id}/vibe-match [get]
func (h *Handler) VibeMatch(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid user context")
		return
	}

	vm, err := h.service.VibeMatch(r.Context(), tripID, userID)
	if err != nil {
		response.FromError(w, err, "Failed to compute vibe match")
		return
	}

	response.JSON(w, http.StatusOK, vm)
}

// Discover handles GET /discover
// @Summary      Discover trips
// @Description  Trips still planning, best fit for the caller first
// @Tags         matching
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]TripMatch}
// @Router       /discover [get]
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid user context")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	matches, total, err := h.service.Discover(r.Context(), userID, page, perPage)
	if err != nil {
		response.FromError(w, err, "Failed to discover trips")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, matches, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}
