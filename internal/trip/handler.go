package trip

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/tribe/pkg/middleware"
	"github.com/fkhayef/tribe/pkg/response"
)

// OwnerEnroller records the host as a paid member of a trip they just created
type OwnerEnroller interface {
	JoinAsOwner(ctx context.Context, tripID, ownerID int64) error
}

// Handler handles HTTP requests for trip operations
type Handler struct {
	service  *Service
	enroller OwnerEnroller
}

// NewHandler creates a new trip handler
func NewHandler(service *Service, enroller OwnerEnroller) *Handler {
	return &Handler{service: service, enroller: enroller}
}

// Routes returns the router for trip endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)

	return r
}

// Create handles POST /trips
// @Summary      Create a trip
// @Description  Create a trip hosted by the caller; the host is enrolled as a paid member
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        request body CreateTripRequest true "Trip creation request"
// @Success      201 {object} response.APIResponse{data=TripResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /trips [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid user context")
		return
	}

	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	t, err := h.service.Create(r.Context(), ownerID, &req)
	if err != nil {
		response.FromError(w, err, "Failed to create trip")
		return
	}

	if h.enroller != nil {
		if err := h.enroller.JoinAsOwner(r.Context(), t.ID, ownerID); err != nil {
			log.Printf("[ERROR] failed to enrol owner %d in trip %d: %v", ownerID, t.ID, err)
			response.InternalError(w, "Failed to enrol trip owner")
			return
		}
	}

	response.JSON(w, http.StatusCreated, t.ToResponse())
}

// GetByID handles GET /trips/{id}
// @Summary      Get trip by ID
// @Tags         trips
// @Produce      json
// @Param        id path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=TripResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	t, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		response.FromError(w, err, "Failed to get trip")
		return
	}

	response.JSON(w, http.StatusOK, t.ToResponse())
}

// List handles GET /trips
// @Summary      List trips
// @Tags         trips
// @Produce      json
// @Param        status query string false "Lifecycle status filter"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]TripResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /trips [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	status := Status(r.URL.Query().Get("status"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	trips, total, err := h.service.List(r.Context(), status, page, perPage)
	if err != nil {
		response.FromError(w, err, "Failed to list trips")
		return
	}

	tripResponses := make([]*TripResponse, len(trips))
	for i, t := range trips {
		tripResponses[i] = t.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, tripResponses, meta)
}
