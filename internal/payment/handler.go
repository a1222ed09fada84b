package payment

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/tribe/pkg/middleware"
	"github.com/fkhayef/tribe/pkg/response"
)

// Handler handles HTTP requests for trip payments
type Handler struct {
	service *Service
}

// NewHandler creates a new payment handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for payment endpoints, mounted under /trips/{id}/payment
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Status)
	r.Get("/receipts", h.Receipts)

	return r
}

// InternalRoutes returns the gateway-facing router, mounted under
// /internal/trips/{id}/payment behind the service token
func (h *Handler) InternalRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/{userId}/confirm", h.Confirm)

	return r
}

func tripAndUser(w http.ResponseWriter, r *http.Request) (tripID, userID int64, ok bool) {
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

// Status handles GET /trips/{id}/payment
// @Summary      Get the caller's payment status
// @Description  Whether the caller may pay now and the per-person amount
// @Tags         payment
// @Produce      json
// @Param        id path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=StatusResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id}/payment [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	tripID, userID, ok := tripAndUser(w, r)
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), tripID, userID)
	if err != nil {
		response.FromError(w, err, "Failed to get payment status")
		return
	}

	response.JSON(w, http.StatusOK, status)
}

// Confirm handles POST /internal/trips/{id}/payment/{userId}/confirm
// @Summary      Confirm a member's payment
// @Description  Payment confirmed signal from the gateway. The amount must equal the payable amount. Repeats for a paid member are ignored.
// @Tags         internal
// @Accept       json
// @Produce      json
// @Param        id path int true "Trip ID"
// @Param        userId path int true "Paying member's user ID"
// @Param        request body ConfirmRequest true "Confirmed amount"
// @Success      200 {object} response.APIResponse{data=StatusResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Security     ServiceToken
// @Router       /internal/trips/{id}/payment/{userId}/confirm [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID <= 0 {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	status, err := h.service.Confirm(r.Context(), tripID, userID, &req)
	if err != nil {
		response.FromError(w, err, "Failed to confirm payment")
		return
	}

	response.JSON(w, http.StatusOK, status)
}

// Receipts handles GET /trips/{id}/payment/receipts
// @Summary      List a trip's payments
// @Tags         payment
// @Produce      json
// @Param        id path int true "Trip ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]Receipt}
// @Failure      403 {object} response.APIResponse
// @Router       /trips/{id}/payment/receipts [get]
func (h *Handler) Receipts(w http.ResponseWriter, r *http.Request) {
	tripID, userID, ok := tripAndUser(w, r)
	if !ok {
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

	receipts, total, err := h.service.Receipts(r.Context(), tripID, userID, page, perPage)
	if err != nil {
		response.FromError(w, err, "Failed to list payments")
		return
	}

	response.JSONWithMeta(w, http.StatusOK, receipts, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}
