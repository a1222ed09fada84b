package negotiation

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/tribe/pkg/middleware"
	"github.com/fkhayef/tribe/pkg/response"
)

// Handler handles HTTP requests for the negotiation ledger
type Handler struct {
	service *Service
}

// NewHandler creates a new negotiation handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for negotiation endpoints, mounted under /trips/{id}/negotiation
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Ledger)
	r.Get("/{category}", h.State)
	r.Post("/{category}/proposals", h.Propose)
	r.Post("/{category}/proposals/{proposalId}/vote", h.Vote)
	r.Post("/{category}/lock", h.Lock)

	return r
}

type target struct {
	tripID   int64
	userID   int64
	category Category
}

// parseTarget reads the trip, caller and category of a request. It writes
// the error response itself and returns false on failure.
func parseTarget(w http.ResponseWriter, r *http.Request, withCategory bool) (target, bool) {
	var t target
	var err error
	if t.tripID, err = strconv.ParseInt(chi.URLParam(r, "id"), 10, 64); err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return t, false
	}
	var ok bool
	if t.userID, ok = middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "Invalid user context")
		return t, false
	}
	if withCategory {
		if t.category, err = ParseCategory(chi.URLParam(r, "category")); err != nil {
			response.FromError(w, err, "Invalid category")
			return t, false
		}
	}
	return t, true
}

// Ledger handles GET /trips/{id}/negotiation
// @Summary      Get a trip's negotiation
// @Description  Every category with its proposals and lock, the lifecycle status and the amount payable
// @Tags         negotiation
// @Produce      json
// @Param        id path int true "Trip ID"
// @Success      200 {object} response.APIResponse{data=LedgerResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id}/negotiation [get]
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTarget(w, r, false)
	if !ok {
		return
	}

	ledger, err := h.service.Ledger(r.Context(), t.tripID)
	if err != nil {
		response.FromError(w, err, "Failed to get negotiation")
		return
	}

	response.JSON(w, http.StatusOK, ledger)
}

// State handles GET /trips/{id}/negotiation/{category}
// @Summary      Get one category's negotiation
// @Tags         negotiation
// @Produce      json
// @Param        id path int true "Trip ID"
// @Param        category path string true "TRANSPORT, LODGING or FLIGHT"
// @Success      200 {object} response.APIResponse{data=CategoryState}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id}/negotiation/{category} [get]
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTarget(w, r, true)
	if !ok {
		return
	}

	st, err := h.service.State(r.Context(), t.tripID, t.category)
	if err != nil {
		response.FromError(w, err, "Failed to get negotiation")
		return
	}

	response.JSON(w, http.StatusOK, st)
}

// Propose handles POST /trips/{id}/negotiation/{category}/proposals
// @Summary      Propose an option
// @Description  Approved members and the host may propose while the category is unlocked
// @Tags         negotiation
// @Accept       json
// @Produce      json
// @Param        id path int true "Trip ID"
// @Param        category path string true "TRANSPORT, LODGING or FLIGHT"
// @Param        request body ProposeRequest true "Proposal"
// @Success      201 {object} response.APIResponse{data=Proposal}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/negotiation/{category}/proposals [post]
func (h *Handler) Propose(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTarget(w, r, true)
	if !ok {
		return
	}

	var req ProposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	p, err := h.service.Propose(r.Context(), t.tripID, t.userID, t.category, &req)
	if err != nil {
		response.FromError(w, err, "Failed to create proposal")
		return
	}

	response.JSON(w, http.StatusCreated, p)
}

// Vote handles POST /trips/{id}/negotiation/{category}/proposals/{proposalId}/vote
// @Summary      Vote on a proposal
// @Description  YES joins the voters, NO leaves them. Votes on unknown proposals are ignored.
// @Tags         negotiation
// @Accept       json
// @Produce      json
// @Param        id path int true "Trip ID"
// @Param        category path string true "TRANSPORT, LODGING or FLIGHT"
// @Param        proposalId path string true "Proposal ID"
// @Param        request body VoteRequest true "Decision"
// @Success      200 {object} response.APIResponse{data=Proposal}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /trips/{id}/negotiation/{category}/proposals/{proposalId}/vote [post]
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTarget(w, r, true)
	if !ok {
		return
	}
	proposalID, err := uuid.Parse(chi.URLParam(r, "proposalId"))
	if err != nil {
		response.BadRequest(w, "Invalid proposal ID")
		return
	}

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	decision, err := ParseDecision(req.Decision)
	if err != nil {
		response.FromError(w, err, "Invalid decision")
		return
	}

	p, err := h.service.Vote(r.Context(), t.tripID, t.userID, t.category, proposalID, decision)
	if err != nil {
		response.FromError(w, err, "Failed to record vote")
		return
	}

	response.JSON(w, http.StatusOK, p)
}

// Lock handles POST /trips/{id}/negotiation/{category}/lock
// @Summary      Lock a category
// @Description  Host only. Locking travel and lodging opens payments.
// @Tags         negotiation
// @Accept       json
// @Produce      json
// @Param        id path int true "Trip ID"
// @Param        category path string true "TRANSPORT, LODGING or FLIGHT"
// @Param        request body LockRequest true "Proposal to lock"
// @Success      200 {object} response.APIResponse{data=CategoryState}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/negotiation/{category}/lock [post]
func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	t, ok := parseTarget(w, r, true)
	if !ok {
		return
	}

	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	proposalID, err := uuid.Parse(req.ProposalID)
	if err != nil {
		response.BadRequest(w, "Invalid proposal ID")
		return
	}

	st, err := h.service.Lock(r.Context(), t.tripID, t.userID, t.category, proposalID)
	if err != nil {
		response.FromError(w, err, "Failed to lock category")
		return
	}

	response.JSON(w, http.StatusOK, st)
}
