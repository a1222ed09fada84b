package events

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/pkg/middleware"
	"github.com/fkhayef/tribe/pkg/response"
)

// TypeReady is sent once a stream is subscribed, before any trip event
const TypeReady Type = "ready"

const writeTimeout = 5 * time.Second

// Authorizer decides who may watch a trip
type Authorizer interface {
	Authorize(ctx context.Context, tripID, userID int64) (*trip.Trip, error)
}

// Handler streams a trip's events over a websocket
type Handler struct {
	bus     Bus
	members Authorizer
	origins []string
}

// NewHandler creates a new event stream handler. origins are the accepted
// cross-origin patterns; empty allows same-origin clients only.
func NewHandler(bus Bus, members Authorizer, origins []string) *Handler {
	return &Handler{bus: bus, members: members, origins: origins}
}

// Stream handles GET /trips/{id}/events
// @Summary      Stream a trip's events
// @Description  Upgrades to a websocket and sends every event of the trip as JSON. Host and approved members only.
// @Tags         events
// @Param        id path int true "Trip ID"
// @Success      101
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id}/events [get]
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
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
	if _, err := h.members.Authorize(r.Context(), tripID, userID); err != nil {
		response.FromError(w, err, "Failed to authorize stream")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, unsubscribe, err := h.bus.Subscribe(ctx, tripID)
	if err != nil {
		log.Printf("[ERROR] failed to subscribe to trip %d: %v", tripID, err)
		conn.Close(websocket.StatusInternalError, "subscribe_failed")
		return
	}
	defer unsubscribe()

	if err := h.write(ctx, conn, NewEvent(tripID, TypeReady, nil)); err != nil {
		conn.Close(websocket.StatusNormalClosure, "write_failed")
		return
	}

	// Clients only listen; a read error means they went away
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-sub:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "stream_closed")
				return
			}
			if err := h.write(ctx, conn, evt); err != nil {
				conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, evt Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, evt)
}
