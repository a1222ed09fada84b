package trip

// CreateTripRequest represents the request body for creating a trip
type CreateTripRequest struct {
	Name        string `json:"name"`
	Destination string `json:"destination"`
}

// TripResponse represents the response for a single trip
type TripResponse struct {
	ID          int64  `json:"id"`
	OwnerID     int64  `json:"owner_id"`
	Name        string `json:"name"`
	Destination string `json:"destination"`
	Status      Status `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// ToResponse converts a Trip model to a TripResponse DTO
func (t *Trip) ToResponse() *TripResponse {
	return &TripResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Name:        t.Name,
		Destination: t.Destination,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
