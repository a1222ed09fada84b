package participation

// MembershipResponse represents one member's standing with a trip
type MembershipResponse struct {
	TripID              int64   `json:"trip_id"`
	UserID              int64   `json:"user_id"`
	State               State   `json:"state"`
	Paid                bool    `json:"paid"`
	TrustScoreAtJoining float64 `json:"trust_score_at_joining"`
	UpdatedAt           string  `json:"updated_at,omitempty"`
}

// ToResponse converts a Membership to a MembershipResponse
func (m *Membership) ToResponse() *MembershipResponse {
	resp := &MembershipResponse{
		TripID:              m.TripID,
		UserID:              m.UserID,
		State:               m.State,
		Paid:                m.Paid,
		TrustScoreAtJoining: m.TrustScoreAtJoining,
	}
	if !m.UpdatedAt.IsZero() {
		resp.UpdatedAt = m.UpdatedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}
