// Package vibe models travel-style answers and how well a traveller fits a group.
package vibe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fkhayef/tribe/internal/trust"
	"github.com/fkhayef/tribe/pkg/apperr"
)

// Axis names one travel-style question
type Axis string

const (
	AxisPace       Axis = "pace"
	AxisCommitment Axis = "commitment"
	AxisFood       Axis = "food"
	AxisSocial     Axis = "social"
	AxisTravelMode Axis = "travel_mode"
	AxisNightStyle Axis = "night_style"
	AxisSoloTime   Axis = "solo_time"
	AxisBudget     Axis = "budget"
)

// Axes lists every axis in display order
var Axes = []Axis{
	AxisPace, AxisCommitment, AxisFood, AxisSocial,
	AxisTravelMode, AxisNightStyle, AxisSoloTime, AxisBudget,
}

var allowedValues = map[Axis][]string{
	AxisPace:       {"slow", "balanced", "fast"},
	AxisCommitment: {"flexible", "committed"},
	AxisFood:       {"adventurous", "mixed", "familiar"},
	AxisSocial:     {"introvert", "ambivert", "extrovert"},
	AxisTravelMode: {"backpacker", "comfort", "luxury"},
	AxisNightStyle: {"early_bird", "night_owl", "flexible"},
	AxisSoloTime:   {"together", "some_alone", "independent"},
	AxisBudget:     {"shoestring", "moderate", "premium"},
}

var ErrInvalidAnswer = fmt.Errorf("invalid vibe answer: %w", apperr.ErrValidation)

// Profile is a snapshot of one completed vibe check. A new check replaces it
// wholesale.
type Profile struct {
	Pace       string `json:"pace"`
	Commitment string `json:"commitment"`
	Food       string `json:"food"`
	Social     string `json:"social"`
	TravelMode string `json:"travel_mode"`
	NightStyle string `json:"night_style"`
	SoloTime   string `json:"solo_time"`
	Budget     string `json:"budget"`
}

// Value returns the answer recorded for an axis
func (p *Profile) Value(axis Axis) string {
	switch axis {
	case AxisPace:
		return p.Pace
	case AxisCommitment:
		return p.Commitment
	case AxisFood:
		return p.Food
	case AxisSocial:
		return p.Social
	case AxisTravelMode:
		return p.TravelMode
	case AxisNightStyle:
		return p.NightStyle
	case AxisSoloTime:
		return p.SoloTime
	case AxisBudget:
		return p.Budget
	}
	return ""
}

// Normalize lower-cases and trims every answer
func (p *Profile) Normalize() {
	for _, field := range []*string{
		&p.Pace, &p.Commitment, &p.Food, &p.Social,
		&p.TravelMode, &p.NightStyle, &p.SoloTime, &p.Budget,
	} {
		*field = strings.ToLower(strings.TrimSpace(*field))
	}
}

// Validate checks that every axis holds one of its enumerated answers
func (p *Profile) Validate() error {
	for _, axis := range Axes {
		value := p.Value(axis)
		if !allowed(axis, value) {
			return fmt.Errorf("%w: %s must be one of %s, got %q",
				ErrInvalidAnswer, axis, strings.Join(AllowedValues(axis), ", "), value)
		}
	}
	return nil
}

// AllowedValues returns the answers accepted for an axis, sorted
func AllowedValues(axis Axis) []string {
	values := append([]string(nil), allowedValues[axis]...)
	sort.Strings(values)
	return values
}

func allowed(axis Axis, value string) bool {
	for _, v := range allowedValues[axis] {
		if v == value {
			return true
		}
	}
	return false
}

// CoTravelerSnapshot is a member's profile as it was when they joined a trip.
// Later profile edits do not reach it.
type CoTravelerSnapshot struct {
	UserID     int64         `json:"user_id"`
	Vibe       *Profile      `json:"vibe,omitempty"`
	Trust      trust.Profile `json:"trust_signals"`
	TrustScore float64       `json:"trust_score"`
}
