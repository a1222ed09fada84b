// Package trust scores how far the group can rely on a traveller.
//
// Score is the canonical 0-10 trust score used for auto-approval and for the
// group score shown on a trip. It is a pure function of the profile signals.
package trust

import (
	"fmt"
	"math"
)

const (
	baseScore = 5.0
	maxScore  = 10.0

	kycBonus = 2.0

	ratingMidpoint       = 3.0
	ratingHalfRange      = 2.0
	establishedRatings   = 5
	establishedRatingMul = 2.0
	newRatingMul         = 1.5

	maxDropPenalty = 3.0
	maxChatPenalty = 2.5

	abusiveWeight = 0.8
	toxicWeight   = 0.4
	spamWeight    = 0.2

	violentContentPenalty = 4.0
)

// experienceTiers are checked in order; the first satisfied tier wins
var experienceTiers = []struct {
	minTrips int
	bonus    float64
}{
	{5, 1.0},
	{3, 0.8},
	{1, 0.6},
}

// ChatFlags counts moderation flags raised against a user's chat messages
type ChatFlags struct {
	AbusiveCount int `json:"abusive_count"`
	ToxicCount   int `json:"toxic_count"`
	SpamCount    int `json:"spam_count"`
}

// Profile holds the signals the trust score is computed from
type Profile struct {
	KYCVerified        bool      `json:"kyc_verified"`
	TripsCompleted     int       `json:"trips_completed"`
	TripsDropped       int       `json:"trips_dropped"`
	AvgRating          float64   `json:"avg_rating"`
	RatingCount        int       `json:"rating_count"`
	ChatFlags          ChatFlags `json:"chat_flags"`
	ViolentContentFlag bool      `json:"violent_content_flag"`
}

// Result is a trust score with a human-readable breakdown
type Result struct {
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// Score computes the trust score for one profile.
func Score(p Profile) Result {
	score := baseScore
	reasons := make([]string, 0, 6)

	if p.KYCVerified {
		score += kycBonus
		reasons = append(reasons, fmt.Sprintf("Identity verified (+%.1f)", kycBonus))
	}

	for _, tier := range experienceTiers {
		if p.TripsCompleted >= tier.minTrips {
			score += tier.bonus
			reasons = append(reasons, fmt.Sprintf("%d trips completed (+%.1f)", p.TripsCompleted, tier.bonus))
			break
		}
	}

	if p.RatingCount >= 1 {
		norm := (p.AvgRating - ratingMidpoint) / ratingHalfRange
		mul := newRatingMul
		if p.RatingCount >= establishedRatings {
			mul = establishedRatingMul
		}
		contribution := norm * mul
		score += contribution
		reasons = append(reasons, fmt.Sprintf("Rated %.1f★ by %d travellers (%+.1f)", p.AvgRating, p.RatingCount, contribution))
	}

	if total := p.TripsCompleted + p.TripsDropped; total > 0 && p.TripsDropped > 0 {
		dropRate := float64(p.TripsDropped) / float64(total)
		penalty := math.Min(maxDropPenalty, dropRate*maxDropPenalty)
		score -= penalty
		reasons = append(reasons, fmt.Sprintf("Dropped %d of %d trips (-%.1f)", p.TripsDropped, total, penalty))
	}

	chat := float64(p.ChatFlags.AbusiveCount)*abusiveWeight +
		float64(p.ChatFlags.ToxicCount)*toxicWeight +
		float64(p.ChatFlags.SpamCount)*spamWeight
	if chat > 0 {
		penalty := math.Min(maxChatPenalty, chat)
		score -= penalty
		reasons = append(reasons, fmt.Sprintf("Flagged chat conduct (-%.1f)", penalty))
	}

	if p.ViolentContentFlag {
		score -= violentContentPenalty
		reasons = append(reasons, fmt.Sprintf("Violent content flag (-%.1f)", violentContentPenalty))
	}

	return Result{Score: roundToOneDecimal(clamp(score)), Reasons: reasons}
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// roundToOneDecimal rounds a score to one decimal place
func roundToOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}
