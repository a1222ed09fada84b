package vibe

import "math"

// EmptyTripMatch is reported for a trip without co-travellers yet
const EmptyTripMatch = 100

// weights per axis, summing to 100
var weights = map[Axis]float64{
	AxisBudget:     25,
	AxisCommitment: 10,
	AxisFood:       15,
	AxisSocial:     10,
	AxisTravelMode: 15,
	AxisPace:       10,
	AxisNightStyle: 10,
	AxisSoloTime:   5,
}

// Weight returns the share of the match an axis is worth
func Weight(axis Axis) float64 {
	return weights[axis]
}

// Match scores how well user fits the travellers, as an integer percent.
// ok is false when the user has not taken the vibe check, which callers must
// keep apart from a genuine 0% match.
func Match(user *Profile, travelers []CoTravelerSnapshot) (percent int, ok bool) {
	if user == nil {
		return 0, false
	}
	if len(travelers) == 0 {
		return EmptyTripMatch, true
	}

	count := float64(len(travelers))
	var total float64
	for _, axis := range Axes {
		want := user.Value(axis)
		matches := 0
		for _, t := range travelers {
			if t.Vibe != nil && t.Vibe.Value(axis) == want {
				matches++
			}
		}
		total += float64(matches) / count * weights[axis]
	}

	total = math.Max(0, math.Min(100, total))
	return int(math.Round(total)), true
}
