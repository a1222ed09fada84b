package trust

// DefaultGroupScore is reported when no member profile resolves. A trip with
// nobody to judge starts neutral rather than at zero.
const DefaultGroupScore = 5.0

// Lookup resolves a user id to its trust profile
type Lookup func(userID int64) (Profile, bool)

// GroupScore averages Score over the given ids. Duplicate ids count once and
// ids the lookup cannot resolve are skipped.
func GroupScore(ids []int64, lookup Lookup) float64 {
	seen := make(map[int64]struct{}, len(ids))
	var sum float64
	var n int
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		profile, ok := lookup(id)
		if !ok {
			continue
		}
		sum += Score(profile).Score
		n++
	}
	if n == 0 {
		return DefaultGroupScore
	}
	return roundToOneDecimal(sum / float64(n))
}

// MapLookup adapts a map of profiles to a Lookup
func MapLookup(profiles map[int64]Profile) Lookup {
	return func(userID int64) (Profile, bool) {
		p, ok := profiles[userID]
		return p, ok
	}
}
