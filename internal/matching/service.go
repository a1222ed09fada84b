// Package matching holds the read-only views used to rank and display trips:
// the group trust of a trip and how well a traveller's vibe fits it.
package matching

import (
	"context"
	"sort"

	"github.com/fkhayef/tribe/internal/trip"
	"github.com/fkhayef/tribe/internal/trust"
	"github.com/fkhayef/tribe/internal/user"
	"github.com/fkhayef/tribe/internal/vibe"
)

// Trips reads trips
type Trips interface {
	GetByID(ctx context.Context, id int64) (*trip.Trip, error)
	List(ctx context.Context, status trip.Status, page, perPage int) ([]*trip.Trip, int, error)
}

// Members reads who is travelling on a trip
type Members interface {
	ApprovedMemberIDs(ctx context.Context, tripID int64) ([]int64, error)
	Snapshots(ctx context.Context, tripID, excludeUserID int64) ([]vibe.CoTravelerSnapshot, error)
}

// Users reads live user profiles
type Users interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
	TrustProfiles(ctx context.Context, ids []int64) (map[int64]trust.Profile, error)
}

// Service computes trip matching views
type Service struct {
	trips   Trips
	members Members
	users   Users
}

// NewService creates a new matching service
func NewService(trips Trips, members Members, users Users) *Service {
	return &Service{trips: trips, members: members, users: users}
}

// GroupTrust averages the live trust scores of the host and approved members
func (s *Service) GroupTrust(ctx context.Context, tripID int64) (*GroupTrustResponse, error) {
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return s.groupTrust(ctx, t)
}

func (s *Service) groupTrust(ctx context.Context, t *trip.Trip) (*GroupTrustResponse, error) {
	ids, err := s.members.ApprovedMemberIDs(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	ids = append([]int64{t.OwnerID}, ids...)

	profiles, err := s.users.TrustProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	return &GroupTrustResponse{
		TripID:  t.ID,
		Score:   trust.GroupScore(ids, trust.MapLookup(profiles)),
		Members: len(profiles),
	}, nil
}

// VibeMatch scores userID against the trip's approved members other than
// themselves
func (s *Service) VibeMatch(ctx context.Context, tripID, userID int64) (*VibeMatchResponse, error) {
	if _, err := s.trips.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	match, err := s.vibeMatch(ctx, tripID, u)
	if err != nil {
		return nil, err
	}
	return &VibeMatchResponse{TripID: tripID, UserID: userID, Match: match}, nil
}

func (s *Service) vibeMatch(ctx context.Context, tripID int64, u *user.User) (*int, error) {
	travelers, err := s.members.Snapshots(ctx, tripID, u.ID)
	if err != nil {
		return nil, err
	}
	percent, ok := vibe.Match(u.Vibe, travelers)
	if !ok {
		return nil, nil
	}
	return &percent, nil
}

// Discover ranks one page of trips still planning for userID: best vibe
// match first, then the more trusted group, then the older trip.
func (s *Service) Discover(ctx context.Context, userID int64, page, perPage int) ([]*TripMatch, int, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	trips, total, err := s.trips.List(ctx, trip.StatusPlanning, page, perPage)
	if err != nil {
		return nil, 0, err
	}

	matches := make([]*TripMatch, 0, len(trips))
	for _, t := range trips {
		gt, err := s.groupTrust(ctx, t)
		if err != nil {
			return nil, 0, err
		}
		vm, err := s.vibeMatch(ctx, t.ID, u)
		if err != nil {
			return nil, 0, err
		}
		matches = append(matches, &TripMatch{Trip: t.ToResponse(), VibeMatch: vm, GroupTrust: gt.Score})
	}
	Rank(matches)
	return matches, total, nil
}

// Rank orders matches by vibe match, then group trust, both descending, then
// by trip id. Trips without a vibe match sort after those with one.
func Rank(matches []*TripMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if (a.VibeMatch == nil) != (b.VibeMatch == nil) {
			return a.VibeMatch != nil
		}
		if a.VibeMatch != nil && *a.VibeMatch != *b.VibeMatch {
			return *a.VibeMatch > *b.VibeMatch
		}
		if a.GroupTrust != b.GroupTrust {
			return a.GroupTrust > b.GroupTrust
		}
		return a.Trip.ID < b.Trip.ID
	})
}
