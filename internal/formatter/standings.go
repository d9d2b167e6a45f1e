package formatter

import (
	"sort"

	"github.com/christophergentle/ratingchart-bsky/internal/history"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
)

// Standing is a user's position in a snapshot of the tracked users
type Standing struct {
	User     string
	Rating   int
	Rank     int
	Contests int
}

// Standings ranks users by their latest rating
func Standings(histories []history.UserHistory) []Standing {
	return rank(histories, func(rating.Point) bool { return true })
}

// StandingsAt ranks users as they stood before the contest ending at
// before. Users without a rated contest by then are left out.
func StandingsAt(histories []history.UserHistory, before int64) []Standing {
	return rank(histories, func(p rating.Point) bool { return p.Timestamp < before })
}

// rank orders by rating descending then name. Equal ratings share a rank.
func rank(histories []history.UserHistory, keep func(rating.Point) bool) []Standing {
	var standings []Standing
	for _, h := range histories {
		s := Standing{User: h.User}
		for _, p := range h.Points {
			if !keep(p) {
				continue
			}
			s.Rating = p.Rating
			s.Contests++
		}
		if s.Contests > 0 {
			standings = append(standings, s)
		}
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Rating != standings[j].Rating {
			return standings[i].Rating > standings[j].Rating
		}
		return standings[i].User < standings[j].User
	})
	for i := range standings {
		if i > 0 && standings[i].Rating == standings[i-1].Rating {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
	}
	return standings
}

// LatestContest returns the most recent point across all histories
func LatestContest(histories []history.UserHistory) (rating.Point, bool) {
	var latest rating.Point
	found := false
	for _, h := range histories {
		if p, ok := rating.Latest(h.Points); ok && (!found || p.Timestamp > latest.Timestamp) {
			latest = p
			found = true
		}
	}
	return latest, found
}

// Change compares a user's current standing with the previous one
type Change struct {
	User       string `json:"user"`
	Rating     int    `json:"rating"`
	RatingDiff int    `json:"rating_diff"`
	Rank       int    `json:"rank"`
	RankDiff   int    `json:"rank_diff"`
	IsNew      bool   `json:"is_new"`
}

// RatingChanges pairs current standings with previous ones. RatingDiff is
// current minus previous rating; RankDiff is previous minus current rank,
// so climbing is positive. Users absent before are new with zero diffs.
func RatingChanges(prev, curr []Standing) []Change {
	before := make(map[string]Standing, len(prev))
	for _, s := range prev {
		before[s.User] = s
	}

	changes := make([]Change, 0, len(curr))
	for _, s := range curr {
		c := Change{User: s.User, Rating: s.Rating, Rank: s.Rank}
		if p, ok := before[s.User]; ok {
			c.RatingDiff = s.Rating - p.Rating
			c.RankDiff = p.Rank - s.Rank
		} else {
			c.IsNew = true
		}
		changes = append(changes, c)
	}
	return changes
}

// LatestChanges compares every user's standing now with their standing
// before the most recent contest
func LatestChanges(histories []history.UserHistory) (rating.Point, []Change, bool) {
	contest, ok := LatestContest(histories)
	if !ok {
		return rating.Point{}, nil, false
	}
	prev := StandingsAt(histories, contest.Timestamp)
	return contest, RatingChanges(prev, Standings(histories)), true
}
