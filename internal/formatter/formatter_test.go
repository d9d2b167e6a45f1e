package formatter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/christophergentle/ratingchart-bsky/internal/history"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHistories = []history.UserHistory{
	{User: "tourist", Points: []rating.Point{
		{Timestamp: 100, Rating: 837},
		{Timestamp: 200, Rating: 852},
		{Timestamp: 300, Rating: 833, ContestLabel: "Round 3"},
	}},
	{User: "alice", Points: []rating.Point{
		{Timestamp: 100, Rating: 700},
		{Timestamp: 300, Rating: 900, ContestLabel: "Round 3"},
	}},
	{User: "bob", Points: []rating.Point{
		{Timestamp: 200, Rating: 852},
	}},
	{User: "carol", Points: []rating.Point{
		{Timestamp: 300, Rating: 400, ContestLabel: "Round 3"},
	}},
}

func TestStandings(t *testing.T) {
	got := Standings(testHistories)

	require.Len(t, got, 4)
	assert.Equal(t, Standing{User: "alice", Rating: 900, Rank: 1, Contests: 2}, got[0])
	assert.Equal(t, Standing{User: "bob", Rating: 852, Rank: 2, Contests: 1}, got[1])
	assert.Equal(t, Standing{User: "tourist", Rating: 833, Rank: 3, Contests: 3}, got[2])
	assert.Equal(t, Standing{User: "carol", Rating: 400, Rank: 4, Contests: 1}, got[3])
}

func TestStandingsAtSharesTiedRanks(t *testing.T) {
	got := StandingsAt(testHistories, 300)

	require.Len(t, got, 3, "carol has no contest before 300")
	assert.Equal(t, "bob", got[0].User)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "tourist", got[1].User)
	assert.Equal(t, 1, got[1].Rank)
	assert.Equal(t, "alice", got[2].User)
	assert.Equal(t, 3, got[2].Rank)
}

func TestRatingChanges(t *testing.T) {
	contest, changes, ok := LatestChanges(testHistories)
	require.True(t, ok)
	assert.Equal(t, "Round 3", contest.ContestLabel)

	require.Len(t, changes, 4)
	assert.Equal(t, Change{User: "alice", Rating: 900, RatingDiff: 200, Rank: 1, RankDiff: 2}, changes[0])
	assert.Equal(t, Change{User: "bob", Rating: 852, RatingDiff: 0, Rank: 2, RankDiff: -1}, changes[1])
	assert.Equal(t, Change{User: "tourist", Rating: 833, RatingDiff: -19, Rank: 3, RankDiff: -2}, changes[2])
	assert.Equal(t, Change{User: "carol", Rating: 400, Rank: 4, IsNew: true}, changes[3])
}

func TestLatestChangesEmpty(t *testing.T) {
	_, _, ok := LatestChanges(nil)
	assert.False(t, ok)

	_, ok = LatestContest([]history.UserHistory{{User: "nobody"}})
	assert.False(t, ok)
}

func TestFormatRatingUpdate(t *testing.T) {
	_, changes, _ := LatestChanges(testHistories)

	got := FormatRatingUpdate("Round 3", changes, 300)

	want := "📈 Rating update: Round 3\n\n" +
		"1. alice 900 (+200) ↑2\n" +
		"2. bob 852 (±0) ↓1\n" +
		"3. tourist 833 (-19) ↓2\n" +
		"4. carol 400 (new)"
	assert.Equal(t, want, got)
}

func TestFormatRatingUpdateTrimsLines(t *testing.T) {
	var changes []Change
	for i := 0; i < 40; i++ {
		changes = append(changes, Change{User: strings.Repeat("x", 10), Rating: 1000, Rank: i + 1, RatingDiff: 5})
	}

	got := FormatRatingUpdate("Round 3", changes, 300)

	assert.LessOrEqual(t, utf8.RuneCountInString(got), 300)
	assert.True(t, strings.HasPrefix(got, "📈 Rating update: Round 3\n\n1. "))
	assert.Regexp(t, `…and \d+ more$`, got)
}

func TestFormatRatingUpdateShortensLongContestName(t *testing.T) {
	_, changes, _ := LatestChanges(testHistories)
	name := strings.Repeat("x", 400)

	got := FormatRatingUpdate(name, changes, 300)

	assert.Equal(t, 300, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "\n\n…and 4 more"))
	assert.Equal(t, strings.Repeat("x", 269)+"…", PostedContestName(got))
}

func TestPostedContestName(t *testing.T) {
	assert.Equal(t, "Round 3", PostedContestName("📈 Rating update: Round 3\n\n1. alice 900 (new)"))
	assert.Equal(t, "", PostedContestName("📈 Rating update\n\n1. alice 900 (new)"))
}

func TestFormatRatingUpdateNoLimit(t *testing.T) {
	got := FormatRatingUpdate("", []Change{{User: "tourist", Rating: 3500, Rank: 1, IsNew: true}}, 0)
	assert.Equal(t, "📈 Rating update\n\n1. tourist 3500 (new)", got)
}

func TestFormatDiff(t *testing.T) {
	assert.Equal(t, "+12", FormatDiff(12))
	assert.Equal(t, "-5", FormatDiff(-5))
	assert.Equal(t, "±0", FormatDiff(0))
}

func TestAltText(t *testing.T) {
	_, changes, _ := LatestChanges(testHistories)

	assert.Equal(t,
		"Rating history chart (all, recent) for 4 users: alice 900, bob 852, tourist 833, carol 400.",
		AltText([]string{"all", "recent"}, changes))
	assert.Equal(t, "Rating history chart for 1 user: alice 900.", AltText(nil, changes[:1]))
	assert.Equal(t, "Rating history chart (all) with no rated users.", AltText([]string{"all"}, nil))
}
