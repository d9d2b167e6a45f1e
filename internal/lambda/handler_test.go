package lambda

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/christophergentle/ratingchart-bsky/internal/client"
	"github.com/christophergentle/ratingchart-bsky/internal/history"
	"github.com/christophergentle/ratingchart-bsky/internal/metrics"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	authErr error
	postErr error
	text    string
	facets  []*bsky.RichtextFacet
	images  []client.Image
	posts   int
}

func (f *fakePublisher) Authenticate() error { return f.authErr }

func (f *fakePublisher) PostWithImages(_ context.Context, text string, facets []*bsky.RichtextFacet, images ...client.Image) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.posts++
	f.text = text
	f.facets = facets
	f.images = images
	return nil
}

func newTestStore(t *testing.T) history.Store {
	t.Helper()
	ctx := context.Background()
	store, err := history.NewFileStore(filepath.Join(t.TempDir(), "history.yaml"))
	require.NoError(t, err)
	require.NoError(t, store.PutHistory(ctx, "tourist", []rating.Point{
		{Timestamp: 1509802800, Rating: 837, ContestLabel: "ARC 084"},
		{Timestamp: 1527342000, Rating: 833, ContestLabel: "ARC 098", ReferenceURL: "https://atcoder.jp/contests/arc098/standings"},
	}))
	require.NoError(t, store.PutHistory(ctx, "alice", []rating.Point{
		{Timestamp: 1527342000, Rating: 900, ContestLabel: "ARC 098", ReferenceURL: "https://atcoder.jp/contests/arc098/standings"},
	}))
	return store
}

func TestRunPostsChart(t *testing.T) {
	cfg := baseConfig()
	pub := &fakePublisher{}
	m := metrics.NewManager()
	poster := NewRatingChartPosterWithPublisher(cfg, newTestStore(t), pub, m)

	result, err := poster.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.Posted)
	assert.Equal(t, 2, result.Users)
	assert.Equal(t, []string{"all", "recent"}, result.Views)
	assert.Equal(t, "ARC 098", result.ContestName)

	require.Equal(t, 1, pub.posts)
	assert.True(t, strings.HasPrefix(pub.text, "📈 Rating update: ARC 098\n\n1. alice 900 (new)"))
	require.Len(t, pub.images, 1)
	assert.Equal(t, result.ImageBytes, len(pub.images[0].Data))
	assert.Equal(t, "Rating history chart (all, recent) for 2 users: alice 900, tourist 833.", pub.images[0].Alt)
	require.Len(t, pub.facets, 1)
	assert.Equal(t, "https://atcoder.jp/contests/arc098/standings", pub.facets[0].Features[0].RichtextFacet_Link.Uri)

	count, err := testutil.GatherAndCount(m.Registry(), "ratingchart_posts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunDryRun(t *testing.T) {
	cfg := baseConfig()
	cfg.DryRun = true
	pub := &fakePublisher{authErr: errors.New("must not be called")}

	result, err := NewRatingChartPosterWithPublisher(cfg, newTestStore(t), pub, nil).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Posted)
	assert.NotEmpty(t, result.Text)
	assert.Equal(t, 0, pub.posts)
}

func TestRunFailures(t *testing.T) {
	ctx := context.Background()

	cfg := baseConfig()
	cfg.Users = []string{"nobody"}
	result, err := NewRatingChartPosterWithPublisher(cfg, newTestStore(t), &fakePublisher{}, nil).Run(ctx)
	assert.ErrorIs(t, err, rating.ErrEmptyHistory)
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "failed to render chart")

	boom := errors.New("invalid app password")
	result, err = NewRatingChartPosterWithPublisher(baseConfig(), newTestStore(t), &fakePublisher{authErr: boom}, nil).Run(ctx)
	assert.ErrorIs(t, err, boom)
	assert.False(t, result.Posted)

	result, err = NewRatingChartPosterWithPublisher(baseConfig(), newTestStore(t), &fakePublisher{postErr: boom}, nil).Run(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, result.ErrorMessage, "failed to post chart")
}

type stubFetcher map[string][]rating.Point

func (s stubFetcher) FetchHistory(_ context.Context, user string) ([]rating.Point, error) {
	return s[user], nil
}

func TestRunRefreshesFirst(t *testing.T) {
	cfg := baseConfig()
	cfg.Users = []string{"tourist", "alice"}
	pub := &fakePublisher{}
	store := newTestStore(t)

	poster := NewRatingChartPosterWithPublisher(cfg, store, pub, nil).WithFetcher(stubFetcher{
		"tourist": {{Timestamp: 1528638000, Rating: 950, ContestLabel: "ABC 099"}},
		"alice":   {},
	})
	result, err := poster.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ABC 099", result.ContestName)

	points, err := store.GetHistory(context.Background(), "tourist")
	require.NoError(t, err)
	assert.Len(t, points, 3)
	assert.Contains(t, pub.text, "1. tourist 950 (+117) ↑1")
}

func TestRunPostsOncePerContest(t *testing.T) {
	ctx := context.Background()
	cfg := baseConfig()
	cfg.Users = []string{"tourist", "alice"}
	pub := &fakePublisher{}
	m := metrics.NewManager()

	poster := NewRatingChartPosterWithPublisher(cfg, newTestStore(t), pub, m).WithFetcher(stubFetcher{
		"tourist": {{Timestamp: 1528638000, Rating: 950, ContestLabel: "ABC 099"}},
		"alice":   {},
	})

	first, err := poster.Run(ctx)
	require.NoError(t, err)
	assert.True(t, first.Posted)

	second, err := poster.Run(ctx)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.False(t, second.Posted)
	assert.Equal(t, "no new contest results", second.SkipReason)
	assert.Equal(t, "ABC 099", second.ContestName)
	assert.Equal(t, 1, pub.posts)

	assert.Equal(t, 1.0, postsWithStatus(t, m, "skipped"))
	assert.Equal(t, 1.0, postsWithStatus(t, m, "posted"))
}

func TestRunWithoutFetcherPostsOncePerContest(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	store := newTestStore(t)
	poster := NewRatingChartPosterWithPublisher(baseConfig(), store, pub, nil)

	_, err := poster.Run(ctx)
	require.NoError(t, err)
	result, err := poster.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "latest contest already posted", result.SkipReason)
	assert.Equal(t, 1, pub.posts)

	require.NoError(t, store.PutHistory(ctx, "alice", []rating.Point{
		{Timestamp: 1527342000, Rating: 900, ContestLabel: "ARC 098"},
		{Timestamp: 1528638000, Rating: 1010, ContestLabel: "ABC 099"},
	}))
	result, err = poster.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.Posted)
	assert.Equal(t, 2, pub.posts)
}

func TestRunSkipsUserWithoutRatedContests(t *testing.T) {
	cfg := baseConfig()
	cfg.Users = []string{"tourist", "alice", "newcomer"}
	pub := &fakePublisher{}

	poster := NewRatingChartPosterWithPublisher(cfg, newTestStore(t), pub, nil).WithFetcher(stubFetcher{
		"tourist":  {{Timestamp: 1528638000, Rating: 950, ContestLabel: "ABC 099"}},
		"alice":    {},
		"newcomer": {},
	})
	result, err := poster.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Posted)
	assert.Equal(t, 3, result.Users)
	assert.NotContains(t, pub.text, "newcomer")
}

func TestRunLinksShortenedContestName(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	long := strings.Repeat("Long Contest Name ", 30)
	require.NoError(t, store.PutHistory(ctx, "alice", []rating.Point{
		{Timestamp: 1527342000, Rating: 900, ContestLabel: "ARC 098"},
		{Timestamp: 1528638000, Rating: 1010, ContestLabel: long, ReferenceURL: "https://atcoder.jp/contests/long/standings"},
	}))
	pub := &fakePublisher{}

	_, err := NewRatingChartPosterWithPublisher(baseConfig(), store, pub, nil).Run(ctx)
	require.NoError(t, err)

	assert.LessOrEqual(t, utf8.RuneCountInString(pub.text), client.MaxPostLength)
	require.Len(t, pub.facets, 1)
	assert.LessOrEqual(t, pub.facets[0].Index.ByteEnd, int64(len(pub.text)))
	assert.True(t, strings.HasSuffix(pub.text[:pub.facets[0].Index.ByteEnd], "…"))
}

// postsWithStatus reads ratingchart_posts_total{status=...} from m
func postsWithStatus(t *testing.T, m *metrics.Manager, status string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "ratingchart_posts_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == status {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

var _ Publisher = (*client.BlueskyClient)(nil)
