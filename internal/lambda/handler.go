package lambda

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/christophergentle/ratingchart-bsky/internal/client"
	"github.com/christophergentle/ratingchart-bsky/internal/config"
	"github.com/christophergentle/ratingchart-bsky/internal/formatter"
	"github.com/christophergentle/ratingchart-bsky/internal/history"
	"github.com/christophergentle/ratingchart-bsky/internal/metrics"
	"github.com/christophergentle/ratingchart-bsky/internal/pipeline"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"github.com/christophergentle/ratingchart-bsky/internal/source"
)

// Publisher posts the rendered chart
type Publisher interface {
	Authenticate() error
	PostWithImages(ctx context.Context, text string, facets []*bsky.RichtextFacet, images ...client.Image) error
}

// PostResult represents the result of a chart post
type PostResult struct {
	Users        int      `json:"users"`
	Views        []string `json:"views"`
	ContestName  string   `json:"contest_name,omitempty"`
	Text         string   `json:"text"`
	ImageBytes   int      `json:"image_bytes"`
	Posted       bool     `json:"posted"`
	SkipReason   string   `json:"skip_reason,omitempty"`
	Success      bool     `json:"success"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// RatingChartPoster renders every view of the tracked users' histories
// and posts the stacked chart with a rating update summary
type RatingChartPoster struct {
	config    *config.Config
	store     history.Store
	publisher Publisher
	fetcher   source.HistoryFetcher
	renderer  *pipeline.Renderer
	metrics   *metrics.Manager

	// mu serializes runs; lastPosted is the end time of the contest last
	// posted by this poster
	mu         sync.Mutex
	lastPosted int64
}

// NewRatingChartPoster creates a poster posting to Bluesky with cfg's
// credentials
func NewRatingChartPoster(cfg *config.Config, store history.Store, m *metrics.Manager) *RatingChartPoster {
	p := NewRatingChartPosterWithPublisher(cfg, store, client.New(cfg.Bluesky.Handle, cfg.Bluesky.Password), m)
	if cfg.FetchURL != "" {
		p.fetcher = source.NewFetcher(cfg.FetchURL)
	}
	return p
}

// NewRatingChartPosterWithPublisher creates a poster over any publisher.
// m may be nil.
func NewRatingChartPosterWithPublisher(cfg *config.Config, store history.Store, publisher Publisher, m *metrics.Manager) *RatingChartPoster {
	return &RatingChartPoster{
		config:    cfg,
		store:     store,
		publisher: publisher,
		renderer:  pipeline.NewRenderer(cfg, m),
		metrics:   m,
	}
}

// WithFetcher refreshes histories from fetcher before every run
func (p *RatingChartPoster) WithFetcher(fetcher source.HistoryFetcher) *RatingChartPoster {
	p.fetcher = fetcher
	return p
}

// Renderer returns the renderer used for every view
func (p *RatingChartPoster) Renderer() *pipeline.Renderer {
	return p.renderer
}

// Run executes the complete render and post process. Nothing is posted
// when a refresh brought no new results or when the latest contest is the
// one this poster already posted.
func (p *RatingChartPoster) Run(ctx context.Context) (*PostResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	log.Println("Starting rating chart run...")

	refreshedNothing := false
	if p.fetcher != nil && len(p.config.Users) > 0 {
		refreshed, err := source.Refresh(ctx, p.store, p.fetcher, p.config.Users)
		if err != nil {
			p.recordError("load")
			return p.fail("failed to refresh histories", err)
		}
		log.Printf("Refreshed histories: %d updated, %d unchanged, %d failed",
			len(refreshed.Updated), len(refreshed.Unchanged), len(refreshed.Failed))
		refreshedNothing = len(refreshed.Updated) == 0
	}

	histories, err := history.LoadAll(ctx, p.store, p.config.Users)
	if err != nil {
		p.recordError("load")
		return p.fail("failed to load histories", err)
	}
	log.Printf("Loaded histories for %d users", len(histories))

	latest, _ := formatter.LatestContest(histories)
	switch {
	case refreshedNothing:
		return p.skip(len(histories), latest, "no new contest results")
	case p.lastPosted != 0 && latest.Timestamp == p.lastPosted:
		return p.skip(len(histories), latest, "latest contest already posted")
	}

	image, views, err := p.renderer.RenderPNG(nil, histories)
	if err != nil {
		return p.fail("failed to render chart", err)
	}

	contest, changes, _ := formatter.LatestChanges(histories)
	text := formatter.FormatRatingUpdate(contest.ContestLabel, changes, client.MaxPostLength)
	alt := formatter.AltText(views, changes)

	result := &PostResult{
		Users:       len(histories),
		Views:       views,
		ContestName: contest.ContestLabel,
		Text:        text,
		ImageBytes:  len(image),
	}

	if p.config.DryRun {
		log.Printf("Dry run mode: Skipping post to Bluesky\n%s", text)
		p.recordPost("dry_run")
		p.lastPosted = contest.Timestamp
		result.Success = true
		return result, nil
	}

	if err := p.publisher.Authenticate(); err != nil {
		p.recordPost("failed")
		return p.fail("failed to authenticate with Bluesky", err)
	}
	log.Println("Successfully authenticated with Bluesky")

	facets := client.CreateLinkFacets(text, []client.Link{
		{Text: formatter.PostedContestName(text), URL: contest.ReferenceURL},
	})
	if err := p.publisher.PostWithImages(ctx, text, facets, client.Image{Data: image, Alt: alt}); err != nil {
		p.recordPost("failed")
		return p.fail("failed to post chart", err)
	}

	log.Printf("Successfully posted rating chart for %d users", len(histories))
	p.recordPost("posted")
	p.lastPosted = contest.Timestamp
	result.Posted = true
	result.Success = true
	return result, nil
}

func (p *RatingChartPoster) skip(users int, latest rating.Point, reason string) (*PostResult, error) {
	log.Printf("Skipping post: %s", reason)
	p.recordPost("skipped")
	return &PostResult{
		Users:       users,
		ContestName: latest.ContestLabel,
		SkipReason:  reason,
		Success:     true,
	}, nil
}

func (p *RatingChartPoster) fail(message string, err error) (*PostResult, error) {
	return &PostResult{
		Success:      false,
		ErrorMessage: message + ": " + err.Error(),
	}, fmt.Errorf("%s: %w", message, err)
}

func (p *RatingChartPoster) recordError(stage string) {
	if p.metrics != nil {
		p.metrics.RecordError(stage)
	}
}

func (p *RatingChartPoster) recordPost(status string) {
	if p.metrics != nil {
		p.metrics.RecordPost(status)
	}
}
