package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultContestsURL lists every AtCoder contest, past and scheduled
const DefaultContestsURL = "https://kenkoooo.com/atcoder/resources/contests.json"

// Contest is one scheduled or finished contest
type Contest struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title"`
	Start    time.Time     `yaml:"start"`
	Duration time.Duration `yaml:"duration"`
	// RateChange is the rated range as listed, e.g. "All", " ~ 1999" or
	// "-" for unrated contests
	RateChange string `yaml:"rate_change"`
	URL        string `yaml:"url"`
}

// End is when the contest finishes
func (c Contest) End() time.Time { return c.Start.Add(c.Duration) }

// Rated reports whether the contest changes anyone's rating
func (c Contest) Rated() bool {
	switch strings.TrimSpace(c.RateChange) {
	case "", "-", "×":
		return false
	}
	return true
}

type contestEntry struct {
	ID               string `json:"id"`
	StartEpochSecond int64  `json:"start_epoch_second"`
	DurationSecond   int64  `json:"duration_second"`
	Title            string `json:"title"`
	RateChange       string `json:"rate_change"`
}

// ContestLister reads the contest list
type ContestLister struct {
	client  *retryablehttp.Client
	listURL string
	siteURL string
}

// NewContestLister creates a lister reading listURL and linking contests
// on siteURL. Empty arguments select DefaultContestsURL and DefaultBaseURL.
func NewContestLister(listURL, siteURL string) *ContestLister {
	if listURL == "" {
		listURL = DefaultContestsURL
	}
	if siteURL == "" {
		siteURL = DefaultBaseURL
	}
	return &ContestLister{
		client:  newClient(),
		listURL: listURL,
		siteURL: strings.TrimRight(siteURL, "/"),
	}
}

// FetchContests returns every listed contest ordered by start time
func (l *ContestLister) FetchContests(ctx context.Context) ([]Contest, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, l.listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contest list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch contest list: status %d: %s", resp.StatusCode, string(body))
	}

	var entries []contestEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode contest list: %w", err)
	}

	contests := make([]Contest, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		contests = append(contests, Contest{
			ID:         e.ID,
			Title:      e.Title,
			Start:      time.Unix(e.StartEpochSecond, 0).UTC(),
			Duration:   time.Duration(e.DurationSecond) * time.Second,
			RateChange: e.RateChange,
			URL:        l.siteURL + "/contests/" + e.ID,
		})
	}
	sort.SliceStable(contests, func(i, j int) bool {
		return contests[i].Start.Before(contests[j].Start)
	})
	return contests, nil
}
