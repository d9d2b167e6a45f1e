package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/christophergentle/ratingchart-bsky/internal/history"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the AtCoder site
const DefaultBaseURL = "https://atcoder.jp"

// contestResult is one entry of /users/<user>/history/json
type contestResult struct {
	IsRated           bool   `json:"IsRated"`
	Place             int    `json:"Place"`
	OldRating         int    `json:"OldRating"`
	NewRating         int    `json:"NewRating"`
	ContestScreenName string `json:"ContestScreenName"`
	ContestName       string `json:"ContestName"`
	EndTime           string `json:"EndTime"`
}

// Fetcher reads rating histories from AtCoder
type Fetcher struct {
	client  *retryablehttp.Client
	baseURL string
}

// NewFetcher creates a fetcher against baseURL, DefaultBaseURL when empty
func NewFetcher(baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		client:  newClient(),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func newClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil
	return client
}

// FetchHistory returns a user's rated contests, oldest first. Unrated
// participations are skipped.
func (f *Fetcher) FetchHistory(ctx context.Context, user string) ([]rating.Point, error) {
	endpoint := fmt.Sprintf("%s/users/%s/history/json", f.baseURL, url.PathEscape(user))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", user, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", user, history.ErrUserNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch history for %s: status %d: %s", user, resp.StatusCode, string(body))
	}

	var results []contestResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode history for %s: %w", user, err)
	}

	points := make([]rating.Point, 0, len(results))
	for _, r := range results {
		if !r.IsRated {
			continue
		}
		end, err := time.Parse(time.RFC3339, r.EndTime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse end time %q for %s: %w", r.EndTime, user, err)
		}
		points = append(points, rating.Point{
			Timestamp:    end.Unix(),
			Rating:       r.NewRating,
			Rank:         r.Place,
			ContestLabel: r.ContestName,
			ReferenceURL: f.standingsURL(r.ContestScreenName, user),
		})
	}
	return history.Merge(nil, points), nil
}

// standingsURL links a contest's standings filtered to user. Screen names
// look like "abc100.contest.atcoder.jp"; the first label is the contest id.
func (f *Fetcher) standingsURL(screenName, user string) string {
	id, _, _ := strings.Cut(screenName, ".")
	if id == "" {
		return ""
	}
	return fmt.Sprintf("%s/contests/%s/standings?watching=%s", f.baseURL, id, url.QueryEscape(user))
}

// HistoryFetcher fetches one user's history from a remote source
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, user string) ([]rating.Point, error)
}

// RefreshResult reports a Refresh run
type RefreshResult struct {
	Updated   []string
	Unchanged []string
	Failed    map[string]error
}

// Refresh fetches every user's history, merges it with what store holds
// and writes back the users whose history gained or changed points. A
// failed fetch is recorded and the other users still refresh.
func Refresh(ctx context.Context, store history.Store, fetcher HistoryFetcher, users []string) (*RefreshResult, error) {
	result := &RefreshResult{Failed: make(map[string]error)}

	for _, user := range users {
		fresh, err := fetcher.FetchHistory(ctx, user)
		if err != nil {
			log.Printf("Failed to fetch history for %s: %v", user, err)
			result.Failed[user] = err
			continue
		}

		stored, err := store.GetHistory(ctx, user)
		if err != nil && !errors.Is(err, history.ErrUserNotFound) {
			return result, fmt.Errorf("failed to read stored history for %s: %w", user, err)
		}

		merged := history.Merge(stored, fresh)
		if equalPoints(stored, merged) {
			result.Unchanged = append(result.Unchanged, user)
			continue
		}
		if err := store.PutHistory(ctx, user, merged); err != nil {
			return result, fmt.Errorf("failed to store history for %s: %w", user, err)
		}
		log.Printf("Updated history for %s: %d -> %d points", user, len(stored), len(merged))
		result.Updated = append(result.Updated, user)
	}

	if len(result.Failed) == len(users) && len(users) > 0 {
		return result, fmt.Errorf("failed to fetch history for all %d users", len(users))
	}
	return result, nil
}

func equalPoints(a, b []rating.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
