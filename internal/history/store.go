package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/christophergentle/ratingchart-bsky/internal/rating"
)

// ErrUserNotFound is returned when a store has no history for a user
var ErrUserNotFound = errors.New("user not found")

// Store persists one rating history per user
type Store interface {
	GetHistory(ctx context.Context, user string) ([]rating.Point, error)
	// PutHistory replaces the user's whole history
	PutHistory(ctx context.Context, user string, points []rating.Point) error
	ListUsers(ctx context.Context) ([]string, error)
}

// UserHistory is a user's rating history as stored in snapshot files
type UserHistory struct {
	User   string         `json:"user" yaml:"user"`
	Points []rating.Point `json:"history" yaml:"history"`
}

// LoadAll reads the histories of users in order. With no users given it
// reads every user the store knows, sorted by name. A named user the store
// has nothing for, such as one with no rated contests yet, gets an empty
// history.
func LoadAll(ctx context.Context, store Store, users []string) ([]UserHistory, error) {
	if len(users) == 0 {
		all, err := store.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		sort.Strings(all)
		users = all
	}

	histories := make([]UserHistory, 0, len(users))
	for _, user := range users {
		points, err := store.GetHistory(ctx, user)
		if errors.Is(err, ErrUserNotFound) {
			log.Printf("No stored history for %s", user)
			points = nil
			err = nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load history for %s: %w", user, err)
		}
		histories = append(histories, UserHistory{User: user, Points: points})
	}
	return histories, nil
}

// Merge combines a stored history with freshly fetched points. Points are
// keyed by timestamp; fresh points replace stored ones at the same time.
// The result is sorted ascending.
func Merge(stored, fresh []rating.Point) []rating.Point {
	byTime := make(map[int64]rating.Point, len(stored)+len(fresh))
	for _, p := range stored {
		byTime[p.Timestamp] = p
	}
	for _, p := range fresh {
		byTime[p.Timestamp] = p
	}

	merged := make([]rating.Point, 0, len(byTime))
	for _, p := range byTime {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}

// sortPoints orders points by timestamp without disturbing equal keys
func sortPoints(points []rating.Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
}
