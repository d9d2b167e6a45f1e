package rating

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHistory is returned when a rating history has no points
	ErrEmptyHistory = errors.New("rating history is empty")
	// ErrNonMonotonic is returned when timestamps go backwards
	ErrNonMonotonic = errors.New("rating history timestamps are not ascending")
	// ErrNegativeRating is returned for ratings below zero
	ErrNegativeRating = errors.New("rating must not be negative")
)

// Point is a single contest result in a rating history
type Point struct {
	Timestamp    int64  `json:"EndTime" yaml:"EndTime" dynamodbav:"endTime"`
	Rating       int    `json:"NewRating" yaml:"NewRating" dynamodbav:"newRating"`
	Rank         int    `json:"Place" yaml:"Place" dynamodbav:"place"`
	ContestLabel string `json:"ContestName" yaml:"ContestName" dynamodbav:"contestName"`
	ReferenceURL string `json:"StandingsUrl" yaml:"StandingsUrl" dynamodbav:"standingsUrl"`
}

// ValidateHistory checks that points is a usable rating history: non-empty,
// ascending by timestamp and free of negative ratings.
func ValidateHistory(points []Point) error {
	if len(points) == 0 {
		return ErrEmptyHistory
	}
	for i, p := range points {
		if p.Rating < 0 {
			return fmt.Errorf("point %d (%s): %w", i, p.ContestLabel, ErrNegativeRating)
		}
		if i > 0 && p.Timestamp < points[i-1].Timestamp {
			return fmt.Errorf("point %d (%s) at %d precedes %d: %w",
				i, p.ContestLabel, p.Timestamp, points[i-1].Timestamp, ErrNonMonotonic)
		}
	}
	return nil
}

// Latest returns the most recent point of a validated history
func Latest(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	return points[len(points)-1], true
}
