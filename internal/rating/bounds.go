package rating

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTimeRange is returned when TimeEnd does not exceed TimeStart
	ErrEmptyTimeRange = errors.New("time range must be positive")
	// ErrEmptyRatingRange is returned when RatingMax does not exceed RatingMin
	ErrEmptyRatingRange = errors.New("rating range must be positive")
	// ErrEmptyPanel is returned when the margins leave no drawable area
	ErrEmptyPanel = errors.New("panel has no drawable area")
)

// Bounds is the domain window a chart displays. It is supplied by the
// caller and may be wider than the data it shows.
type Bounds struct {
	TimeStart int64 `koanf:"time_start"`
	TimeEnd   int64 `koanf:"time_end"`
	RatingMin int   `koanf:"rating_min"`
	RatingMax int   `koanf:"rating_max"`
}

// Validate rejects bounds that would divide by a zero range
func (b Bounds) Validate() error {
	if b.TimeEnd <= b.TimeStart {
		return fmt.Errorf("bounds [%d, %d]: %w", b.TimeStart, b.TimeEnd, ErrEmptyTimeRange)
	}
	if b.RatingMax <= b.RatingMin {
		return fmt.Errorf("bounds [%d, %d]: %w", b.RatingMin, b.RatingMax, ErrEmptyRatingRange)
	}
	return nil
}

// TimeRange returns TimeEnd - TimeStart
func (b Bounds) TimeRange() int64 { return b.TimeEnd - b.TimeStart }

// RatingRange returns RatingMax - RatingMin
func (b Bounds) RatingRange() int { return b.RatingMax - b.RatingMin }

// InLaterHalf reports whether ts sits at or after the middle of the time range
func (b Bounds) InLaterHalf(ts int64) bool {
	// Compare doubled values so odd ranges need no rounding.
	return 2*ts >= b.TimeStart+b.TimeEnd
}

// Margins are the fixed gaps between the canvas edge and the panel
type Margins struct {
	Left   int `koanf:"left"`
	Top    int `koanf:"top"`
	Right  int `koanf:"right"`
	Bottom int `koanf:"bottom"`
}

// Geometry is the panel rectangle in canvas pixels
type Geometry struct {
	OriginX float64
	OriginY float64
	Width   float64
	Height  float64
}

// GeometryFor derives the panel from a canvas size and its margins
func GeometryFor(canvasWidth, canvasHeight int, m Margins) (Geometry, error) {
	w := canvasWidth - m.Left - m.Right
	h := canvasHeight - m.Top - m.Bottom
	if w <= 0 || h <= 0 {
		return Geometry{}, fmt.Errorf("canvas %dx%d with margins %+v: %w", canvasWidth, canvasHeight, m, ErrEmptyPanel)
	}
	return Geometry{
		OriginX: float64(m.Left),
		OriginY: float64(m.Top),
		Width:   float64(w),
		Height:  float64(h),
	}, nil
}
