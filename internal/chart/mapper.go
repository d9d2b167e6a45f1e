package chart

import (
	"fmt"

	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"github.com/fogleman/gg"
)

// Mapper converts domain units (Unix seconds, rating) into panel-local pixels.
// Panel-local means (0, 0) is the panel's top-left corner; the panel origin
// on the canvas is applied by the scene offset, not here.
//
// Positions go through ToPixel; widths, heights and deltas go through
// ToPixelExtent. Feeding an extent to ToPixel shifts it by the domain origin.
type Mapper struct {
	point  gg.Matrix
	extent gg.Matrix
}

// NewMapper builds the point and extent transforms for bounds drawn into a
// panel of the given geometry
func NewMapper(bounds rating.Bounds, geometry rating.Geometry) (*Mapper, error) {
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build coordinate mapper: %w", err)
	}
	if geometry.Width <= 0 || geometry.Height <= 0 {
		return nil, fmt.Errorf("failed to build coordinate mapper: %w", rating.ErrEmptyPanel)
	}

	sx := geometry.Width / float64(bounds.TimeRange())
	sy := geometry.Height / float64(bounds.RatingRange())

	// Scale, then flip Y so higher ratings sit higher on screen.
	extent := gg.Scale(sx, -sy)

	// Multiply applies the receiver first: move the domain origin to zero,
	// scale and flip, then drop the origin onto the panel's bottom edge.
	point := gg.Translate(-float64(bounds.TimeStart), -float64(bounds.RatingMin)).
		Multiply(extent).
		Multiply(gg.Translate(0, geometry.Height))

	return &Mapper{point: point, extent: extent}, nil
}

// ToPixel maps an absolute (time, rating) position
func (m *Mapper) ToPixel(t int64, r int) (x, y float64) {
	return m.point.TransformPoint(float64(t), float64(r))
}

// ToPixelExtent maps a (duration, rating span) extent without translation
func (m *Mapper) ToPixelExtent(dt int64, dr int) (dx, dy float64) {
	return m.extent.TransformVector(float64(dt), float64(dr))
}
