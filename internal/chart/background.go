package chart

import (
	"strconv"

	"github.com/christophergentle/ratingchart-bsky/internal/rating"
)

// BuildBackground lays out the static part of the chart: the panel frame,
// one clipped translucent band, gridline and label per tier, and a vertical
// gridline with month (and year) labels per tick. The returned scene is
// offset to the panel origin.
func BuildBackground(m *Mapper, geometry rating.Geometry, bounds rating.Bounds, tiers []rating.Tier, ticks []Tick, cal Calendar, style Style) *Scene {
	bg := NewScene("background", geometry.OriginX, geometry.OriginY)

	Attach(&Rect{
		W:      geometry.Width,
		H:      geometry.Height,
		Radius: style.FrameRadius,
		Paint:  Paint{Stroke: style.FrameColor, StrokeWidth: style.FrameWidth},
	}, bg)

	panel := &Rect{W: geometry.Width, H: geometry.Height}
	for _, tier := range tiers {
		x, y := m.ToPixel(bounds.TimeStart, tier.LowerBound)
		dx, dy := m.ToPixelExtent(bounds.TimeRange(), rating.TierStep)

		// Bands for tiers near the range edges overhang the panel.
		band := Attach(&Scene{Name: "band-" + strconv.Itoa(tier.LowerBound), Clip: panel}, bg)
		r := Attach(RectFromExtent(x, y, dx, dy), band)
		r.Paint = Paint{Fill: withAlpha(tier.Color, style.BandAlpha)}

		x2, y2 := m.ToPixel(bounds.TimeEnd, tier.LowerBound)
		Attach(&Polyline{
			Points: []Vec{{x, y}, {x2, y2}},
			Paint:  Paint{Stroke: style.GridColor, StrokeWidth: style.GridWidth},
		}, bg)

		if tier.LowerBound != 0 {
			Attach(&Text{
				X:        x - style.RatingLabelGap,
				Y:        y,
				Content:  strconv.Itoa(tier.LowerBound),
				Align:    AlignRight,
				Baseline: BaselineMiddle,
				Color:    style.TextColor,
				FontSize: style.FontSize,
			}, bg)
		}
	}

	for _, tick := range ticks {
		x, y := m.ToPixel(tick.Timestamp, bounds.RatingMin)
		Attach(&Text{
			X:        x,
			Y:        y + style.MonthLabelGap,
			Content:  cal.Format(tick.Timestamp, MonthToken),
			Align:    AlignCenter,
			Baseline: BaselineTop,
			Color:    style.TextColor,
			FontSize: style.FontSize,
		}, bg)

		if tick.IsYearBoundary {
			Attach(&Text{
				X:        x,
				Y:        y + style.YearLabelGap,
				Content:  cal.Format(tick.Timestamp, YearToken),
				Align:    AlignCenter,
				Baseline: BaselineTop,
				Color:    style.TextColor,
				FontSize: style.FontSize,
			}, bg)
		}

		xTop, yTop := m.ToPixel(tick.Timestamp, bounds.RatingMax)
		Attach(&Polyline{
			Points: []Vec{{x, y}, {xTop, yTop}},
			Paint:  Paint{Stroke: style.GridColor, StrokeWidth: style.GridWidth},
		}, bg)
	}

	return bg
}
