package chart

import (
	"fmt"
	"unicode/utf8"

	"github.com/christophergentle/ratingchart-bsky/internal/rating"
)

// Series is one entity's history and the label shown in its callout
type Series struct {
	Label  string
	Points []rating.Point
}

// Callout is the label placement computed for the latest point
type Callout struct {
	Anchor Vec
	Frame  *Rect
	Text   *Text
	// Left reports that the label sits left of the point
	Left bool
}

// CalloutWidth returns the frame width for a label under the fixed
// per-character heuristic
func CalloutWidth(label string, style Style) float64 {
	return float64(utf8.RuneCountInString(label))*CharWidth + style.CalloutPadding
}

// RenderSeries draws one history into a fresh scene: a soft outlined
// polyline, a tier-colored marker per point and a callout for the last point
func RenderSeries(m *Mapper, bounds rating.Bounds, s Series, style Style) (*Scene, error) {
	scene := NewScene("series", 0, 0)
	if _, err := AddSeries(scene, m, bounds, s, style); err != nil {
		return nil, err
	}
	return scene, nil
}

// AddSeries draws s into parent and returns the placed callout
func AddSeries(parent *Scene, m *Mapper, bounds rating.Bounds, s Series, style Style) (*Callout, error) {
	if len(s.Points) == 0 {
		return nil, fmt.Errorf("series %q: %w", s.Label, rating.ErrEmptyHistory)
	}

	pixels := make([]Vec, len(s.Points))
	for i, p := range s.Points {
		x, y := m.ToPixel(p.Timestamp, p.Rating)
		pixels[i] = Vec{x, y}
	}

	// The path opens at the first point and then visits every point, so it
	// has one segment per point and a lone point is a zero-length path.
	path := append([]Vec{pixels[0]}, pixels...)
	Attach(&Polyline{
		Points: path,
		Paint:  Paint{Stroke: style.LineColor, StrokeWidth: style.LineWidth},
	}, parent)
	Attach(&Polyline{
		Points: append([]Vec(nil), path...),
		Paint:  Paint{Stroke: style.OverlayColor, StrokeWidth: style.OverlayWidth},
	}, parent)

	last := len(s.Points) - 1
	for i, p := range s.Points {
		stroke := style.MarkerStroke
		if i == last {
			stroke = style.LatestMarkerStroke
		}
		Attach(&Circle{
			X:      pixels[i].X,
			Y:      pixels[i].Y,
			Radius: style.MarkerRadius,
			Paint: Paint{
				Stroke:      stroke,
				StrokeWidth: style.MarkerStrokeWidth,
				Fill:        rating.TierFor(p.Rating).Color,
			},
		}, parent)
	}

	return addCallout(parent, bounds, s.Points[last], pixels[last], s.Label, style), nil
}

// addCallout labels the latest point. The label goes to the left when the
// point is in the later half of the time range so it stays inside the panel.
func addCallout(parent *Scene, bounds rating.Bounds, p rating.Point, at Vec, label string, style Style) *Callout {
	dx := style.CalloutOffsetX
	left := bounds.InLaterHalf(p.Timestamp)
	if left {
		dx = -dx
	}
	anchor := Vec{at.X + dx, at.Y - style.CalloutOffsetY}

	Attach(&Polyline{
		Points: []Vec{at, anchor},
		Paint:  Paint{Stroke: style.ConnectorColor, StrokeWidth: style.ConnectorWidth},
	}, parent)

	w := CalloutWidth(label, style)
	frame := Attach(&Rect{
		X:      anchor.X - w/2,
		Y:      anchor.Y - style.CalloutHeight/2,
		W:      w,
		H:      style.CalloutHeight,
		Radius: style.CalloutRadius,
		Paint:  Paint{Stroke: style.CalloutBorder, StrokeWidth: 1, Fill: style.CalloutFill},
	}, parent)

	text := Attach(&Text{
		X:        anchor.X,
		Y:        anchor.Y,
		Content:  label,
		Align:    AlignCenter,
		Baseline: BaselineMiddle,
		Color:    style.TextColor,
		FontSize: style.FontSize,
		NoShadow: true,
	}, parent)

	return &Callout{Anchor: anchor, Frame: frame, Text: text, Left: left}
}
