package chart

import (
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// CharWidth is the pixel width assumed per label character when sizing the
// callout frame. Labels are not measured; 7px matches basicfont.Face7x13.
const CharWidth = 7.0

// Style holds the visual constants of the chart
type Style struct {
	Background drawing.Color

	FrameColor  drawing.Color
	FrameWidth  float64
	FrameRadius float64

	BandAlpha float64
	GridColor drawing.Color
	GridWidth float64

	TextColor drawing.Color
	FontSize  float64

	RatingLabelGap float64 // left of the panel edge
	MonthLabelGap  float64 // below the panel bottom
	YearLabelGap   float64 // below the panel bottom

	LineColor    drawing.Color
	LineWidth    float64
	OverlayColor drawing.Color
	OverlayWidth float64

	MarkerRadius       float64
	MarkerStroke       drawing.Color
	LatestMarkerStroke drawing.Color
	MarkerStrokeWidth  float64

	ConnectorColor drawing.Color
	ConnectorWidth float64
	CalloutOffsetX float64
	CalloutOffsetY float64
	CalloutHeight  float64
	CalloutPadding float64
	CalloutRadius  float64
	CalloutBorder  drawing.Color
	CalloutFill    drawing.Color

	Shadow Shadow
}

// DefaultStyle returns the standard chart look
func DefaultStyle() Style {
	return Style{
		Background: drawing.ColorWhite,

		FrameColor:  drawing.ColorFromHex("888888"),
		FrameWidth:  1.5,
		FrameRadius: 2,

		BandAlpha: 0.3,
		GridColor: drawing.ColorWhite,
		GridWidth: 0.5,

		TextColor: drawing.ColorBlack,
		FontSize:  12,

		RatingLabelGap: 5,
		MonthLabelGap:  3,
		YearLabelGap:   18,

		LineColor:    drawing.ColorFromHex("AAAAAA"),
		LineWidth:    2,
		OverlayColor: drawing.ColorWhite,
		OverlayWidth: 0.5,

		MarkerRadius:       3.5,
		MarkerStroke:       drawing.ColorWhite,
		LatestMarkerStroke: drawing.ColorBlack,
		MarkerStrokeWidth:  0.5,

		ConnectorColor: drawing.ColorWhite,
		ConnectorWidth: 1,
		CalloutOffsetX: 80,
		CalloutOffsetY: 16,
		CalloutHeight:  20,
		CalloutPadding: 4,
		CalloutRadius:  2,
		CalloutBorder:  drawing.ColorFromHex("888888"),
		CalloutFill:    drawing.ColorWhite,

		Shadow: Shadow{
			Color:   drawing.Color{R: 0, G: 0, B: 0, A: 77}, // rgba(0,0,0,0.3)
			OffsetX: 1,
			OffsetY: 2,
			Blur:    3,
		},
	}
}
