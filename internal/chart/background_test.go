package chart

import (
	"testing"

	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestBackground(t *testing.T) *Scene {
	t.Helper()
	m, err := NewMapper(testBounds, testGeometry)
	require.NoError(t, err)
	cal := NewTimeCalendar(nil)
	ticks := GenerateTicks(cal, testBounds.TimeStart, testBounds.TimeEnd, DefaultTickTarget)
	return BuildBackground(m, testGeometry, testBounds, rating.Tiers, ticks, cal, DefaultStyle())
}

func TestBuildBackgroundStructure(t *testing.T) {
	bg := buildTestBackground(t)

	assert.Equal(t, testGeometry.OriginX, bg.OffsetX)
	assert.Equal(t, testGeometry.OriginY, bg.OffsetY)

	// frame + 8 tiers * (band, gridline) + 7 rating labels
	// + 12 ticks * (month label, gridline) + 2 year labels
	assert.Equal(t, 1+16+7+24+2, bg.Len())

	frame, ok := bg.Nodes[0].(*Rect)
	require.True(t, ok, "frame must be painted first")
	assert.Equal(t, testGeometry.Width, frame.W)
	assert.Equal(t, testGeometry.Height, frame.H)
	assert.Equal(t, 2.0, frame.Radius)
	assert.False(t, frame.Paint.HasFill())

	rects := Find[*Rect](bg)
	assert.Len(t, rects, 9)
}

func TestBuildBackgroundBands(t *testing.T) {
	bg := buildTestBackground(t)
	style := DefaultStyle()

	var bands []*Scene
	for _, n := range bg.Nodes {
		if s, ok := n.(*Scene); ok {
			bands = append(bands, s)
		}
	}
	require.Len(t, bands, len(rating.Tiers))

	for i, band := range bands {
		require.NotNil(t, band.Clip)
		assert.Equal(t, testGeometry.Width, band.Clip.W)
		assert.Equal(t, testGeometry.Height, band.Clip.H)

		require.Len(t, band.Nodes, 1)
		r := band.Nodes[0].(*Rect)
		lower := rating.Tiers[i].LowerBound
		assert.InDelta(t, 0, r.X, delta)
		assert.InDelta(t, testGeometry.Width, r.W, delta)
		assert.InDelta(t, 65, r.H, delta)
		assert.InDelta(t, 325-float64(lower+rating.TierStep)*325/2000, r.Y, delta)
		assert.Equal(t, withAlpha(rating.Tiers[i].Color, style.BandAlpha), r.Paint.Fill)
		assert.Equal(t, uint8(77), r.Paint.Fill.A)
	}
}

func TestBuildBackgroundLabels(t *testing.T) {
	bg := buildTestBackground(t)
	texts := Find[*Text](bg)

	var ratingLabels, monthLabels, yearLabels []*Text
	for _, txt := range texts {
		switch {
		case txt.Align == AlignRight:
			ratingLabels = append(ratingLabels, txt)
		case len(txt.Content) == 4:
			yearLabels = append(yearLabels, txt)
		default:
			monthLabels = append(monthLabels, txt)
		}
	}

	require.Len(t, ratingLabels, 7)
	assert.Equal(t, "400", ratingLabels[0].Content)
	assert.InDelta(t, -5, ratingLabels[0].X, delta)
	assert.InDelta(t, 260, ratingLabels[0].Y, delta)
	assert.Equal(t, BaselineMiddle, ratingLabels[0].Baseline)
	for _, l := range ratingLabels {
		assert.NotEqual(t, "0", l.Content)
	}

	require.Len(t, monthLabels, 12)
	assert.Equal(t, "Sep", monthLabels[0].Content)
	assert.Equal(t, "Aug", monthLabels[11].Content)
	assert.InDelta(t, 328, monthLabels[0].Y, delta)
	assert.Equal(t, AlignCenter, monthLabels[0].Align)
	assert.Equal(t, BaselineTop, monthLabels[0].Baseline)

	require.Len(t, yearLabels, 2)
	assert.Equal(t, "2017", yearLabels[0].Content)
	assert.Equal(t, "2018", yearLabels[1].Content)
	assert.InDelta(t, 343, yearLabels[0].Y, delta)
	assert.Equal(t, monthLabels[0].X, yearLabels[0].X)
	assert.Equal(t, monthLabels[4].X, yearLabels[1].X)
}

func TestBuildBackgroundGridlines(t *testing.T) {
	bg := buildTestBackground(t)
	lines := Find[*Polyline](bg)
	require.Len(t, lines, 8+12)

	for _, l := range lines[:8] {
		require.Len(t, l.Points, 2)
		assert.InDelta(t, 0, l.Points[0].X, delta)
		assert.InDelta(t, testGeometry.Width, l.Points[1].X, delta)
		assert.Equal(t, l.Points[0].Y, l.Points[1].Y)
	}
	for _, l := range lines[8:] {
		require.Len(t, l.Points, 2)
		assert.InDelta(t, testGeometry.Height, l.Points[0].Y, delta)
		assert.InDelta(t, 0, l.Points[1].Y, delta)
		assert.InDelta(t, l.Points[0].X, l.Points[1].X, delta)
		assert.GreaterOrEqual(t, l.Points[0].X, 0.0)
		assert.LessOrEqual(t, l.Points[0].X, testGeometry.Width)
	}
}
