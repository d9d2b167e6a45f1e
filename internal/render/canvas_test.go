package render

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/christophergentle/ratingchart-bsky/internal/chart"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

var (
	testBounds  = rating.Bounds{TimeStart: 1502372400, TimeEnd: 1533724000, RatingMin: 0, RatingMax: 2000}
	testHistory = []rating.Point{
		{Timestamp: 1509802800, Rating: 837},
		{Timestamp: 1511012400, Rating: 852},
		{Timestamp: 1527342000, Rating: 833},
	}
)

func rgba(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

func TestCanvasSessionRendersPNG(t *testing.T) {
	canvas := NewCanvas(nil)
	w, h := canvas.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)

	session, err := chart.NewSession(canvas, chart.DefaultConfig(), testBounds)
	require.NoError(t, err)
	require.NoError(t, session.Paint(testHistory, "tourist"))

	data, err := canvas.PNG()
	require.NoError(t, err)
	require.Greater(t, len(data), len(pngSignature))
	assert.Equal(t, pngSignature, data[:8])

	img := canvas.Image()
	assert.Equal(t, image.Rect(0, 0, 640, 360), img.Bounds())
}

func TestCanvasPaintsTierColors(t *testing.T) {
	canvas, err := Chart(nil, chart.DefaultConfig(), testBounds, []chart.Series{{Label: "tourist", Points: testHistory}})
	require.NoError(t, err)
	img := canvas.Image()

	// Outside the panel on the right margin the canvas stays white.
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, rgba(img.At(635, 100)))

	// Just below the center of the last marker, clear of the callout
	// connector, is the green tier fill.
	session, err := chart.NewSession(NewCanvas(nil), chart.DefaultConfig(), testBounds)
	require.NoError(t, err)
	x, y := session.Mapper().ToPixel(1527342000, 833)
	px := rgba(img.At(int(x+50), int(y+5)+2))
	assert.Greater(t, px.G, px.R)
	assert.Greater(t, px.G, px.B)

	// The 1600-2000 band is a washed-out blue.
	band := rgba(img.At(300, 5+30))
	assert.Greater(t, band.B, band.R)
	assert.Greater(t, band.B, band.G)
}

func TestCanvasRepaintIsIdentical(t *testing.T) {
	canvas := NewCanvas(nil)
	session, err := chart.NewSession(canvas, chart.DefaultConfig(), testBounds)
	require.NoError(t, err)

	require.NoError(t, session.Paint(testHistory, "tourist"))
	first, err := canvas.PNG()
	require.NoError(t, err)

	require.NoError(t, session.Paint(testHistory, "tourist"))
	second, err := canvas.PNG()
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second))
}

func TestCanvasPresentRejectsNilLayer(t *testing.T) {
	canvas := NewCanvas(nil)
	assert.Error(t, canvas.Present(nil))
}

func TestCanvasFontFallback(t *testing.T) {
	cfg := DefaultCanvasConfig()
	cfg.FontPath = filepath.Join(t.TempDir(), "missing.ttf")
	canvas := NewCanvas(cfg)

	_, err := chart.NewSession(canvas, chart.DefaultConfig(), testBounds)
	require.NoError(t, err)
	assert.NotNil(t, canvas.face(12))
}

func TestCanvasSavePNG(t *testing.T) {
	canvas, err := Chart(nil, chart.DefaultConfig(), testBounds, []chart.Series{{Label: "tourist", Points: testHistory}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, canvas.SavePNG(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngSignature, data[:8])
}

func TestChartErrors(t *testing.T) {
	_, err := Chart(nil, chart.DefaultConfig(), rating.Bounds{TimeStart: 1, TimeEnd: 1, RatingMax: 10}, nil)
	assert.ErrorIs(t, err, rating.ErrEmptyTimeRange)

	_, err = Chart(nil, chart.DefaultConfig(), testBounds, []chart.Series{{Label: "empty"}})
	assert.ErrorIs(t, err, rating.ErrEmptyHistory)
}

func TestStackVertical(t *testing.T) {
	top := image.NewRGBA(image.Rect(0, 0, 100, 40))
	bottom := image.NewRGBA(image.Rect(0, 0, 60, 20))
	for i := range bottom.Pix {
		bottom.Pix[i] = 255
	}
	bottom.Set(0, 0, drawing.ColorBlack)

	img, err := StackVertical(top, bottom)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 60), img.Bounds())
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, rgba(img.At(0, 40)))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, rgba(img.At(80, 50)))

	_, err = StackVertical()
	assert.Error(t, err)

	data, err := EncodePNG(img)
	require.NoError(t, err)
	assert.Equal(t, pngSignature, data[:8])
}

func TestBlurSpreadsAndFades(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 9, 9))
	img.Set(4, 4, color.RGBA{0, 0, 0, 255})

	out := blur(img, 1, 0.5)
	center := out.RGBAAt(4, 4).A
	neighbour := out.RGBAAt(5, 4).A
	assert.Greater(t, center, uint8(0))
	assert.Less(t, center, uint8(255/2))
	assert.Greater(t, neighbour, uint8(0))
	assert.Equal(t, uint8(0), out.RGBAAt(0, 0).A)
}
