package render

import (
	"bytes"
	"fmt"
	"image"

	"github.com/christophergentle/ratingchart-bsky/internal/chart"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"github.com/fogleman/gg"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Chart lays out series over bounds on a new canvas and paints them once
func Chart(canvasCfg *CanvasConfig, chartCfg chart.Config, bounds rating.Bounds, series []chart.Series) (*Canvas, error) {
	canvas := NewCanvas(canvasCfg)
	session, err := chart.NewSession(canvas, chartCfg, bounds)
	if err != nil {
		return nil, err
	}
	if err := session.PaintAll(series); err != nil {
		return nil, err
	}
	return canvas, nil
}

// StackVertical places images top to bottom on a white canvas as wide as
// the widest of them
func StackVertical(images ...image.Image) (image.Image, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to stack")
	}

	width, height := 0, 0
	for _, img := range images {
		b := img.Bounds()
		if b.Dx() > width {
			width = b.Dx()
		}
		height += b.Dy()
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(drawing.ColorWhite)
	dc.Clear()

	y := 0
	for _, img := range images {
		dc.DrawImage(img, 0, y)
		y += img.Bounds().Dy()
	}
	return dc.Image(), nil
}

// EncodePNG encodes img as PNG bytes
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := gg.NewContextForImage(img).EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
