package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"log"

	"github.com/christophergentle/ratingchart-bsky/internal/chart"
	"github.com/fogleman/gg"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// CanvasConfig holds configuration for the raster surface
type CanvasConfig struct {
	Width      int
	Height     int
	Background drawing.Color
	// FontPath is a TrueType font for labels. When empty, or when it cannot
	// be loaded, the built-in 7x13 bitmap face is used.
	FontPath string
}

// DefaultCanvasConfig returns a 640x360 white canvas
func DefaultCanvasConfig() *CanvasConfig {
	return &CanvasConfig{
		Width:      640,
		Height:     360,
		Background: drawing.ColorWhite,
	}
}

// Canvas is a chart.Surface that rasterizes scenes with gg
type Canvas struct {
	config *CanvasConfig
	dc     *gg.Context
	faces  map[float64]font.Face
}

// NewCanvas creates a blank canvas
func NewCanvas(config *CanvasConfig) *Canvas {
	if config == nil {
		config = DefaultCanvasConfig()
	}
	c := &Canvas{
		config: config,
		faces:  make(map[float64]font.Face),
	}
	c.dc = c.blank()
	return c
}

// Size implements chart.Surface
func (c *Canvas) Size() (int, int) {
	return c.config.Width, c.config.Height
}

// Present implements chart.Surface. Each call repaints the whole canvas from
// the background color up.
func (c *Canvas) Present(layers ...*chart.Scene) error {
	dc := c.blank()
	p := &painter{canvas: c, dc: dc}
	for _, layer := range layers {
		if layer == nil {
			return fmt.Errorf("nil layer")
		}
		p.drawScene(layer, 0, 0)
	}
	c.dc = dc
	return nil
}

// Image returns the current raster
func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}

// EncodePNG writes the current raster as PNG
func (c *Canvas) EncodePNG(w io.Writer) error {
	return c.dc.EncodePNG(w)
}

// PNG returns the current raster as PNG bytes
func (c *Canvas) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode chart PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG writes the current raster to a file
func (c *Canvas) SavePNG(path string) error {
	return c.dc.SavePNG(path)
}

func (c *Canvas) blank() *gg.Context {
	dc := gg.NewContext(c.config.Width, c.config.Height)
	dc.SetColor(c.config.Background)
	dc.Clear()
	return dc
}

// face returns the label font for a size, loading it once
func (c *Canvas) face(size float64) font.Face {
	if f, ok := c.faces[size]; ok {
		return f
	}
	var f font.Face = basicfont.Face7x13
	if c.config.FontPath != "" {
		loaded, err := gg.LoadFontFace(c.config.FontPath, size)
		if err != nil {
			log.Printf("Failed to load font %s, using built-in face: %v", c.config.FontPath, err)
		} else {
			f = loaded
		}
	}
	c.faces[size] = f
	return f
}

// painter walks a scene tree onto one gg context. While shadow is set it
// casts the scene's shadow instead of painting it.
type painter struct {
	canvas *Canvas
	dc     *gg.Context
	shadow *chart.Shadow
}

func (p *painter) drawScene(s *chart.Scene, ox, oy float64) {
	if s.Shadow != nil && p.shadow == nil {
		p.castShadow(s, ox, oy)
	}

	p.dc.Push()
	defer p.dc.Pop()

	p.dc.Translate(s.OffsetX, s.OffsetY)
	if s.Clip != nil {
		p.dc.DrawRectangle(s.Clip.X, s.Clip.Y, s.Clip.W, s.Clip.H)
		p.dc.Clip()
	}

	for _, n := range s.Nodes {
		switch n := n.(type) {
		case *chart.Scene:
			p.drawScene(n, ox+s.OffsetX, oy+s.OffsetY)
		case *chart.Rect:
			p.drawRect(n)
		case *chart.Circle:
			p.shape(n.Paint, func(dc *gg.Context) {
				dc.DrawCircle(n.X, n.Y, n.Radius)
			})
		case *chart.Polyline:
			p.drawPolyline(n)
		case *chart.Text:
			p.drawText(n)
		}
	}
}

// castShadow paints s in a solid shadow color on a scratch context, blurs it
// and composites it under the scene
func (p *painter) castShadow(s *chart.Scene, ox, oy float64) {
	w, h := p.canvas.Size()
	sc := gg.NewContext(w, h)
	sc.Translate(ox, oy)

	sp := &painter{canvas: p.canvas, dc: sc, shadow: s.Shadow}
	sp.drawScene(s, ox, oy)

	img := blur(sc.Image(), int(s.Shadow.Blur+1)/2, float64(s.Shadow.Color.A)/255)

	p.dc.Push()
	p.dc.Identity()
	p.dc.DrawImage(img, 0, 0)
	p.dc.Pop()
}

func (p *painter) drawRect(r *chart.Rect) {
	p.shape(r.Paint, func(dc *gg.Context) {
		if r.Radius > 0 {
			dc.DrawRoundedRectangle(r.X, r.Y, r.W, r.H, r.Radius)
		} else {
			dc.DrawRectangle(r.X, r.Y, r.W, r.H)
		}
	})
}

func (p *painter) drawPolyline(l *chart.Polyline) {
	if len(l.Points) == 0 {
		return
	}
	p.dc.SetLineCap(gg.LineCapRound)
	p.dc.SetLineJoin(gg.LineJoinRound)
	p.shape(l.Paint, func(dc *gg.Context) {
		dc.MoveTo(l.Points[0].X, l.Points[0].Y)
		for _, pt := range l.Points[1:] {
			dc.LineTo(pt.X, pt.Y)
		}
	})
}

// shape fills then strokes the path drawn by path
func (p *painter) shape(paint chart.Paint, path func(dc *gg.Context)) {
	dc := p.dc
	if p.shadow != nil {
		dc.Push()
		defer dc.Pop()
		dc.Translate(p.shadow.OffsetX, p.shadow.OffsetY)
	}

	if paint.HasFill() {
		path(dc)
		dc.SetColor(p.color(paint.Fill))
		dc.Fill()
	}
	if paint.HasStroke() {
		path(dc)
		dc.SetColor(p.color(paint.Stroke))
		dc.SetLineWidth(paint.StrokeWidth)
		dc.Stroke()
	}
}

func (p *painter) drawText(t *chart.Text) {
	if p.shadow != nil && t.NoShadow {
		return
	}

	dc := p.dc
	if p.shadow != nil {
		dc.Push()
		defer dc.Pop()
		dc.Translate(p.shadow.OffsetX, p.shadow.OffsetY)
	}

	dc.SetFontFace(p.canvas.face(t.FontSize))
	dc.SetColor(p.color(t.Color))
	ax, ay := anchor(t.Align, t.Baseline)
	dc.DrawStringAnchored(t.Content, t.X, t.Y, ax, ay)
}

// color returns c, or the opaque shadow color during a shadow pass. The
// shadow opacity is applied once when the blurred pass is composited.
func (p *painter) color(c drawing.Color) color.Color {
	if p.shadow == nil {
		return c
	}
	sc := p.shadow.Color
	sc.A = 255
	return sc
}

// anchor maps text alignment to gg's anchor fractions
func anchor(align chart.Align, baseline chart.Baseline) (float64, float64) {
	var ax, ay float64
	switch align {
	case chart.AlignCenter:
		ax = 0.5
	case chart.AlignRight:
		ax = 1
	}
	switch baseline {
	case chart.BaselineMiddle:
		ay = 0.5
	case chart.BaselineTop:
		ay = 1
	}
	return ax, ay
}
