package chart

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Node is anything that can be placed in a Scene
type Node interface {
	isNode()
}

// Vec is a point in panel-local pixels
type Vec struct {
	X, Y float64
}

// Paint describes how a shape is stroked and filled. A zero color or a zero
// stroke width disables that part.
type Paint struct {
	Stroke      drawing.Color
	StrokeWidth float64
	Fill        drawing.Color
}

// HasStroke reports whether the shape outline is drawn
func (p Paint) HasStroke() bool { return p.StrokeWidth > 0 && p.Stroke.A > 0 }

// HasFill reports whether the shape interior is drawn
func (p Paint) HasFill() bool { return p.Fill.A > 0 }

// Rect is an axis-aligned rectangle, rounded when Radius > 0
type Rect struct {
	X, Y, W, H float64
	Radius     float64
	Paint      Paint
}

// RectFromExtent builds a rectangle from a corner and a possibly negative
// extent, normalizing it so W and H are never negative
func RectFromExtent(x, y, dx, dy float64) *Rect {
	if dx < 0 {
		x, dx = x+dx, -dx
	}
	if dy < 0 {
		y, dy = y+dy, -dy
	}
	return &Rect{X: x, Y: y, W: dx, H: dy}
}

// Circle is a marker centered on (X, Y)
type Circle struct {
	X, Y   float64
	Radius float64
	Paint  Paint
}

// Polyline is an open stroked path through Points in order
type Polyline struct {
	Points []Vec
	Paint  Paint
}

// Segments returns the number of line segments in the path
func (p *Polyline) Segments() int {
	if len(p.Points) == 0 {
		return 0
	}
	return len(p.Points) - 1
}

// Length returns the total path length in pixels
func (p *Polyline) Length() float64 {
	var total float64
	for i := 1; i < len(p.Points); i++ {
		total += math.Hypot(p.Points[i].X-p.Points[i-1].X, p.Points[i].Y-p.Points[i-1].Y)
	}
	return total
}

// Align is the horizontal text anchor
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Baseline is the vertical text anchor
type Baseline int

const (
	BaselineAlphabetic Baseline = iota
	BaselineTop
	BaselineMiddle
)

// Text is a single-line label anchored at (X, Y)
type Text struct {
	X, Y     float64
	Content  string
	Align    Align
	Baseline Baseline
	Color    drawing.Color
	FontSize float64
	// NoShadow keeps the label crisp inside a shadowed scene
	NoShadow bool
}

// Shadow is a drop shadow applied to every shape of a scene
type Shadow struct {
	Color   drawing.Color
	OffsetX float64
	OffsetY float64
	Blur    float64
}

// Scene is an ordered container of nodes; add order is paint order.
// A Scene is itself a Node so scenes nest.
type Scene struct {
	Name    string
	OffsetX float64
	OffsetY float64
	// Clip limits drawing to a rectangle in the scene's own coordinates
	Clip   *Rect
	Shadow *Shadow
	Nodes  []Node
}

func (*Rect) isNode()     {}
func (*Circle) isNode()   {}
func (*Polyline) isNode() {}
func (*Text) isNode()     {}
func (*Scene) isNode()    {}

// NewScene creates an empty scene at the given offset
func NewScene(name string, offsetX, offsetY float64) *Scene {
	return &Scene{Name: name, OffsetX: offsetX, OffsetY: offsetY}
}

// Attach appends node to parent and returns node so construction can chain
func Attach[T Node](node T, parent *Scene) T {
	parent.Nodes = append(parent.Nodes, node)
	return node
}

// Len returns the number of direct children
func (s *Scene) Len() int { return len(s.Nodes) }

// Find returns every node of type T in the scene tree, in paint order
func Find[T Node](s *Scene) []T {
	var found []T
	for _, n := range s.Nodes {
		if v, ok := n.(T); ok {
			found = append(found, v)
		}
		if child, ok := n.(*Scene); ok {
			found = append(found, Find[T](child)...)
		}
	}
	return found
}

// withAlpha scales the opacity of c by a in [0, 1]
func withAlpha(c drawing.Color, a float64) drawing.Color {
	c.A = uint8(math.Round(float64(c.A) * a))
	return c
}
