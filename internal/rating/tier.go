package rating

import (
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// TierStep is the rating width of every tier
const TierStep = 400

// Tier is a rating band with its display color
type Tier struct {
	LowerBound int
	Color      drawing.Color
}

// Tiers is the fixed tier table, ascending and contiguous from 0
var Tiers = []Tier{
	{LowerBound: 0, Color: drawing.ColorFromHex("808080")},    // Gray
	{LowerBound: 400, Color: drawing.ColorFromHex("804000")},  // Brown
	{LowerBound: 800, Color: drawing.ColorFromHex("008000")},  // Green
	{LowerBound: 1200, Color: drawing.ColorFromHex("00C0C0")}, // Cyan
	{LowerBound: 1600, Color: drawing.ColorFromHex("0000FF")}, // Blue
	{LowerBound: 2000, Color: drawing.ColorFromHex("C0C000")}, // Yellow
	{LowerBound: 2400, Color: drawing.ColorFromHex("FF8000")}, // Orange
	{LowerBound: 2800, Color: drawing.ColorFromHex("FF0000")}, // Red
}

// TierIndex returns the index into Tiers for a rating. Boundary ratings
// select the higher tier; everything from 2800 up shares the last tier.
func TierIndex(r int) int {
	if r < 0 {
		return 0
	}
	idx := r / TierStep
	if idx > len(Tiers)-1 {
		idx = len(Tiers) - 1
	}
	return idx
}

// TierFor returns the tier a rating belongs to
func TierFor(r int) Tier {
	return Tiers[TierIndex(r)]
}
