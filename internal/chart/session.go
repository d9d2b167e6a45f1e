package chart

import (
	"fmt"

	"github.com/christophergentle/ratingchart-bsky/internal/rating"
)

// Surface is the drawing target a Session presents to. Present composites
// the layers in order and replaces whatever was shown before.
type Surface interface {
	Size() (width, height int)
	Present(layers ...*Scene) error
}

// Config holds the layout settings of a chart session
type Config struct {
	Margins    rating.Margins
	TickTarget int
	Calendar   Calendar
	Style      Style
}

// DefaultConfig returns the standard layout: a 50px left gutter for rating
// labels and a 30px bottom gutter for month and year labels
func DefaultConfig() Config {
	return Config{
		Margins:    rating.Margins{Left: 50, Top: 5, Right: 10, Bottom: 30},
		TickTarget: DefaultTickTarget,
		Calendar:   NewTimeCalendar(nil),
		Style:      DefaultStyle(),
	}
}

// Session owns one chart: its panel geometry, its coordinate mapper, the
// background built once at construction and the current series layer.
//
// A Session is not safe for concurrent use; callers serialize Paint.
type Session struct {
	surface    Surface
	config     Config
	bounds     rating.Bounds
	geometry   rating.Geometry
	mapper     *Mapper
	ticks      []Tick
	background *Scene
	series     *Scene
}

// NewSession lays out the background for bounds on surface and presents it
func NewSession(surface Surface, cfg Config, bounds rating.Bounds) (*Session, error) {
	if cfg.Calendar == nil {
		cfg.Calendar = NewTimeCalendar(nil)
	}
	if cfg.TickTarget <= 0 {
		cfg.TickTarget = DefaultTickTarget
	}

	w, h := surface.Size()
	geometry, err := rating.GeometryFor(w, h, cfg.Margins)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart session: %w", err)
	}

	mapper, err := NewMapper(bounds, geometry)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart session: %w", err)
	}

	s := &Session{
		surface:  surface,
		config:   cfg,
		bounds:   bounds,
		geometry: geometry,
		mapper:   mapper,
		ticks:    GenerateTicks(cfg.Calendar, bounds.TimeStart, bounds.TimeEnd, cfg.TickTarget),
	}
	s.background = BuildBackground(mapper, geometry, bounds, rating.Tiers, s.ticks, cfg.Calendar, cfg.Style)
	s.series = s.newSeriesLayer()

	if err := surface.Present(s.background, s.series); err != nil {
		return nil, fmt.Errorf("failed to present chart background: %w", err)
	}
	return s, nil
}

// Paint replaces the series layer with a single history and presents
func (s *Session) Paint(points []rating.Point, label string) error {
	return s.PaintAll([]Series{{Label: label, Points: points}})
}

// PaintAll replaces the series layer with every given history overlaid, in
// order, and presents. The new layer is built detached and only swapped in
// once complete; on error the previous layer stays.
func (s *Session) PaintAll(series []Series) error {
	if len(series) == 0 {
		return fmt.Errorf("failed to paint chart: %w", rating.ErrEmptyHistory)
	}

	next := s.newSeriesLayer()
	for _, sr := range series {
		if err := rating.ValidateHistory(sr.Points); err != nil {
			return fmt.Errorf("failed to paint series %q: %w", sr.Label, err)
		}
		if _, err := AddSeries(next, s.mapper, s.bounds, sr, s.config.Style); err != nil {
			return fmt.Errorf("failed to paint chart: %w", err)
		}
	}

	s.series = next
	if err := s.surface.Present(s.background, s.series); err != nil {
		return fmt.Errorf("failed to present chart: %w", err)
	}
	return nil
}

func (s *Session) newSeriesLayer() *Scene {
	shadow := s.config.Style.Shadow
	return &Scene{
		Name:    "series",
		OffsetX: s.geometry.OriginX,
		OffsetY: s.geometry.OriginY,
		Clip:    &Rect{W: s.geometry.Width, H: s.geometry.Height},
		Shadow:  &shadow,
	}
}

// Background returns the static layer built at construction
func (s *Session) Background() *Scene { return s.background }

// Series returns the current series layer
func (s *Session) Series() *Scene { return s.series }

// Mapper returns the session's coordinate mapper
func (s *Session) Mapper() *Mapper { return s.mapper }

// Geometry returns the panel rectangle
func (s *Session) Geometry() rating.Geometry { return s.geometry }

// Bounds returns the domain window of the chart
func (s *Session) Bounds() rating.Bounds { return s.bounds }

// Ticks returns the month ticks laid out on the time axis
func (s *Session) Ticks() []Tick { return s.ticks }
