package pipeline

import (
	"fmt"
	"image"
	"log"
	"time"

	"github.com/christophergentle/ratingchart-bsky/internal/chart"
	"github.com/christophergentle/ratingchart-bsky/internal/config"
	"github.com/christophergentle/ratingchart-bsky/internal/history"
	"github.com/christophergentle/ratingchart-bsky/internal/metrics"
	"github.com/christophergentle/ratingchart-bsky/internal/render"
)

// Renderer draws the configured views of a set of histories
type Renderer struct {
	config  *config.Config
	metrics *metrics.Manager
	now     func() time.Time
}

// NewRenderer creates a renderer. m may be nil.
func NewRenderer(cfg *config.Config, m *metrics.Manager) *Renderer {
	return &Renderer{config: cfg, metrics: m, now: time.Now}
}

// WithClock fixes the time open-ended views are resolved against
func (r *Renderer) WithClock(now func() time.Time) *Renderer {
	r.now = now
	return r
}

// SeriesFor turns histories into chart series, skipping users with no
// rated contests
func SeriesFor(histories []history.UserHistory) []chart.Series {
	series := make([]chart.Series, 0, len(histories))
	for _, h := range histories {
		if len(h.Points) == 0 {
			log.Printf("Skipping %s: no rated contests", h.User)
			continue
		}
		series = append(series, chart.Series{Label: h.User, Points: h.Points})
	}
	return series
}

// RenderView draws one view of histories
func (r *Renderer) RenderView(view config.View, histories []history.UserHistory) (image.Image, error) {
	start := time.Now()

	chartCfg, err := r.config.ChartConfig()
	if err != nil {
		return nil, err
	}
	series := SeriesFor(histories)
	canvas, err := render.Chart(r.config.CanvasConfig(), chartCfg, view.Bounds(r.now()), series)
	if err != nil {
		r.recordError("render")
		return nil, fmt.Errorf("failed to render view %s: %w", view.Name, err)
	}

	if r.metrics != nil {
		r.metrics.ObserveRender(view.Name, len(series), time.Since(start))
	}
	return canvas.Image(), nil
}

// RenderPNG draws the named views (every view when names is empty) stacked
// top to bottom. It returns the PNG and the names of the views drawn.
func (r *Renderer) RenderPNG(names []string, histories []history.UserHistory) ([]byte, []string, error) {
	views, err := r.config.ViewsNamed(names)
	if err != nil {
		return nil, nil, err
	}

	images := make([]image.Image, 0, len(views))
	drawn := make([]string, 0, len(views))
	for _, v := range views {
		img, err := r.RenderView(v, histories)
		if err != nil {
			return nil, nil, err
		}
		images = append(images, img)
		drawn = append(drawn, v.Name)
	}

	stacked, err := render.StackVertical(images...)
	if err != nil {
		r.recordError("render")
		return nil, nil, err
	}
	data, err := render.EncodePNG(stacked)
	if err != nil {
		r.recordError("encode")
		return nil, nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return data, drawn, nil
}

func (r *Renderer) recordError(stage string) {
	if r.metrics != nil {
		r.metrics.RecordError(stage)
	}
}
