package config

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/christophergentle/ratingchart-bsky/internal/chart"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"github.com/christophergentle/ratingchart-bsky/internal/render"
)

var (
	// ErrInvalidConfig is wrapped by every validation failure
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownView is returned when a view name is not configured
	ErrUnknownView = errors.New("unknown view")
)

// DefaultTimeEndPad is how far past now an open-ended view extends
const DefaultTimeEndPad = 1_000_000

type Config struct {
	Canvas     CanvasConfig   `koanf:"canvas"`
	Margins    rating.Margins `koanf:"margins"`
	TickTarget int            `koanf:"tick_target"`
	// Timezone names the IANA zone month and year labels are computed in
	Timezone string `koanf:"timezone"`
	Views    []View `koanf:"views"`

	// Users are the tracked handles, drawn in this order
	Users []string `koanf:"users"`

	// Store selects the history backend: file, sqlite or dynamodb
	Store       string `koanf:"store"`
	HistoryFile string `koanf:"history_file"`
	SQLitePath  string `koanf:"sqlite_path"`
	TableName   string `koanf:"table_name"`
	BucketName  string `koanf:"bucket_name"`
	// BackupPrefix is the S3 key prefix history backups are written under
	BackupPrefix string `koanf:"backup_prefix"`
	// FetchURL is the contest site histories are refreshed from; empty
	// means histories only come from the store
	FetchURL string `koanf:"fetch_url"`

	// ContestsURL is the contest list reminders are planned from; empty
	// uses the default list
	ContestsURL string `koanf:"contests_url"`
	// ReminderState is a YAML file keeping planned reminders across
	// restarts; empty keeps them in memory
	ReminderState string `koanf:"reminder_state"`

	Addr    string        `koanf:"addr"`
	Bluesky BlueskyConfig `koanf:"bluesky"`
	DryRun  bool          `koanf:"dry_run"`
}

type CanvasConfig struct {
	Width    int    `koanf:"width"`
	Height   int    `koanf:"height"`
	FontPath string `koanf:"font_path"`
}

type BlueskyConfig struct {
	Handle   string `koanf:"handle"`
	Password string `koanf:"password"`
}

// View is one rendered time window. A zero TimeEnd means now plus
// TimeEndPad, resolved when the chart is drawn.
type View struct {
	Name       string `koanf:"name"`
	TimeStart  int64  `koanf:"time_start"`
	TimeEnd    int64  `koanf:"time_end"`
	TimeEndPad int64  `koanf:"time_end_pad"`
	RatingMin  int    `koanf:"rating_min"`
	RatingMax  int    `koanf:"rating_max"`
}

// Bounds resolves the view's domain window at now
func (v View) Bounds(now time.Time) rating.Bounds {
	end := v.TimeEnd
	if end == 0 {
		pad := v.TimeEndPad
		if pad == 0 {
			pad = DefaultTimeEndPad
		}
		end = now.Unix() + pad
	}
	return rating.Bounds{
		TimeStart: v.TimeStart,
		TimeEnd:   end,
		RatingMin: v.RatingMin,
		RatingMax: v.RatingMax,
	}
}

// DefaultViews returns the full-history and recent windows
func DefaultViews() []View {
	return []View{
		{Name: "all", TimeStart: 1502372400, RatingMin: 0, RatingMax: 2000},
		{Name: "recent", TimeStart: 1521540800, RatingMin: 0, RatingMax: 800},
	}
}

// New returns a Config with defaults
func New() *Config {
	return &Config{
		Canvas:       CanvasConfig{Width: 640, Height: 360},
		Margins:      rating.Margins{Left: 50, Top: 5, Right: 10, Bottom: 30},
		TickTarget:   chart.DefaultTickTarget,
		Timezone:     "UTC",
		Store:        "file",
		HistoryFile:  "history.yaml",
		SQLitePath:   "ratingchart.db",
		TableName:    "ratingchart-history",
		BackupPrefix: "ratingchart-backup",
		Addr:         ":8080",
	}
}

// View returns the view with the given name
func (c *Config) View(name string) (View, bool) {
	for _, v := range c.Views {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}

// ViewsNamed returns the named views in order, or every view when no names
// are given
func (c *Config) ViewsNamed(names []string) ([]View, error) {
	if len(names) == 0 {
		return c.Views, nil
	}
	views := make([]View, 0, len(names))
	for _, name := range names {
		v, ok := c.View(name)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownView, name)
		}
		views = append(views, v)
	}
	return views, nil
}

// Validate checks that the config can lay out every view
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("%w: canvas %dx%d", ErrInvalidConfig, c.Canvas.Width, c.Canvas.Height)
	}
	if _, err := rating.GeometryFor(c.Canvas.Width, c.Canvas.Height, c.Margins); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	if len(c.Views) == 0 {
		return fmt.Errorf("%w: no views", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Views))
	for _, v := range c.Views {
		if v.Name == "" {
			return fmt.Errorf("%w: view without a name", ErrInvalidConfig)
		}
		if seen[v.Name] {
			return fmt.Errorf("%w: duplicate view %q", ErrInvalidConfig, v.Name)
		}
		seen[v.Name] = true

		if v.TimeEnd != 0 {
			if err := v.Bounds(time.Time{}).Validate(); err != nil {
				return fmt.Errorf("%w: view %q: %v", ErrInvalidConfig, v.Name, err)
			}
		} else if v.RatingMax <= v.RatingMin {
			return fmt.Errorf("%w: view %q: %v", ErrInvalidConfig, v.Name, rating.ErrEmptyRatingRange)
		}
	}

	switch c.Store {
	case "file", "sqlite", "dynamodb":
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	return nil
}

// ChartConfig returns the chart layout settings
func (c *Config) ChartConfig() (chart.Config, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return chart.Config{}, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	cfg := chart.DefaultConfig()
	cfg.Margins = c.Margins
	cfg.TickTarget = c.TickTarget
	cfg.Calendar = chart.NewTimeCalendar(loc)
	return cfg, nil
}

// CanvasConfig returns the raster surface settings
func (c *Config) CanvasConfig() *render.CanvasConfig {
	cfg := render.DefaultCanvasConfig()
	cfg.Width = c.Canvas.Width
	cfg.Height = c.Canvas.Height
	cfg.FontPath = c.Canvas.FontPath
	return cfg
}
