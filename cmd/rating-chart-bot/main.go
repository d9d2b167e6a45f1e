package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/christophergentle/ratingchart-bsky/internal/client"
	"github.com/christophergentle/ratingchart-bsky/internal/config"
	lambdapkg "github.com/christophergentle/ratingchart-bsky/internal/lambda"
	"github.com/christophergentle/ratingchart-bsky/internal/metrics"
	"github.com/christophergentle/ratingchart-bsky/internal/pipeline"
	"github.com/christophergentle/ratingchart-bsky/internal/reminder"
	"github.com/christophergentle/ratingchart-bsky/internal/scheduler"
	"github.com/christophergentle/ratingchart-bsky/internal/source"
)

func main() {
	var (
		interval = flag.Duration("interval", time.Hour, "Time between chart posts")
		once     = flag.Bool("once", false, "Post once and exit")
		dryRun   = flag.Bool("dry-run", false, "Render and format without posting")
		remind   = flag.Bool("reminders", false, "Post contest reminders and results as contests finish")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if !cfg.DryRun && (cfg.Bluesky.Handle == "" || cfg.Bluesky.Password == "") {
		log.Fatalf("Bluesky handle and password are required unless running dry")
	}

	store, closeStore, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	defer closeStore()

	poster := lambdapkg.NewRatingChartPoster(cfg, store, metrics.NewManager())
	job := func(ctx context.Context) error {
		result, err := poster.Run(ctx)
		if err != nil {
			return err
		}
		if result.SkipReason != "" {
			log.Printf("Run completed without posting: %s", result.SkipReason)
			return nil
		}
		log.Printf("Run completed: posted=%v users=%d views=%v", result.Posted, result.Users, result.Views)
		return nil
	}

	if *once {
		if err := job(ctx); err != nil {
			log.Fatalf("Run failed: %v", err)
		}
		return
	}

	if *remind {
		svc, err := newReminderService(cfg, poster)
		if err != nil {
			log.Fatalf("Failed to start reminders: %v", err)
		}
		log.Printf("Planning contest reminders from %s", orDefault(cfg.ContestsURL, source.DefaultContestsURL))
		go func() {
			if err := scheduler.New(svc.Run, time.Minute).Start(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Reminder scheduler stopped: %v", err)
			}
		}()
	}

	log.Printf("Posting rating charts every %v", *interval)
	if err := scheduler.New(job, *interval).Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}

func newReminderService(cfg *config.Config, poster *lambdapkg.RatingChartPoster) (*reminder.Service, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	var bsky reminder.Poster
	if !cfg.DryRun {
		bsky = client.New(cfg.Bluesky.Handle, cfg.Bluesky.Password)
	}
	results := func(ctx context.Context) (bool, error) {
		result, err := poster.Run(ctx)
		if err != nil {
			return false, err
		}
		return result.SkipReason == "", nil
	}

	return reminder.NewService(source.NewContestLister(cfg.ContestsURL, cfg.FetchURL), bsky, results, reminder.Options{
		Location:  loc,
		StatePath: cfg.ReminderState,
		DryRun:    cfg.DryRun,
	})
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
