package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/christophergentle/ratingchart-bsky/internal/config"
	"github.com/christophergentle/ratingchart-bsky/internal/formatter"
	"github.com/christophergentle/ratingchart-bsky/internal/history"
	"github.com/christophergentle/ratingchart-bsky/internal/pipeline"
	"github.com/christophergentle/ratingchart-bsky/internal/scheduler"
	"github.com/christophergentle/ratingchart-bsky/internal/source"
)

func main() {
	var (
		outPath    = flag.String("out", "chart.png", "Output PNG path, - for stdout")
		viewsStr   = flag.String("views", "", "Comma-separated views to stack (empty = all configured views)")
		usersStr   = flag.String("users", "", "Comma-separated users to draw (empty = configured users)")
		importPath = flag.String("import", "", "YAML or JSON history snapshot to import into the store first")
		fetch      = flag.Bool("fetch", false, "Refresh histories from the contest site before rendering")
		every      = flag.Duration("every", 0, "Re-render on this interval instead of once")
		summary    = flag.Bool("summary", false, "Print the rating update text for the latest contest")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if users := splitList(*usersStr); len(users) > 0 {
		cfg.Users = users
	}

	store, closeStore, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	defer closeStore()

	if *importPath != "" {
		if err := importSnapshot(ctx, store, *importPath); err != nil {
			log.Fatalf("Import failed: %v", err)
		}
	}

	renderer := pipeline.NewRenderer(cfg, nil)
	run := func(ctx context.Context) error {
		if *fetch {
			if len(cfg.Users) == 0 {
				return fmt.Errorf("-fetch needs users from -users or the config")
			}
			if _, err := source.Refresh(ctx, store, source.NewFetcher(cfg.FetchURL), cfg.Users); err != nil {
				return err
			}
		}

		histories, err := history.LoadAll(ctx, store, cfg.Users)
		if err != nil {
			return err
		}
		data, views, err := renderer.RenderPNG(splitList(*viewsStr), histories)
		if err != nil {
			return err
		}
		if err := writeOutput(*outPath, data); err != nil {
			return err
		}
		log.Printf("Rendered %s for %d users to %s", strings.Join(views, "+"), len(histories), *outPath)

		if *summary {
			if contest, changes, ok := formatter.LatestChanges(histories); ok {
				fmt.Fprintln(os.Stderr, formatter.FormatRatingUpdate(contest.ContestLabel, changes, 0))
			}
		}
		return nil
	}

	if *every > 0 {
		if *outPath == "-" {
			log.Fatalf("-every cannot write to stdout")
		}
		if err := scheduler.New(run, *every).Start(ctx); err != nil {
			log.Fatalf("Scheduler stopped: %v", err)
		}
		return
	}

	start := time.Now()
	if err := run(ctx); err != nil {
		log.Fatalf("Render failed: %v", err)
	}
	log.Printf("Done in %v", time.Since(start).Round(time.Millisecond))
}

func importSnapshot(ctx context.Context, store history.Store, path string) error {
	snapshot, err := history.LoadFile(path)
	if err != nil {
		return err
	}
	for _, u := range snapshot.Users {
		stored, err := store.GetHistory(ctx, u.User)
		if err != nil && !errors.Is(err, history.ErrUserNotFound) {
			return err
		}
		if err := store.PutHistory(ctx, u.User, history.Merge(stored, u.Points)); err != nil {
			return err
		}
	}
	log.Printf("Imported %d users from %s", len(snapshot.Users), path)
	return nil
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
