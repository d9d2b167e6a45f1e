package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/christophergentle/ratingchart-bsky/internal/backup"
	"github.com/christophergentle/ratingchart-bsky/internal/config"
	"github.com/christophergentle/ratingchart-bsky/internal/pipeline"
)

func main() {
	var (
		usersStr = flag.String("users", "", "Comma-separated list of users to backup (empty = every stored user)")
		s3Bucket = flag.String("s3-bucket", "", "S3 bucket name (defaults to bucket_name from the config)")
		s3Prefix = flag.String("s3-prefix", "", "S3 prefix for backup files (defaults to backup_prefix from the config)")
		compress = flag.Bool("compress", false, "Compress backup files with gzip")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *s3Bucket == "" {
		*s3Bucket = cfg.BucketName
	}
	if *s3Prefix == "" {
		*s3Prefix = cfg.BackupPrefix
	}
	if *s3Bucket == "" {
		fmt.Fprintf(os.Stderr, "Error: --s3-bucket or bucket_name is required\n")
		flag.Usage()
		os.Exit(1)
	}

	store, closeStore, err := pipeline.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	defer closeStore()

	objects, err := backup.NewS3Client(ctx, *s3Bucket)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	var progressFunc func(string, int)
	if *verbose {
		progressFunc = func(user string, points int) {
			log.Printf("Progress: %s - %d points backed up", user, points)
		}
	}

	users := splitList(*usersStr)
	options := backup.BackupOptions{
		Prefix:       *s3Prefix,
		Users:        users,
		Compress:     *compress,
		ProgressFunc: progressFunc,
	}

	if len(users) > 0 {
		fmt.Printf("Starting backup of %d user(s)...\n", len(users))
		fmt.Printf("Users: %s\n", strings.Join(users, ", "))
	} else {
		fmt.Printf("Starting backup of every stored user from %s store...\n", cfg.Store)
	}
	fmt.Printf("S3: s3://%s/%s\n", *s3Bucket, *s3Prefix)
	fmt.Println()

	result, err := backup.Backup(ctx, store, objects, options)
	if err != nil {
		log.Fatalf("Backup failed: %v", err)
	}

	fmt.Println()
	fmt.Printf("Backup completed successfully!\n")
	fmt.Printf("  Backup ID: %s\n", result.Manifest.BackupID)
	fmt.Printf("  Backup path: %s\n", result.BackupPath)
	fmt.Printf("  Users backed up: %d\n", result.UsersBackedUp)
	fmt.Printf("  Total points: %d\n", result.TotalPoints)
	fmt.Printf("  Duration: %v\n", result.Duration.Round(time.Millisecond))

	fmt.Println()
	fmt.Println("User details:")
	for _, u := range result.Manifest.Users {
		fmt.Printf("  %s: %d points, %s file size, checksum: %s\n",
			u.User,
			u.PointCount,
			formatBytes(u.FileSize),
			u.Checksum[:16]+"...")
	}
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

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
