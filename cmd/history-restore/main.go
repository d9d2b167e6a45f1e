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
		backupPath = flag.String("backup", "", "Backup path to restore, e.g. ratingchart-backup/backup-2024-01-02T03-04-05Z (empty = latest)")
		s3Bucket   = flag.String("s3-bucket", "", "S3 bucket name (defaults to bucket_name from the config)")
		s3Prefix   = flag.String("s3-prefix", "", "S3 prefix to search for the latest backup (defaults to backup_prefix from the config)")
		usersStr   = flag.String("users", "", "Comma-separated list of users to restore (empty = restore all users)")
		dryRun     = flag.Bool("dry-run", false, "Dry run mode - verify what would be restored without writing")
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

	var users []string
	if *usersStr != "" {
		for _, user := range strings.Split(*usersStr, ",") {
			if user = strings.TrimSpace(user); user != "" {
				users = append(users, user)
			}
		}
	}

	if *dryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
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

	source := fmt.Sprintf("s3://%s/%s", *s3Bucket, *s3Prefix)
	if *backupPath != "" {
		source = fmt.Sprintf("s3://%s/%s", *s3Bucket, *backupPath)
	}
	fmt.Printf("Starting restore from %s...\n", source)
	if len(users) > 0 {
		fmt.Printf("Users to restore: %s\n", strings.Join(users, ", "))
	} else {
		fmt.Println("Users to restore: all users in backup")
	}
	fmt.Println()

	result, err := backup.Restore(ctx, objects, store, backup.RestoreOptions{
		BackupPath: *backupPath,
		Prefix:     *s3Prefix,
		Users:      users,
		DryRun:     *dryRun,
	})
	if err != nil {
		log.Fatalf("Restore failed: %v", err)
	}

	fmt.Println()
	if *dryRun {
		fmt.Printf("Dry run completed!\n")
	} else {
		fmt.Printf("Restore completed successfully!\n")
	}
	fmt.Printf("  Backup: %s (%s)\n", result.BackupPath, result.BackupID)
	fmt.Printf("  Users restored: %d\n", result.UsersRestored)
	fmt.Printf("  Total points: %d\n", result.TotalPoints)
	fmt.Printf("  Duration: %v\n", result.Duration.Round(time.Millisecond))

	if len(result.Errors) > 0 {
		fmt.Println()
		fmt.Println("Errors encountered:")
		for _, err := range result.Errors {
			fmt.Printf("  - %s\n", err)
		}
		os.Exit(1)
	}
}
