package backup

import (
	"context"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/christophergentle/ratingchart-bsky/internal/history"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
)

// RestoreOptions configures restore behavior
type RestoreOptions struct {
	// BackupPath is a backup-<timestamp> path; empty means the latest
	// backup under Prefix.
	BackupPath string
	Prefix     string
	Users      []string
	DryRun     bool
}

// RestoreResult contains information about a completed restore
type RestoreResult struct {
	BackupID      string
	BackupPath    string
	UsersRestored int
	TotalPoints   int
	Duration      time.Duration
	Errors        []string
}

// Restore writes the histories of a backup back into store. Users whose
// object is missing, corrupt or invalid are reported in Errors and skipped.
func Restore(ctx context.Context, objects ObjectStore, store history.Store, options RestoreOptions) (*RestoreResult, error) {
	startTime := time.Now()

	backupPath := options.BackupPath
	if backupPath == "" {
		latest, err := LatestBackup(ctx, objects, options.Prefix)
		if err != nil {
			return nil, err
		}
		backupPath = latest
	}

	data, err := objects.GetObject(ctx, path.Join(backupPath, manifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	manifest, err := DecodeManifest(data)
	if err != nil {
		return nil, err
	}

	log.Printf("Restoring backup %s from %s (created: %s)", manifest.BackupID, backupPath, manifest.BackupTimestamp)

	users := options.Users
	if len(users) == 0 {
		for _, um := range manifest.Users {
			users = append(users, um.User)
		}
	}

	result := &RestoreResult{
		BackupID:   manifest.BackupID,
		BackupPath: backupPath,
		Errors:     []string{},
	}
	addError := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		result.Errors = append(result.Errors, msg)
		log.Printf("Error: %s", msg)
	}

	for _, user := range users {
		um, ok := manifest.Find(user)
		if !ok {
			addError("user %s not found in backup manifest", user)
			continue
		}

		data, err := objects.GetObject(ctx, path.Join(backupPath, um.FileName))
		if err != nil {
			addError("failed to read history for %s: %v", user, err)
			continue
		}
		if sum := Checksum(data); sum != um.Checksum {
			addError("checksum mismatch for %s: got %s, want %s", user, sum, um.Checksum)
			continue
		}

		points, err := decodePoints(data, um.FileName)
		if err != nil {
			addError("failed to decode history for %s: %v", user, err)
			continue
		}
		if err := rating.ValidateHistory(points); err != nil {
			addError("invalid history for %s: %v", user, err)
			continue
		}

		if options.DryRun {
			log.Printf("[DRY RUN] Would restore %d points for %s", len(points), user)
		} else if err := store.PutHistory(ctx, user, points); err != nil {
			addError("failed to restore history for %s: %v", user, err)
			continue
		}

		result.UsersRestored++
		result.TotalPoints += len(points)
	}

	result.Duration = time.Since(startTime)
	log.Printf("Restore completed: %d users, %d points, %d errors", result.UsersRestored, result.TotalPoints, len(result.Errors))
	return result, nil
}
