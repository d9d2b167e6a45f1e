package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/christophergentle/ratingchart-bsky/internal/history"
	"github.com/christophergentle/ratingchart-bsky/internal/rating"
)

// DefaultPrefix is the key prefix used when none is configured
const DefaultPrefix = "ratingchart-backup"

// ErrNoBackups is returned when a prefix holds no complete backup
var ErrNoBackups = errors.New("no backups found")

// BackupOptions configures backup behavior
type BackupOptions struct {
	Prefix       string
	Users        []string
	Compress     bool
	Now          func() time.Time
	ProgressFunc func(user string, points int)
}

// BackupResult contains information about a completed backup
type BackupResult struct {
	Manifest      Manifest
	BackupPath    string
	UsersBackedUp int
	TotalPoints   int
	Duration      time.Duration
}

// Backup copies every user's history from store into objects under
// <prefix>/backup-<timestamp>/, one JSONL object per user plus a manifest.
// The manifest is written last so a backup without one is incomplete.
func Backup(ctx context.Context, store history.Store, objects ObjectStore, options BackupOptions) (*BackupResult, error) {
	startTime := time.Now()
	now := time.Now
	if options.Now != nil {
		now = options.Now
	}

	users := options.Users
	if len(users) == 0 {
		var err error
		users, err = store.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
	}

	manifest := newManifest(now())
	prefix := options.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	backupPath := path.Join(prefix, "backup-"+manifest.BackupTimestamp)
	log.Printf("Starting backup %s of %d users to %s", manifest.BackupID, len(users), backupPath)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var backupErr error

	for _, user := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()

			fail := func(err error) {
				mu.Lock()
				if backupErr == nil {
					backupErr = err
				}
				mu.Unlock()
			}

			points, err := store.GetHistory(ctx, user)
			if err != nil {
				fail(fmt.Errorf("failed to read history for %s: %w", user, err))
				return
			}

			data, err := encodePoints(points, options.Compress)
			if err != nil {
				fail(fmt.Errorf("failed to encode history for %s: %w", user, err))
				return
			}

			fileName := url.PathEscape(user) + ".jsonl"
			if options.Compress {
				fileName += ".gz"
			}
			if err := objects.PutObject(ctx, path.Join(backupPath, fileName), data); err != nil {
				fail(err)
				return
			}

			mu.Lock()
			manifest.Users = append(manifest.Users, UserManifest{
				User:       user,
				PointCount: len(points),
				FileName:   fileName,
				FileSize:   int64(len(data)),
				Checksum:   Checksum(data),
			})
			manifest.TotalPoints += len(points)
			mu.Unlock()

			if options.ProgressFunc != nil {
				options.ProgressFunc(user, len(points))
			}
		}(user)
	}

	wg.Wait()

	if backupErr != nil {
		return nil, backupErr
	}

	sort.Slice(manifest.Users, func(i, j int) bool {
		return manifest.Users[i].User < manifest.Users[j].User
	})

	data, err := EncodeManifest(manifest)
	if err != nil {
		return nil, err
	}
	if err := objects.PutObject(ctx, path.Join(backupPath, manifestName), data); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	result := &BackupResult{
		Manifest:      manifest,
		BackupPath:    backupPath,
		UsersBackedUp: len(manifest.Users),
		TotalPoints:   manifest.TotalPoints,
		Duration:      time.Since(startTime),
	}
	log.Printf("Backup completed: %d users, %d points in %v", result.UsersBackedUp, result.TotalPoints, result.Duration)
	return result, nil
}

// LatestBackup returns the path of the newest complete backup under prefix
func LatestBackup(ctx context.Context, objects ObjectStore, prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	keys, err := objects.ListObjects(ctx, prefix+"/")
	if err != nil {
		return "", err
	}

	var paths []string
	for _, key := range keys {
		if path.Base(key) == manifestName {
			paths = append(paths, path.Dir(key))
		}
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("%s: %w", prefix, ErrNoBackups)
	}
	// Timestamps sort lexically.
	sort.Strings(paths)
	return paths[len(paths)-1], nil
}

// encodePoints writes one JSON point per line, gzipped when compress is set
func encodePoints(points []rating.Point, compress bool) ([]byte, error) {
	var buf bytes.Buffer
	if !compress {
		encoder := json.NewEncoder(&buf)
		for _, p := range points {
			if err := encoder.Encode(p); err != nil {
				return nil, err
			}
		}
		return buf.Bytes(), nil
	}

	gzipWriter := gzip.NewWriter(&buf)
	encoder := json.NewEncoder(gzipWriter)
	for _, p := range points {
		if err := encoder.Encode(p); err != nil {
			gzipWriter.Close()
			return nil, err
		}
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// decodePoints reverses encodePoints, choosing gzip by file name
func decodePoints(data []byte, fileName string) ([]rating.Point, error) {
	reader := bytes.NewReader(data)
	var decoder *json.Decoder
	if strings.HasSuffix(fileName, ".gz") {
		gzipReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzipReader.Close()
		decoder = json.NewDecoder(gzipReader)
	} else {
		decoder = json.NewDecoder(reader)
	}

	var points []rating.Point
	for decoder.More() {
		var p rating.Point
		if err := decoder.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to parse point %d: %w", len(points)+1, err)
		}
		points = append(points, p)
	}
	return points, nil
}
