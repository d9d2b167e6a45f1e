package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/christophergentle/ratingchart-bsky/internal/rating"
	"gopkg.in/yaml.v3"
)

// File is the on-disk snapshot format, YAML or JSON
type File struct {
	Users []UserHistory `json:"users" yaml:"users"`
}

// Decode parses a snapshot. Format "json" selects JSON; anything else is
// read as YAML.
func Decode(data []byte, format string) (*File, error) {
	var f File
	var err error
	if format == "json" {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse history snapshot: %w", err)
	}
	return &f, nil
}

// Encode serializes a snapshot in the given format
func Encode(f *File, format string) ([]byte, error) {
	if format == "json" {
		return json.MarshalIndent(f, "", "  ")
	}
	return yaml.Marshal(f)
}

// LoadFile reads a snapshot file, choosing the format by extension
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	return Decode(data, formatFor(path))
}

// SaveFile writes a snapshot file, choosing the format by extension
func SaveFile(path string, f *File) error {
	data, err := Encode(f, formatFor(path))
	if err != nil {
		return fmt.Errorf("failed to encode history file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

func formatFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}

// FileStore is a Store backed by a single snapshot file. The file is read
// once when the store opens and rewritten on every PutHistory.
type FileStore struct {
	path string
	mu   sync.RWMutex
	data map[string][]rating.Point
}

// NewFileStore opens path, starting empty when the file does not exist yet
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: make(map[string][]rating.Point)}

	f, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fs, nil
	}
	if err != nil {
		return nil, err
	}
	for _, u := range f.Users {
		fs.data[u.User] = u.Points
	}
	return fs, nil
}

func (fs *FileStore) GetHistory(_ context.Context, user string) ([]rating.Point, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	points, ok := fs.data[user]
	if !ok {
		return nil, fmt.Errorf("%s: %w", user, ErrUserNotFound)
	}
	return append([]rating.Point(nil), points...), nil
}

func (fs *FileStore) PutHistory(_ context.Context, user string, points []rating.Point) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	sorted := append([]rating.Point(nil), points...)
	sortPoints(sorted)
	fs.data[user] = sorted
	return SaveFile(fs.path, fs.snapshot())
}

func (fs *FileStore) ListUsers(_ context.Context) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	users := make([]string, 0, len(fs.data))
	for u := range fs.data {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

// snapshot returns the store contents ordered by user; callers hold mu
func (fs *FileStore) snapshot() *File {
	users := make([]string, 0, len(fs.data))
	for u := range fs.data {
		users = append(users, u)
	}
	sort.Strings(users)

	f := &File{Users: make([]UserHistory, 0, len(users))}
	for _, u := range users {
		f.Users = append(f.Users, UserHistory{User: u, Points: fs.data[u]})
	}
	return f
}
