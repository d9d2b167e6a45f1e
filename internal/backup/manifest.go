package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	manifestName    = "manifest.json"
	manifestVersion = "1.0"
	timestampLayout = "2006-01-02T15-04-05Z"
)

// Manifest represents backup metadata
type Manifest struct {
	BackupID        string         `json:"backupId"`
	BackupTimestamp string         `json:"backupTimestamp"`
	BackupVersion   string         `json:"backupVersion"`
	Users           []UserManifest `json:"users"`
	TotalPoints     int            `json:"totalPoints"`
}

// UserManifest describes one user's history object in a backup
type UserManifest struct {
	User       string `json:"user"`
	PointCount int    `json:"pointCount"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	Checksum   string `json:"checksum"`
}

func newManifest(now time.Time) Manifest {
	return Manifest{
		BackupID:        uuid.NewString(),
		BackupTimestamp: now.UTC().Format(timestampLayout),
		BackupVersion:   manifestVersion,
		Users:           []UserManifest{},
	}
}

// Find returns the entry for user, if the backup has one
func (m *Manifest) Find(user string) (UserManifest, bool) {
	for _, um := range m.Users {
		if um.User == user {
			return um, true
		}
	}
	return UserManifest{}, false
}

// EncodeManifest serializes a manifest as indented JSON
func EncodeManifest(m Manifest) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// DecodeManifest parses a manifest
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.BackupVersion != manifestVersion {
		return nil, fmt.Errorf("unsupported backup version %q", m.BackupVersion)
	}
	return &m, nil
}

// Checksum returns the hex SHA256 of data
func Checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ParseBackupTimestamp parses a backup timestamp string
func ParseBackupTimestamp(ts string) (time.Time, error) {
	return time.Parse(timestampLayout, ts)
}
