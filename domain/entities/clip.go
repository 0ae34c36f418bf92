package entities

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ClipPrefix is the file name prefix shared by every stored audio clip
	ClipPrefix = "audio"

	// DefaultClipExtension is used when the capture step does not name a format
	DefaultClipExtension = "mp3"

	clipTimeLayout  = "20060102_150405"
	maxExtensionLen = 8
)

// AudioClip describes an audio recording persisted in the data directory
type AudioClip struct {
	Name      string    `json:"name"`
	Extension string    `json:"extension"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ClipName builds the timestamped file name audio_YYYYMMDD_HHMMSS.<ext>
func ClipName(at time.Time, ext string) string {
	return fmt.Sprintf("%s_%s.%s", ClipPrefix, at.Format(clipTimeLayout), ext)
}

// NormalizeExtension strips a leading dot and lowercases ext.
// An empty extension falls back to DefaultClipExtension.
func NormalizeExtension(ext string) (string, bool) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return DefaultClipExtension, true
	}
	if len(ext) > maxExtensionLen {
		return "", false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "", false
		}
	}
	return ext, true
}

// IsClipName reports whether name is a bare file name carrying the clip prefix
func IsClipName(name string) bool {
	if name == "" || name != filepath.Base(name) {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return strings.HasPrefix(name, ClipPrefix)
}
