package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/ticketgpt/domain"
	"github.com/satriahrh/ticketgpt/domain/entities"
	"github.com/satriahrh/ticketgpt/domain/repositories"
)

// FileAudioStore keeps audio clips as plain files in a single directory
type FileAudioStore struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

var _ repositories.AudioStore = (*FileAudioStore)(nil)

// NewFileAudioStore creates a store rooted at dir. The directory must exist.
func NewFileAudioStore(dir string, logger *zap.Logger) *FileAudioStore {
	return &FileAudioStore{
		dir:    dir,
		now:    time.Now,
		logger: logger,
	}
}

// Save writes audio to audio_YYYYMMDD_HHMMSS.<ext>. Empty input produces an empty file.
// Two saves within the same second overwrite each other.
func (s *FileAudioStore) Save(ctx context.Context, audio []byte, extension string) (*entities.AudioClip, error) {
	ext, ok := entities.NormalizeExtension(extension)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedExtension, extension)
	}

	createdAt := s.now()
	name := entities.ClipName(createdAt, ext)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write audio clip %s: %w", name, err)
	}

	s.logger.Info("Audio clip saved",
		zap.String("clip", name),
		zap.Int("size", len(audio)))

	return &entities.AudioClip{
		Name:      name,
		Extension: ext,
		Size:      int64(len(audio)),
		CreatedAt: createdAt,
	}, nil
}

// Read returns the content of a stored clip
func (s *FileAudioStore) Read(ctx context.Context, name string) ([]byte, error) {
	if !entities.IsClipName(name) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidClipName, name)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoAudio, name)
		}
		return nil, fmt.Errorf("failed to read audio clip %s: %w", name, err)
	}

	return data, nil
}

// Latest picks the clip with the newest modification time.
// Ties go to the lexically greater name, which for timestamped names is the later one.
func (s *FileAudioStore) Latest(ctx context.Context) (*entities.AudioClip, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio directory: %w", err)
	}

	var newest *entities.AudioClip
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasPrefix(entry.Name(), entities.ClipPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}

		if newest != nil {
			if info.ModTime().Before(newest.CreatedAt) {
				continue
			}
			if info.ModTime().Equal(newest.CreatedAt) && entry.Name() < newest.Name {
				continue
			}
		}

		newest = &entities.AudioClip{
			Name:      entry.Name(),
			Extension: strings.TrimPrefix(filepath.Ext(entry.Name()), "."),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}
	}

	if newest == nil {
		return nil, domain.ErrNoAudio
	}

	return newest, nil
}

// FileResponseStore keeps the last answer in a single file, overwritten on every write
type FileResponseStore struct {
	path string
}

var _ repositories.ResponseStore = (*FileResponseStore)(nil)

func NewFileResponseStore(path string) *FileResponseStore {
	return &FileResponseStore{path: path}
}

// Write truncates the response file and stores answer
func (s *FileResponseStore) Write(ctx context.Context, answer string) error {
	if err := os.WriteFile(s.path, []byte(answer), 0o644); err != nil {
		return fmt.Errorf("failed to write response file: %w", err)
	}
	return nil
}

func (s *FileResponseStore) Read(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.ErrNoResponse
		}
		return "", fmt.Errorf("failed to read response file: %w", err)
	}
	return string(data), nil
}

// Path returns the location of the response file
func (s *FileResponseStore) Path() string {
	return s.path
}
