package repositories

import (
	"context"

	"github.com/satriahrh/ticketgpt/domain/entities"
)

// AudioStore persists captured audio clips
type AudioStore interface {
	// Save writes audio to a new timestamp-named clip and returns it
	Save(ctx context.Context, audio []byte, extension string) (*entities.AudioClip, error)
	// Read returns the bytes of a stored clip
	Read(ctx context.Context, name string) ([]byte, error)
	// Latest returns the most recently written clip
	Latest(ctx context.Context) (*entities.AudioClip, error)
}

// ResponseStore keeps the last answer on disk
type ResponseStore interface {
	Write(ctx context.Context, answer string) error
	Read(ctx context.Context) (string, error)
}

// ExchangeRepository defines data access methods for exchange history
type ExchangeRepository interface {
	Create(ctx context.Context, exchange *entities.Exchange) error
	ListRecent(ctx context.Context, limit int) ([]*entities.Exchange, error)
}
