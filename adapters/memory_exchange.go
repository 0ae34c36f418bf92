package adapters

import (
	"context"
	"errors"
	"sync"

	"github.com/satriahrh/ticketgpt/domain/entities"
	"github.com/satriahrh/ticketgpt/domain/repositories"
)

const defaultMemoryExchangeCapacity = 1000

// MemoryExchangeRepository keeps exchange history in process memory.
// Only the newest capacity entries are retained.
type MemoryExchangeRepository struct {
	mu        sync.RWMutex
	exchanges []*entities.Exchange // oldest first
	capacity  int
}

var _ repositories.ExchangeRepository = (*MemoryExchangeRepository)(nil)

// NewMemoryExchangeRepository creates a new in-memory exchange repository.
// A capacity of zero or less uses the default.
func NewMemoryExchangeRepository(capacity int) *MemoryExchangeRepository {
	if capacity <= 0 {
		capacity = defaultMemoryExchangeCapacity
	}
	return &MemoryExchangeRepository{
		exchanges: make([]*entities.Exchange, 0),
		capacity:  capacity,
	}
}

// Create implements ExchangeRepository interface
func (m *MemoryExchangeRepository) Create(ctx context.Context, exchange *entities.Exchange) error {
	if exchange == nil {
		return errors.New("exchange cannot be nil")
	}

	if err := exchange.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Store a copy to prevent external modifications
	exchangeCopy := *exchange
	m.exchanges = append(m.exchanges, &exchangeCopy)
	if len(m.exchanges) > m.capacity {
		m.exchanges = m.exchanges[len(m.exchanges)-m.capacity:]
	}

	return nil
}

// ListRecent implements ExchangeRepository interface
func (m *MemoryExchangeRepository) ListRecent(ctx context.Context, limit int) ([]*entities.Exchange, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit > len(m.exchanges) {
		limit = len(m.exchanges)
	}

	result := make([]*entities.Exchange, 0, limit)
	for i := len(m.exchanges) - 1; i >= 0 && len(result) < limit; i-- {
		exchangeCopy := *m.exchanges[i]
		result = append(result, &exchangeCopy)
	}

	return result, nil
}
