package adapters

import (
	"context"
	"testing"

	"github.com/satriahrh/ticketgpt/domain/entities"
)

func newTextExchange(query string) *entities.Exchange {
	exchange := entities.NewExchange(entities.ExchangeSourceText)
	exchange.Query = query
	exchange.Complete("answer to " + query)
	return exchange
}

func TestMemoryExchangeRepository_ListRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryExchangeRepository(0)

	for _, q := range []string{"first", "second", "third"} {
		if err := repo.Create(ctx, newTextExchange(q)); err != nil {
			t.Fatalf("Failed to create exchange: %v", err)
		}
	}

	recent, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to list exchanges: %v", err)
	}

	if len(recent) != 2 {
		t.Fatalf("Expected 2 exchanges, got %d", len(recent))
	}
	if recent[0].Query != "third" || recent[1].Query != "second" {
		t.Errorf("Expected newest first, got %s, %s", recent[0].Query, recent[1].Query)
	}

	all, err := repo.ListRecent(ctx, 50)
	if err != nil {
		t.Fatalf("Failed to list exchanges: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 exchanges, got %d", len(all))
	}
}

func TestMemoryExchangeRepository_Capacity(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryExchangeRepository(2)

	for _, q := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, newTextExchange(q)); err != nil {
			t.Fatalf("Failed to create exchange: %v", err)
		}
	}

	recent, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list exchanges: %v", err)
	}

	if len(recent) != 2 {
		t.Fatalf("Expected capacity of 2, got %d", len(recent))
	}
	if recent[1].Query != "b" {
		t.Errorf("Expected oldest entry to be evicted, got %s", recent[1].Query)
	}
}

func TestMemoryExchangeRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryExchangeRepository(0)

	exchange := newTextExchange("original")
	if err := repo.Create(ctx, exchange); err != nil {
		t.Fatalf("Failed to create exchange: %v", err)
	}
	exchange.Query = "mutated"

	recent, _ := repo.ListRecent(ctx, 1)
	recent[0].Answer = "mutated"

	again, _ := repo.ListRecent(ctx, 1)
	if again[0].Query != "original" || again[0].Answer != "answer to original" {
		t.Errorf("Stored exchange was modified: %+v", again[0])
	}
}

func TestMemoryExchangeRepository_Invalid(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryExchangeRepository(0)

	if err := repo.Create(ctx, nil); err == nil {
		t.Error("Expected error for nil exchange")
	}

	voice := entities.NewExchange(entities.ExchangeSourceVoice)
	if err := repo.Create(ctx, voice); err == nil {
		t.Error("Expected error for voice exchange without clip")
	}

	if _, err := repo.ListRecent(ctx, 0); err == nil {
		t.Error("Expected error for zero limit")
	}
}
