package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/ticketgpt/domain/entities"
)

// TestExchangeRepository_Integration requires a running MongoDB instance (skipped if MONGODB_URI is not set)
func TestExchangeRepository_Integration(t *testing.T) {
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		t.Skip("Skipping MongoDB integration test - MONGODB_URI not set")
	}

	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	client, err := NewClient(ctx, Config{URI: mongoURI, Database: "ticketgpt_test"}, logger)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Close(ctx)
	defer client.Database.Drop(ctx)

	repo := NewExchangeRepository(client.Database, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("Failed to create indexes: %v", err)
	}

	base := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	for i, query := range []string{"first", "second", "third"} {
		exchange := entities.NewExchange(entities.ExchangeSourceText)
		exchange.Query = query
		exchange.Answer = "answer to " + query
		exchange.CreatedAt = base.Add(time.Duration(i) * time.Second)

		if err := repo.Create(ctx, exchange); err != nil {
			t.Fatalf("Failed to create exchange: %v", err)
		}
	}

	voice := entities.NewExchange(entities.ExchangeSourceVoice)
	voice.ClipName = "audio_20230101_000000.mp3"
	voice.Transcript = "show ticket 5"
	voice.Query = voice.Transcript
	voice.Complete("Ticket 5 is open.")
	if err := repo.Create(ctx, voice); err != nil {
		t.Fatalf("Failed to create voice exchange: %v", err)
	}

	recent, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to list exchanges: %v", err)
	}

	if len(recent) != 2 {
		t.Fatalf("Expected 2 exchanges, got %d", len(recent))
	}
	if recent[0].ID != voice.ID {
		t.Errorf("Expected newest exchange first, got %s", recent[0].ID)
	}
	if recent[0].ClipName != voice.ClipName || recent[0].Source != entities.ExchangeSourceVoice {
		t.Errorf("Voice exchange not round-tripped: %+v", recent[0])
	}
	if recent[1].Query != "third" {
		t.Errorf("Expected third exchange second, got %s", recent[1].Query)
	}
}
