package service

import (
	"context"
	"testing"

	"dostyq-support/internal/model"
	"dostyq-support/internal/repository"
)

func TestTicketServiceDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewTicketService(repository.NewTicketRepository(newTestDB(t)))

	first, err := svc.Create(ctx, 10, "  ", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.Message != DefaultTicketMessage || first.Category != model.DefaultTicketCategory || first.Status != model.TicketStatusOpen {
		t.Fatalf("unexpected defaults: %+v", first)
	}

	second, err := svc.Create(ctx, 10, "Нет сигнала на позиции 44", "technical")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("ticket ids not increasing: %d then %d", first.ID, second.ID)
	}

	recent, err := svc.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(recent) != 2 || recent[0].ID != second.ID || recent[0].Category != "technical" {
		t.Fatalf("unexpected recent tickets: %+v", recent)
	}
}
