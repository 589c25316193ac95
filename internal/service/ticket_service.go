package service

import (
	"context"
	"strings"

	"dostyq-support/internal/model"
	"dostyq-support/internal/repository"
)

// DefaultTicketMessage is stored when the user gives no description.
const DefaultTicketMessage = "Пользователь запросил создание тикета."

const recentTicketsLimit = 5

// TicketService wraps ticket-related business logic.
type TicketService struct {
	repo *repository.TicketRepository
}

func NewTicketService(repo *repository.TicketRepository) *TicketService {
	return &TicketService{repo: repo}
}

// Create opens a ticket for the user. Empty message and category get defaults.
func (s *TicketService) Create(ctx context.Context, userID int64, message, category string) (*model.Ticket, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = DefaultTicketMessage
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = model.DefaultTicketCategory
	}

	ticket := model.Ticket{
		UserID:   userID,
		Message:  message,
		Category: category,
	}
	if err := s.repo.Create(ctx, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListRecent returns the user's latest tickets, newest first.
func (s *TicketService) ListRecent(ctx context.Context, userID int64) ([]model.Ticket, error) {
	return s.repo.ListByUser(ctx, userID, recentTicketsLimit)
}
