package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dostyq-support/internal/model"
)

// TicketRepository handles support tickets.
type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// Create inserts the ticket as open. The store-assigned id is written back to ticket.ID.
func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	ticket.Status = model.TicketStatusOpen
	if ticket.Category == "" {
		ticket.Category = model.DefaultTicketCategory
	}
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) FindByID(ctx context.Context, id uint) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := r.db.WithContext(ctx).First(&ticket, id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListByUser returns the user's most recent tickets, newest first.
func (r *TicketRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Ticket, error) {
	var tickets []model.Ticket
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&tickets).Error; err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

func (r *TicketRepository) CountByStatus(ctx context.Context, status model.TicketStatus) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Ticket{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tickets by status: %w", err)
	}
	return n, nil
}

// CountCreatedBetween counts tickets created in [from, to).
func (r *TicketRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tickets created: %w", err)
	}
	return n, nil
}
