package model

import "time"

type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusResolved TicketStatus = "resolved"
)

// DefaultTicketCategory is used when a ticket is created without a category.
const DefaultTicketCategory = "general"

// Ticket is a support request raised by a user. UserID is not a foreign key.
type Ticket struct {
	ID         uint  `gorm:"primaryKey"`
	UserID     int64 `gorm:"index"`
	Message    string
	Status     TicketStatus `gorm:"default:open;index"`
	CreatedAt  time.Time    `gorm:"index"`
	ResolvedAt *time.Time
	Category   string `gorm:"default:general"`
}
