package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IssuedTicket is the ledger row for one issued ticket.
type IssuedTicket struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	TicketNumber  string    `gorm:"not null;uniqueIndex"`
	TransactionID string    `gorm:"not null;index"`
	Ordinal       int       `gorm:"not null"`
	EventTitle    string    `gorm:"not null"`
	EventDate     string
	EventLocation string
	TicketType    string `gorm:"not null"`
	Quantity      int    `gorm:"not null;default:1"`
	Status        string `gorm:"not null;default:'confirmed'"`
	RedeemedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ticket *IssuedTicket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	return
}
