package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/tickets"
)

// PostgresStore keeps issued tickets in the issued_tickets table. Callers
// open the connection with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveBatch(ctx context.Context, transactionID string, issued []tickets.Ticket) error {
	rows := make([]models.IssuedTicket, 0, len(issued))
	for i, t := range issued {
		rows = append(rows, models.IssuedTicket{
			TicketNumber:  t.TicketNumber,
			TransactionID: transactionID,
			Ordinal:       i + 1,
			EventTitle:    t.EventTitle,
			EventDate:     t.EventDate,
			EventLocation: t.EventLocation,
			TicketType:    t.TicketType,
			Quantity:      t.Quantity,
			Status:        t.Status,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.IssuedTicket{}).Where("transaction_id = ?", transactionID).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check batch %s: %w", transactionID, err)
		}
		if existing > 0 {
			return fmt.Errorf("%w: %s", ErrBatchExists, transactionID)
		}
		if len(rows) == 0 {
			return nil
		}

		if err := tx.Create(&rows).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", ErrBatchExists, transactionID)
			}
			return fmt.Errorf("failed to save batch %s: %w", transactionID, err)
		}
		return nil
	})
}

func (s *PostgresStore) LoadBatch(ctx context.Context, transactionID string) ([]tickets.Ticket, error) {
	var rows []models.IssuedTicket
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("ordinal ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", transactionID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, transactionID)
	}

	issued := make([]tickets.Ticket, 0, len(rows))
	for _, row := range rows {
		issued = append(issued, rowToTicket(row))
	}
	return issued, nil
}

func (s *PostgresStore) LookupTicket(ctx context.Context, ticketNumber string) (tickets.Ticket, error) {
	var row models.IssuedTicket
	if err := s.db.WithContext(ctx).Where("ticket_number = ?", ticketNumber).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tickets.Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketNumber)
		}
		return tickets.Ticket{}, fmt.Errorf("failed to load ticket %s: %w", ticketNumber, err)
	}
	return rowToTicket(row), nil
}

func (s *PostgresStore) Redeem(ctx context.Context, ticketNumber string, at time.Time) (tickets.Ticket, error) {
	result := s.db.WithContext(ctx).
		Model(&models.IssuedTicket{}).
		Where("ticket_number = ? AND redeemed_at IS NULL", ticketNumber).
		Updates(map[string]interface{}{
			"redeemed_at": at,
			"status":      tickets.StatusRedeemed,
		})
	if result.Error != nil {
		return tickets.Ticket{}, fmt.Errorf("failed to redeem %s: %w", ticketNumber, result.Error)
	}

	t, err := s.LookupTicket(ctx, ticketNumber)
	if err != nil {
		return tickets.Ticket{}, err
	}
	if result.RowsAffected == 0 {
		return t, fmt.Errorf("%w: %s", ErrAlreadyRedeemed, ticketNumber)
	}
	return t, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	db := s.db.WithContext(ctx)

	if err := db.Model(&models.IssuedTicket{}).Distinct("transaction_id").Count(&stats.Batches).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count batches: %w", err)
	}
	if err := db.Model(&models.IssuedTicket{}).Count(&stats.Tickets).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count tickets: %w", err)
	}
	if err := db.Model(&models.IssuedTicket{}).Where("redeemed_at IS NOT NULL").Count(&stats.Redeemed).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count redemptions: %w", err)
	}

	return stats, nil
}

func rowToTicket(row models.IssuedTicket) tickets.Ticket {
	status := row.Status
	if row.RedeemedAt != nil {
		status = tickets.StatusRedeemed
	}
	return tickets.Ticket{
		TicketNumber:  row.TicketNumber,
		EventTitle:    row.EventTitle,
		EventDate:     row.EventDate,
		EventLocation: row.EventLocation,
		TicketType:    row.TicketType,
		Quantity:      row.Quantity,
		TransactionID: row.TransactionID,
		Status:        status,
	}
}
