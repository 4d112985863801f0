package storage

import (
	"context"
	"errors"
	"time"

	"github.com/farellandr/ticketgate/internal/tickets"
)

var (
	ErrBatchNotFound   = errors.New("issuance batch not found")
	ErrBatchExists     = errors.New("issuance batch already exists")
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrAlreadyRedeemed = errors.New("ticket already redeemed")
)

type Stats struct {
	Batches  int64 `json:"batches"`
	Tickets  int64 `json:"tickets"`
	Redeemed int64 `json:"redeemed"`
}

// Store keeps issued ticket batches keyed by transaction id, plus the
// redemption state used at the door.
type Store interface {
	// SaveBatch stores a batch once. A second save for the same
	// transaction fails with ErrBatchExists.
	SaveBatch(ctx context.Context, transactionID string, issued []tickets.Ticket) error
	LoadBatch(ctx context.Context, transactionID string) ([]tickets.Ticket, error)
	LookupTicket(ctx context.Context, ticketNumber string) (tickets.Ticket, error)
	// Redeem marks a ticket as used. Redeeming twice returns the ticket
	// together with ErrAlreadyRedeemed.
	Redeem(ctx context.Context, ticketNumber string, at time.Time) (tickets.Ticket, error)
	Stats(ctx context.Context) (Stats, error)
}
