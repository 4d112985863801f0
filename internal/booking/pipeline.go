package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/farellandr/ticketgate/internal/monitoring"
	"github.com/farellandr/ticketgate/internal/storage"
	"github.com/farellandr/ticketgate/internal/tickets"
)

var (
	ErrMissingTransactionID = errors.New("payment has no transaction id")
	ErrPaymentMismatch      = errors.New("payment does not match booking")
)

// PaymentSuccess is the already-resolved signal from the payment provider.
// Zero-valued optional fields are not checked.
type PaymentSuccess struct {
	TransactionID    string
	EventTitle       string
	TotalTicketCount int
	TotalPrice       decimal.Decimal
	PaymentDate      time.Time
}

type IssueFailure struct {
	TicketNumber string
	Err          error
}

type Batch struct {
	TransactionID string
	Tickets       []tickets.Ticket
	Artifacts     []*tickets.Artifact
	Failures      []IssueFailure
	// Replayed is set when the transaction had already been issued and
	// nothing new was minted.
	Replayed bool
}

type ArtifactBuilder interface {
	Build(ctx context.Context, t tickets.Ticket) (*tickets.Artifact, error)
}

// Pipeline turns paid bookings into ticket batches. Issuance is keyed by
// transaction id: a transaction is minted at most once.
type Pipeline struct {
	builder ArtifactBuilder
	store   storage.Store
	logger  zerolog.Logger

	mu sync.Mutex
}

func NewPipeline(builder ArtifactBuilder, store storage.Store, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		builder: builder,
		store:   store,
		logger:  logger,
	}
}

func (p *Pipeline) Issue(ctx context.Context, b *Booking, payment PaymentSuccess) (*Batch, error) {
	transactionID := strings.TrimSpace(payment.TransactionID)
	if transactionID == "" {
		return nil, ErrMissingTransactionID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	logger := p.logger.With().Str("transaction_id", transactionID).Str("booking_id", b.ID.String()).Logger()

	existing, err := p.store.LoadBatch(ctx, transactionID)
	if err == nil {
		if err := owns(b, transactionID, existing); err != nil {
			logger.Warn().Err(err).Msg("transaction already issued to another booking")
			return nil, err
		}
		logger.Info().Int("tickets", len(existing)).Msg("transaction already issued, returning stored batch")
		b.markIssued()
		return p.replay(ctx, transactionID, existing)
	}
	if !errors.Is(err, storage.ErrBatchNotFound) {
		return nil, err
	}

	if err := checkPayment(b, payment); err != nil {
		return nil, err
	}

	paidAt := payment.PaymentDate
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	alreadyPaid := b.State() == StatePaid
	if err := b.markPaid(transactionID, paidAt); err != nil {
		return nil, err
	}
	if !alreadyPaid {
		monitoring.RecordBookingTransition(StatePaid.String())
	}

	batch := &Batch{
		TransactionID: transactionID,
		Tickets:       mint(b, transactionID),
	}
	if err := p.buildArtifacts(ctx, batch); err != nil {
		// nothing was saved; a payment that bound the booking in this call
		// is released again
		if !alreadyPaid {
			b.revertPaid(transactionID)
		}
		return nil, err
	}

	if err := p.store.SaveBatch(ctx, transactionID, batch.Tickets); err != nil {
		if errors.Is(err, storage.ErrBatchExists) {
			stored, loadErr := p.store.LoadBatch(ctx, transactionID)
			if loadErr != nil {
				return nil, loadErr
			}
			if err := owns(b, transactionID, stored); err != nil {
				b.revertPaid(transactionID)
				return nil, err
			}
			b.markIssued()
			return p.replay(ctx, transactionID, stored)
		}
		return nil, fmt.Errorf("failed to store batch: %w", err)
	}

	b.markIssued()
	monitoring.RecordBookingTransition(StateIssued.String())
	monitoring.RecordTicketsIssued(b.Event.Title, len(batch.Tickets))
	monitoring.RecordBatch("issued")

	logger.Info().
		Int("tickets", len(batch.Tickets)).
		Int("failures", len(batch.Failures)).
		Msg("tickets issued")

	return batch, nil
}

func checkPayment(b *Booking, payment PaymentSuccess) error {
	if payment.EventTitle != "" && payment.EventTitle != b.Event.Title {
		return fmt.Errorf("%w: paid for %q, booked %q", ErrPaymentMismatch, payment.EventTitle, b.Event.Title)
	}
	if total := b.TotalTickets(); payment.TotalTicketCount != 0 && payment.TotalTicketCount != total {
		return fmt.Errorf("%w: paid for %d tickets, booked %d", ErrPaymentMismatch, payment.TotalTicketCount, total)
	}
	if total := b.TotalPrice(); !payment.TotalPrice.IsZero() && !payment.TotalPrice.Equal(total) {
		return fmt.Errorf("%w: paid %s, booking totals %s", ErrPaymentMismatch, payment.TotalPrice, total)
	}
	return nil
}

// owns reports whether a stored batch was issued for b: the booking must be
// bound to the transaction and the batch must hold exactly its tickets.
func owns(b *Booking, transactionID string, stored []tickets.Ticket) error {
	if bound := b.TransactionID(); bound != transactionID {
		return fmt.Errorf("%w: transaction %s was issued to another booking", ErrPaymentMismatch, transactionID)
	}
	if len(stored) != b.TotalTickets() {
		return fmt.Errorf("%w: transaction %s holds %d tickets, booked %d", ErrPaymentMismatch, transactionID, len(stored), b.TotalTickets())
	}
	for _, t := range stored {
		if t.EventTitle != b.Event.Title {
			return fmt.Errorf("%w: transaction %s was issued for %q", ErrPaymentMismatch, transactionID, t.EventTitle)
		}
	}
	return nil
}

// mint creates one ticket per booked unit, ticket types in name order.
func mint(b *Booking, transactionID string) []tickets.Ticket {
	var minted []tickets.Ticket
	seq := 0
	for _, line := range b.Lines() {
		for i := 0; i < line.Quantity; i++ {
			seq++
			minted = append(minted, tickets.Ticket{
				TicketNumber:  tickets.TicketNumber(transactionID, seq),
				EventTitle:    b.Event.Title,
				EventDate:     b.eventDate(),
				EventLocation: b.Event.Location,
				TicketType:    line.TicketType,
				Quantity:      1,
				TransactionID: transactionID,
				Status:        tickets.StatusConfirmed,
			})
		}
	}
	return minted
}

// buildArtifacts renders every ticket. Invalid ticket data only drops that
// ticket's artifact; anything else aborts.
func (p *Pipeline) buildArtifacts(ctx context.Context, batch *Batch) error {
	for _, t := range batch.Tickets {
		artifact, err := p.builder.Build(ctx, t)
		if err != nil {
			if !errors.Is(err, tickets.ErrInvalidTicketData) {
				return err
			}
			p.logger.Warn().Err(err).Str("ticket_number", t.TicketNumber).Msg("ticket artifact not built")
			monitoring.RecordArtifactFailure()
			batch.Failures = append(batch.Failures, IssueFailure{TicketNumber: t.TicketNumber, Err: err})
			continue
		}
		batch.Artifacts = append(batch.Artifacts, artifact)
	}
	return nil
}

func (p *Pipeline) replay(ctx context.Context, transactionID string, stored []tickets.Ticket) (*Batch, error) {
	batch := &Batch{
		TransactionID: transactionID,
		Tickets:       stored,
		Replayed:      true,
	}
	if err := p.buildArtifacts(ctx, batch); err != nil {
		return nil, err
	}
	monitoring.RecordBatch("replayed")
	return batch, nil
}

// Batch returns the stored batch of a transaction with freshly built
// artifacts.
func (p *Pipeline) Batch(ctx context.Context, transactionID string) (*Batch, error) {
	stored, err := p.store.LoadBatch(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	batch := &Batch{
		TransactionID: transactionID,
		Tickets:       stored,
	}
	if err := p.buildArtifacts(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}
