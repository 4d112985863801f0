package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farellandr/ticketgate/internal/catalog"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/models"
	"github.com/farellandr/ticketgate/internal/monitoring"
)

const DefaultMaxPerType = 10

var (
	ErrEmptySelection    = errors.New("no tickets selected")
	ErrBookingFrozen     = errors.New("booking can no longer be changed")
	ErrUnknownTicketType = errors.New("unknown ticket type")
	ErrInvalidTransition = errors.New("invalid booking transition")
)

type State int

const (
	StateSelecting State = iota
	StateConfirmed
	StatePaid
	StateIssued
)

func (s State) String() string {
	switch s {
	case StateSelecting:
		return "selecting"
	case StateConfirmed:
		return "confirmed"
	case StatePaid:
		return "paid"
	case StateIssued:
		return "issued"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Line struct {
	TicketType string          `json:"ticket_type"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// Booking is one checkout session. Quantities can only change while it is
// Selecting; confirming freezes it.
type Booking struct {
	ID        uuid.UUID
	Event     models.Event
	CreatedAt time.Time

	mu            sync.Mutex
	maxPerType    int
	currency      string
	prices        map[string]decimal.Decimal
	quantities    map[string]int
	state         State
	transactionID string
	paidAt        time.Time
}

func New(event models.Event, maxPerType int) (*Booking, error) {
	if maxPerType <= 0 {
		maxPerType = DefaultMaxPerType
	}

	types, err := catalog.TicketTypes(event)
	if err != nil {
		return nil, fmt.Errorf("failed to price event %s: %w", event.ID, err)
	}

	b := &Booking{
		ID:         uuid.New(),
		Event:      event,
		CreatedAt:  time.Now(),
		maxPerType: maxPerType,
		prices:     make(map[string]decimal.Decimal, len(types)),
		quantities: make(map[string]int, len(types)),
	}
	for _, tt := range types {
		amount, currency, err := helpers.ParsePrice(tt.Price)
		if err != nil {
			return nil, fmt.Errorf("failed to price ticket type %s: %w", tt.Name, err)
		}
		if b.currency == "" {
			b.currency = currency
		}
		b.prices[tt.Name] = amount
		b.quantities[tt.Name] = 0
	}

	return b, nil
}

func (b *Booking) Increment(ticketType string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.setLocked(ticketType, func(current int) int { return current + 1 })
}

func (b *Booking) Decrement(ticketType string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.setLocked(ticketType, func(current int) int { return current - 1 })
}

// SetQuantity sets the quantity of one ticket type, clamped to
// [0, max per type]. It returns the quantity actually stored.
func (b *Booking) SetQuantity(ticketType string, quantity int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.setLocked(ticketType, func(int) int { return quantity })
}

func (b *Booking) setLocked(ticketType string, next func(current int) int) (int, error) {
	if b.state != StateSelecting {
		return 0, fmt.Errorf("%w: booking is %s", ErrBookingFrozen, b.state)
	}

	current, ok := b.quantities[ticketType]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTicketType, ticketType)
	}

	quantity := min(max(next(current), 0), b.maxPerType)
	b.quantities[ticketType] = quantity
	return quantity, nil
}

func (b *Booking) Quantities() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	quantities := make(map[string]int, len(b.quantities))
	for k, v := range b.quantities {
		quantities[k] = v
	}
	return quantities
}

// Lines lists every ticket type in name order with its quantity and subtotal.
func (b *Booking) Lines() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.linesLocked()
}

func (b *Booking) linesLocked() []Line {
	names := make([]string, 0, len(b.quantities))
	for name := range b.quantities {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]Line, 0, len(names))
	for _, name := range names {
		quantity := b.quantities[name]
		lines = append(lines, Line{
			TicketType: name,
			Quantity:   quantity,
			UnitPrice:  b.prices[name],
			Subtotal:   b.prices[name].Mul(decimal.NewFromInt(int64(quantity))),
		})
	}
	return lines
}

func (b *Booking) TotalTickets() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.totalTicketsLocked()
}

func (b *Booking) totalTicketsLocked() int {
	total := 0
	for _, quantity := range b.quantities {
		total += quantity
	}
	return total
}

func (b *Booking) TotalPrice() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.totalPriceLocked()
}

func (b *Booking) totalPriceLocked() decimal.Decimal {
	total := decimal.Zero
	for name, quantity := range b.quantities {
		total = total.Add(b.prices[name].Mul(decimal.NewFromInt(int64(quantity))))
	}
	return total
}

func (b *Booking) Currency() string {
	return b.currency
}

func (b *Booking) FormattedTotal() string {
	return helpers.FormatPrice(b.TotalPrice(), b.currency)
}

func (b *Booking) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

func (b *Booking) TransactionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.transactionID
}

// Confirm freezes the selection. An empty selection is rejected and leaves
// the booking untouched.
func (b *Booking) Confirm() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateSelecting {
		return fmt.Errorf("%w: cannot confirm a %s booking", ErrInvalidTransition, b.state)
	}
	if b.totalTicketsLocked() < 1 {
		return ErrEmptySelection
	}

	b.state = StateConfirmed
	monitoring.RecordBookingTransition(StateConfirmed.String())
	return nil
}

func (b *Booking) markPaid(transactionID string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.state == StateConfirmed:
	case b.state == StatePaid && b.transactionID == transactionID:
		return nil
	default:
		return fmt.Errorf("%w: cannot pay a %s booking", ErrInvalidTransition, b.state)
	}

	b.state = StatePaid
	b.transactionID = transactionID
	b.paidAt = at
	return nil
}

// revertPaid unbinds transactionID from a booking whose tickets were never
// saved, so it can be paid again or abandoned.
func (b *Booking) revertPaid(transactionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StatePaid || b.transactionID != transactionID {
		return
	}
	b.state = StateConfirmed
	b.transactionID = ""
	b.paidAt = time.Time{}
}

func (b *Booking) markIssued() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateIssued
}

// eventDate joins the event's date and time as printed on the ticket.
func (b *Booking) eventDate() string {
	return strings.TrimSpace(b.Event.Date + " " + b.Event.Time)
}
