package booking

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/farellandr/ticketgate/internal/models"
)

var ErrBookingNotFound = errors.New("booking not found")

// Sessions holds the bookings of live checkouts. Completed bookings are
// dropped; only the transaction they were issued under is kept.
type Sessions struct {
	mu         sync.RWMutex
	bookings   map[uuid.UUID]*Booking
	issued     map[uuid.UUID]string
	maxPerType int
}

func NewSessions(maxPerType int) *Sessions {
	return &Sessions{
		bookings:   make(map[uuid.UUID]*Booking),
		issued:     make(map[uuid.UUID]string),
		maxPerType: maxPerType,
	}
}

func (s *Sessions) Create(event models.Event) (*Booking, error) {
	b, err := New(event, s.maxPerType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.bookings[b.ID] = b
	s.mu.Unlock()

	return b, nil
}

func (s *Sessions) Get(id uuid.UUID) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	return b, nil
}

// Abandon drops a booking that has not been paid yet.
func (s *Sessions) Abandon(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	if state := b.State(); state != StateSelecting && state != StateConfirmed {
		return fmt.Errorf("%w: booking is %s", ErrBookingFrozen, state)
	}

	delete(s.bookings, id)
	return nil
}

// Complete drops an issued booking and remembers its transaction. Bookings
// that are not issued are left alone.
func (s *Sessions) Complete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	if state := b.State(); state != StateIssued {
		return fmt.Errorf("%w: cannot complete a %s booking", ErrInvalidTransition, state)
	}

	s.issued[id] = b.TransactionID()
	delete(s.bookings, id)
	return nil
}

// IssuedTransaction returns the transaction a completed booking was issued
// under.
func (s *Sessions) IssuedTransaction(id uuid.UUID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transactionID, ok := s.issued[id]
	return transactionID, ok
}

func (s *Sessions) CountByState() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{
		StateSelecting.String(): 0,
		StateConfirmed.String(): 0,
		StatePaid.String():      0,
	}
	for _, b := range s.bookings {
		counts[b.State().String()]++
	}
	return counts
}
