package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/farellandr/ticketgate/internal/tickets"
)

type MemoryStore struct {
	mu       sync.RWMutex
	batches  map[string][]string
	tickets  map[string]tickets.Ticket
	redeemed map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:  make(map[string][]string),
		tickets:  make(map[string]tickets.Ticket),
		redeemed: make(map[string]time.Time),
	}
}

func (s *MemoryStore) SaveBatch(_ context.Context, transactionID string, issued []tickets.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[transactionID]; ok {
		return fmt.Errorf("%w: %s", ErrBatchExists, transactionID)
	}

	numbers := make([]string, 0, len(issued))
	for _, t := range issued {
		numbers = append(numbers, t.TicketNumber)
		s.tickets[t.TicketNumber] = t
	}
	s.batches[transactionID] = numbers

	return nil
}

func (s *MemoryStore) LoadBatch(_ context.Context, transactionID string) ([]tickets.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	numbers, ok := s.batches[transactionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, transactionID)
	}

	issued := make([]tickets.Ticket, 0, len(numbers))
	for _, number := range numbers {
		issued = append(issued, s.withStatus(s.tickets[number]))
	}
	return issued, nil
}

func (s *MemoryStore) LookupTicket(_ context.Context, ticketNumber string) (tickets.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[ticketNumber]
	if !ok {
		return tickets.Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketNumber)
	}
	return s.withStatus(t), nil
}

func (s *MemoryStore) Redeem(_ context.Context, ticketNumber string, at time.Time) (tickets.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketNumber]
	if !ok {
		return tickets.Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketNumber)
	}
	if _, done := s.redeemed[ticketNumber]; done {
		return s.withStatus(t), fmt.Errorf("%w: %s", ErrAlreadyRedeemed, ticketNumber)
	}

	s.redeemed[ticketNumber] = at
	return s.withStatus(t), nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Batches:  int64(len(s.batches)),
		Tickets:  int64(len(s.tickets)),
		Redeemed: int64(len(s.redeemed)),
	}, nil
}

// withStatus must be called with the lock held.
func (s *MemoryStore) withStatus(t tickets.Ticket) tickets.Ticket {
	if _, ok := s.redeemed[t.TicketNumber]; ok {
		t.Status = tickets.StatusRedeemed
	}
	return t
}
