package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farellandr/ticketgate/internal/tickets"
)

const (
	redisBatchPrefix  = "ticketgate:batch:"
	redisBatchIDs     = "ticketgate:batches"
	redisTickets      = "ticketgate:tickets"
	redisRedemptions  = "ticketgate:redeemed"
	redisTimestampFmt = time.RFC3339Nano
)

type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func batchKey(transactionID string) string {
	return redisBatchPrefix + transactionID
}

func (s *RedisStore) SaveBatch(ctx context.Context, transactionID string, issued []tickets.Ticket) error {
	data, err := json.Marshal(issued)
	if err != nil {
		return fmt.Errorf("failed to marshal batch %s: %w", transactionID, err)
	}

	created, err := s.client.SetNX(ctx, batchKey(transactionID), string(data), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save batch %s: %w", transactionID, err)
	}
	if !created {
		return fmt.Errorf("%w: %s", ErrBatchExists, transactionID)
	}

	numbers := make([]string, 0, len(issued))
	if len(issued) > 0 {
		fields := make([]interface{}, 0, len(issued)*2)
		for _, t := range issued {
			ticketData, err := json.Marshal(t)
			if err != nil {
				return s.rollback(ctx, transactionID, nil, fmt.Errorf("failed to marshal ticket %s: %w", t.TicketNumber, err))
			}
			fields = append(fields, t.TicketNumber, string(ticketData))
			numbers = append(numbers, t.TicketNumber)
		}
		if err := s.client.HSet(ctx, redisTickets, fields...).Err(); err != nil {
			return s.rollback(ctx, transactionID, nil, fmt.Errorf("failed to index tickets of batch %s: %w", transactionID, err))
		}
	}

	if err := s.client.SAdd(ctx, redisBatchIDs, transactionID).Err(); err != nil {
		return s.rollback(ctx, transactionID, numbers, fmt.Errorf("failed to register batch %s: %w", transactionID, err))
	}

	return nil
}

// rollback removes a partly written batch so the transaction can be saved
// again, and returns cause joined with any cleanup failure.
func (s *RedisStore) rollback(ctx context.Context, transactionID string, ticketNumbers []string, cause error) error {
	var errs []error
	if len(ticketNumbers) > 0 {
		if err := s.client.HDel(ctx, redisTickets, ticketNumbers...).Err(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unindex tickets of batch %s: %w", transactionID, err))
		}
	}
	if err := s.client.Del(ctx, batchKey(transactionID)).Err(); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove batch %s: %w", transactionID, err))
	}
	return errors.Join(append([]error{cause}, errs...)...)
}

func (s *RedisStore) LoadBatch(ctx context.Context, transactionID string) ([]tickets.Ticket, error) {
	data, err := s.client.Get(ctx, batchKey(transactionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, transactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", transactionID, err)
	}

	var issued []tickets.Ticket
	if err := json.Unmarshal([]byte(data), &issued); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch %s: %w", transactionID, err)
	}
	if len(issued) == 0 {
		return issued, nil
	}

	numbers := make([]string, len(issued))
	for i, t := range issued {
		numbers[i] = t.TicketNumber
	}
	redeemed, err := s.client.HMGet(ctx, redisRedemptions, numbers...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load redemptions of batch %s: %w", transactionID, err)
	}
	for i, v := range redeemed {
		if v != nil {
			issued[i].Status = tickets.StatusRedeemed
		}
	}

	return issued, nil
}

func (s *RedisStore) LookupTicket(ctx context.Context, ticketNumber string) (tickets.Ticket, error) {
	t, err := s.ticket(ctx, ticketNumber)
	if err != nil {
		return tickets.Ticket{}, err
	}

	_, err = s.client.HGet(ctx, redisRedemptions, ticketNumber).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return tickets.Ticket{}, fmt.Errorf("failed to load redemption of %s: %w", ticketNumber, err)
	default:
		t.Status = tickets.StatusRedeemed
	}

	return t, nil
}

func (s *RedisStore) Redeem(ctx context.Context, ticketNumber string, at time.Time) (tickets.Ticket, error) {
	t, err := s.ticket(ctx, ticketNumber)
	if err != nil {
		return tickets.Ticket{}, err
	}

	set, err := s.client.HSetNX(ctx, redisRedemptions, ticketNumber, at.UTC().Format(redisTimestampFmt)).Result()
	if err != nil {
		return tickets.Ticket{}, fmt.Errorf("failed to redeem %s: %w", ticketNumber, err)
	}

	t.Status = tickets.StatusRedeemed
	if !set {
		return t, fmt.Errorf("%w: %s", ErrAlreadyRedeemed, ticketNumber)
	}
	return t, nil
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	batches, err := s.client.SCard(ctx, redisBatchIDs).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count batches: %w", err)
	}
	issued, err := s.client.HLen(ctx, redisTickets).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count tickets: %w", err)
	}
	redeemed, err := s.client.HLen(ctx, redisRedemptions).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count redemptions: %w", err)
	}

	return Stats{
		Batches:  batches,
		Tickets:  issued,
		Redeemed: redeemed,
	}, nil
}

func (s *RedisStore) ticket(ctx context.Context, ticketNumber string) (tickets.Ticket, error) {
	data, err := s.client.HGet(ctx, redisTickets, ticketNumber).Result()
	if errors.Is(err, redis.Nil) {
		return tickets.Ticket{}, fmt.Errorf("%w: %s", ErrTicketNotFound, ticketNumber)
	}
	if err != nil {
		return tickets.Ticket{}, fmt.Errorf("failed to load ticket %s: %w", ticketNumber, err)
	}

	var t tickets.Ticket
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return tickets.Ticket{}, fmt.Errorf("failed to unmarshal ticket %s: %w", ticketNumber, err)
	}
	return t, nil
}
