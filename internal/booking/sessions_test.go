package booking

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farellandr/ticketgate/internal/storage"
)

func TestSessions_Lifecycle(t *testing.T) {
	sessions := NewSessions(DefaultMaxPerType)

	b, err := sessions.Create(jazzNight())
	require.NoError(t, err)

	got, err := sessions.Get(b.ID)
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = sessions.Get(uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)

	assert.Equal(t, map[string]int{"selecting": 1, "confirmed": 0, "paid": 0}, sessions.CountByState())

	require.NoError(t, sessions.Abandon(b.ID))
	_, err = sessions.Get(b.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.ErrorIs(t, sessions.Abandon(b.ID), ErrBookingNotFound)
}

func TestSessions_CannotAbandonPaidBooking(t *testing.T) {
	sessions := NewSessions(DefaultMaxPerType)
	pipeline := newPipeline(&failingStore{Store: storage.NewMemoryStore(), saveErr: assert.AnError})

	b, err := sessions.Create(jazzNight())
	require.NoError(t, err)
	_, err = b.Increment("general")
	require.NoError(t, err)
	require.NoError(t, b.Confirm())

	_, err = pipeline.Issue(context.Background(), b, PaymentSuccess{TransactionID: "TXN1"})
	require.Error(t, err)
	require.Equal(t, StatePaid, b.State())

	assert.ErrorIs(t, sessions.Abandon(b.ID), ErrBookingFrozen)

	assert.ErrorIs(t, sessions.Complete(b.ID), ErrInvalidTransition)
	_, err = sessions.Get(b.ID)
	require.NoError(t, err)
}

func TestSessions_CompleteRemembersTransaction(t *testing.T) {
	sessions := NewSessions(DefaultMaxPerType)
	pipeline := newPipeline(storage.NewMemoryStore())

	b, err := sessions.Create(jazzNight())
	require.NoError(t, err)
	_, err = b.SetQuantity("vip", 2)
	require.NoError(t, err)
	require.NoError(t, b.Confirm())

	assert.ErrorIs(t, sessions.Complete(b.ID), ErrInvalidTransition)

	_, err = pipeline.Issue(context.Background(), b, PaymentSuccess{TransactionID: "TXN1"})
	require.NoError(t, err)
	require.NoError(t, sessions.Complete(b.ID))

	_, err = sessions.Get(b.ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	transactionID, ok := sessions.IssuedTransaction(b.ID)
	assert.True(t, ok)
	assert.Equal(t, "TXN1", transactionID)

	_, ok = sessions.IssuedTransaction(uuid.New())
	assert.False(t, ok)
	assert.ErrorIs(t, sessions.Complete(uuid.New()), ErrBookingNotFound)
}
