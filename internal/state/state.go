package state

import (
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/booking"
	"github.com/farellandr/ticketgate/internal/catalog"
	"github.com/farellandr/ticketgate/internal/storage"
	"github.com/farellandr/ticketgate/internal/tickets"
)

// State is the application state shared by every request. The catalog is
// read-only; sessions and the store guard their own data.
type State struct {
	Catalog  *catalog.Catalog
	Sessions *booking.Sessions
	Pipeline *booking.Pipeline
	Builder  *tickets.Builder
	Verifier *tickets.Verifier
	Store    storage.Store

	// DB is nil when no database is configured; organizer accounts are
	// unavailable then.
	DB        *gorm.DB
	JWTSecret string

	// PaymentSecret signs payment callbacks; empty accepts unsigned ones.
	PaymentSecret string
	Logger        zerolog.Logger
}
