package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/farellandr/ticketgate/internal/booking"
	"github.com/farellandr/ticketgate/internal/catalog"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
	"github.com/farellandr/ticketgate/internal/state"
)

type BookingRequest struct {
	EventID string `json:"event_id" binding:"required"`
}

type SelectionRequest struct {
	TicketType string `json:"ticket_type" binding:"required"`
	Action     string `json:"action" binding:"required,oneof=increment decrement set"`
	Quantity   int    `json:"quantity"`
}

type bookingResponse struct {
	ID            uuid.UUID      `json:"id"`
	EventID       string         `json:"event_id"`
	EventTitle    string         `json:"event_title"`
	State         string         `json:"state"`
	Lines         []booking.Line `json:"lines"`
	TotalTickets  int            `json:"total_tickets"`
	TotalPrice    string         `json:"total_price"`
	TransactionID string         `json:"transaction_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newBookingResponse(b *booking.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		EventID:       b.Event.ID,
		EventTitle:    b.Event.Title,
		State:         b.State().String(),
		Lines:         b.Lines(),
		TotalTickets:  b.TotalTickets(),
		TotalPrice:    b.FormattedTotal(),
		TransactionID: b.TransactionID(),
		CreatedAt:     b.CreatedAt,
	}
}

// lookupBooking resolves the :id param and writes the error response itself.
func lookupBooking(c *gin.Context, st *state.State) (*booking.Booking, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID.")
		return nil, false
	}

	b, err := st.Sessions.Get(id)
	if err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
		return nil, false
	}
	return b, true
}

func CreateBooking(c *gin.Context) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	event, err := st.Catalog.Get(req.EventID)
	if err != nil {
		if errors.Is(err, catalog.ErrEventNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	b, err := st.Sessions.Create(event)
	if err != nil {
		st.Logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to start booking")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to start booking.")
		return
	}

	c.JSON(http.StatusCreated, newBookingResponse(b))
}

func GetBooking(c *gin.Context) {
	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	b, ok := lookupBooking(c, st)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, newBookingResponse(b))
}

func UpdateSelection(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	b, ok := lookupBooking(c, st)
	if !ok {
		return
	}

	var err error
	switch req.Action {
	case "increment":
		_, err = b.Increment(req.TicketType)
	case "decrement":
		_, err = b.Decrement(req.TicketType)
	case "set":
		_, err = b.SetQuantity(req.TicketType, req.Quantity)
	}
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrUnknownTicketType):
			helpers.RespondWithError(c, http.StatusBadRequest, "Unknown ticket type.")
		case errors.Is(err, booking.ErrBookingFrozen):
			helpers.RespondWithError(c, http.StatusConflict, "Booking can no longer be changed.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update selection.")
		}
		return
	}

	c.JSON(http.StatusOK, newBookingResponse(b))
}

func ConfirmBooking(c *gin.Context) {
	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	b, ok := lookupBooking(c, st)
	if !ok {
		return
	}

	if err := b.Confirm(); err != nil {
		switch {
		case errors.Is(err, booking.ErrEmptySelection):
			helpers.RespondWithError(c, http.StatusUnprocessableEntity, "Select at least one ticket before confirming.")
		case errors.Is(err, booking.ErrInvalidTransition):
			helpers.RespondWithError(c, http.StatusConflict, "Booking cannot be confirmed in its current state.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to confirm booking.")
		}
		return
	}

	c.JSON(http.StatusOK, newBookingResponse(b))
}

func AbandonBooking(c *gin.Context) {
	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID.")
		return
	}

	if err := st.Sessions.Abandon(id); err != nil {
		switch {
		case errors.Is(err, booking.ErrBookingNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
		case errors.Is(err, booking.ErrBookingFrozen):
			helpers.RespondWithError(c, http.StatusConflict, "Paid bookings cannot be abandoned.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to abandon booking.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking abandoned."})
}
