package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farellandr/ticketgate/internal/booking"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
	"github.com/farellandr/ticketgate/internal/tickets"
)

type PaymentSuccessRequest struct {
	TransactionID    string     `json:"transaction_id" binding:"required"`
	EventTitle       string     `json:"event_title"`
	TotalTicketCount int        `json:"total_ticket_count" binding:"min=0"`
	TotalPrice       string     `json:"total_price"`
	PaymentDate      *time.Time `json:"payment_date"`
}

type issuedTicketResponse struct {
	tickets.Ticket
	QRCode      string `json:"qr_code,omitempty"`
	QRDegraded  bool   `json:"qr_degraded"`
	Filename    string `json:"filename,omitempty"`
	DownloadURL string `json:"download_url"`
	QRImageURL  string `json:"qr_image_url"`
}

type issueFailureResponse struct {
	TicketNumber string `json:"ticket_number"`
	Message      string `json:"message"`
}

type batchResponse struct {
	TransactionID string                 `json:"transaction_id"`
	Replayed      bool                   `json:"replayed"`
	Tickets       []issuedTicketResponse `json:"tickets"`
	Failures      []issueFailureResponse `json:"failures"`
}

func newBatchResponse(batch *booking.Batch) batchResponse {
	artifacts := make(map[string]*tickets.Artifact, len(batch.Artifacts))
	for _, a := range batch.Artifacts {
		artifacts[a.Ticket.TicketNumber] = a
	}

	res := batchResponse{
		TransactionID: batch.TransactionID,
		Replayed:      batch.Replayed,
		Tickets:       make([]issuedTicketResponse, 0, len(batch.Tickets)),
		Failures:      make([]issueFailureResponse, 0, len(batch.Failures)),
	}
	for _, t := range batch.Tickets {
		path := "/v1/tickets/" + url.PathEscape(t.TicketNumber)
		item := issuedTicketResponse{
			Ticket:      t,
			DownloadURL: path + "/download",
			QRImageURL:  path + "/qr.png",
		}
		if a, ok := artifacts[t.TicketNumber]; ok {
			item.QRCode = a.QR.DataURL
			item.QRDegraded = a.QR.Degraded
			item.Filename = a.Filename
		}
		res.Tickets = append(res.Tickets, item)
	}
	for _, f := range batch.Failures {
		res.Failures = append(res.Failures, issueFailureResponse{
			TicketNumber: f.TicketNumber,
			Message:      f.Err.Error(),
		})
	}
	return res
}

// PaymentSucceeded receives the resolved payment signal for a booking and
// issues its tickets. Repeating the call for the same transaction returns
// the tickets issued the first time.
func PaymentSucceeded(c *gin.Context) {
	var req PaymentSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	payment := booking.PaymentSuccess{
		TransactionID:    req.TransactionID,
		EventTitle:       req.EventTitle,
		TotalTicketCount: req.TotalTicketCount,
		TotalPrice:       decimal.Zero,
	}
	if req.TotalPrice != "" {
		price, _, err := helpers.ParsePrice(req.TotalPrice)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid total price.")
			return
		}
		payment.TotalPrice = price
	}
	if req.PaymentDate != nil {
		payment.PaymentDate = *req.PaymentDate
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid booking ID.")
		return
	}

	b, err := st.Sessions.Get(bookingID)
	if err != nil {
		// The booking is gone once issued; a repeated signal for its own
		// transaction is answered from the store.
		issuedUnder, ok := st.Sessions.IssuedTransaction(bookingID)
		if !ok {
			helpers.RespondWithError(c, http.StatusNotFound, "Booking not found.")
			return
		}
		if issuedUnder != strings.TrimSpace(req.TransactionID) {
			helpers.RespondWithError(c, http.StatusConflict, "Payment does not match the booking.")
			return
		}

		batch, batchErr := st.Pipeline.Batch(c.Request.Context(), issuedUnder)
		if batchErr != nil {
			st.Logger.Error().Err(batchErr).Str("transaction_id", issuedUnder).Msg("failed to load issued batch")
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load issued tickets.")
			return
		}
		batch.Replayed = true
		c.JSON(http.StatusOK, newBatchResponse(batch))
		return
	}

	batch, err := st.Pipeline.Issue(c.Request.Context(), b, payment)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrMissingTransactionID):
			helpers.RespondWithError(c, http.StatusBadRequest, "Transaction ID is required.")
		case errors.Is(err, booking.ErrPaymentMismatch):
			helpers.RespondWithError(c, http.StatusConflict, "Payment does not match the booking.")
		case errors.Is(err, booking.ErrInvalidTransition):
			helpers.RespondWithError(c, http.StatusConflict, "Booking is not ready for payment.")
		default:
			st.Logger.Error().Err(err).Str("transaction_id", req.TransactionID).Msg("ticket issuance failed")
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to issue tickets.")
		}
		return
	}

	if b.State() == booking.StateIssued {
		if err := st.Sessions.Complete(b.ID); err != nil {
			st.Logger.Warn().Err(err).Str("booking_id", b.ID.String()).Msg("failed to complete booking")
		}
	}

	status := http.StatusCreated
	if batch.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, newBatchResponse(batch))
}
