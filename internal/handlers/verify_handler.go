package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
	"github.com/farellandr/ticketgate/internal/monitoring"
	"github.com/farellandr/ticketgate/internal/storage"
	"github.com/farellandr/ticketgate/internal/tickets"
)

type VerifyRequest struct {
	QRData string `json:"qr_data" binding:"required"`
}

type verificationResponse struct {
	Valid         bool       `json:"valid"`
	Reason        string     `json:"reason,omitempty"`
	TicketNumber  string     `json:"ticket_number,omitempty"`
	EventTitle    string     `json:"event_title,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
}

func newVerificationResponse(result tickets.Result) verificationResponse {
	switch r := result.(type) {
	case tickets.Valid:
		return verificationResponse{
			Valid:         true,
			TicketNumber:  r.TicketNumber,
			EventTitle:    r.EventTitle,
			TransactionID: r.TransactionID,
			VerifiedAt:    &r.VerifiedAt,
		}
	case tickets.Invalid:
		return verificationResponse{Reason: string(r.Reason)}
	}
	return verificationResponse{Reason: result.Outcome()}
}

// VerifyTicket checks scanned QR text. Invalid tickets are a normal answer,
// not a request error.
func VerifyTicket(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	c.JSON(http.StatusOK, newVerificationResponse(st.Verifier.Verify(req.QRData)))
}

func VerifyTicketImage(c *gin.Context) {
	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "QR image file is required.")
		return
	}

	data, err := helpers.ReadUploadedImage(fileHeader, helpers.DefaultScanUploadConfig)
	if err != nil {
		if errors.Is(err, helpers.ErrInvalidUpload) {
			helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to read uploaded file.")
		return
	}

	c.JSON(http.StatusOK, newVerificationResponse(st.Verifier.VerifyImage(data)))
}

// CheckInTicket admits a ticket at the door: the payload must verify, match
// an issued ticket, and not have been redeemed before.
func CheckInTicket(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	valid, ok := st.Verifier.Verify(req.QRData).(tickets.Valid)
	if !ok {
		monitoring.RecordCheckIn("rejected")
		helpers.RespondWithError(c, http.StatusUnprocessableEntity, "Ticket QR code is not valid.")
		return
	}

	ctx := c.Request.Context()
	issued, err := st.Store.LookupTicket(ctx, valid.TicketNumber)
	if err != nil {
		if errors.Is(err, storage.ErrTicketNotFound) {
			monitoring.RecordCheckIn("unknown_ticket")
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket was not issued here.")
			return
		}
		st.Logger.Error().Err(err).Msg("failed to look up ticket")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to look up ticket.")
		return
	}

	if issued.TransactionID != valid.TransactionID || issued.EventTitle != valid.EventTitle {
		monitoring.RecordCheckIn("mismatch")
		helpers.RespondWithError(c, http.StatusUnprocessableEntity, "Ticket details do not match the issued ticket.")
		return
	}

	redeemed, err := st.Store.Redeem(ctx, valid.TicketNumber, valid.VerifiedAt)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyRedeemed) {
			monitoring.RecordCheckIn("already_redeemed")
			helpers.RespondWithError(c, http.StatusConflict, "Ticket has already been used.")
			return
		}
		st.Logger.Error().Err(err).Str("ticket_number", valid.TicketNumber).Msg("failed to redeem ticket")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to check in ticket.")
		return
	}

	monitoring.RecordCheckIn("admitted")
	st.Logger.Info().Str("ticket_number", redeemed.TicketNumber).Msg("ticket checked in")

	c.JSON(http.StatusOK, gin.H{
		"message":     "Ticket checked in.",
		"ticket":      redeemed,
		"verified_at": valid.VerifiedAt,
	})
}
