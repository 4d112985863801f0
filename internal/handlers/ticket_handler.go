package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
	"github.com/farellandr/ticketgate/internal/state"
	"github.com/farellandr/ticketgate/internal/storage"
	"github.com/farellandr/ticketgate/internal/tickets"
)

func ListTransactionTickets(c *gin.Context) {
	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	batch, err := st.Pipeline.Batch(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		if errors.Is(err, storage.ErrBatchNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "No tickets issued for this transaction.")
			return
		}
		st.Logger.Error().Err(err).Msg("failed to load issued batch")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load tickets.")
		return
	}

	c.JSON(http.StatusOK, newBatchResponse(batch))
}

// buildTicketArtifact renders an issued ticket and writes the error
// response itself.
func buildTicketArtifact(c *gin.Context, st *state.State) (*tickets.Artifact, bool) {
	ticket, err := st.Store.LookupTicket(c.Request.Context(), c.Param("ticketNumber"))
	if err != nil {
		if errors.Is(err, storage.ErrTicketNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return nil, false
		}
		st.Logger.Error().Err(err).Msg("failed to look up ticket")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load ticket.")
		return nil, false
	}

	artifact, err := st.Builder.Build(c.Request.Context(), ticket)
	if err != nil {
		if errors.Is(err, tickets.ErrInvalidTicketData) {
			helpers.RespondWithError(c, http.StatusUnprocessableEntity, "Ticket data is incomplete.")
			return nil, false
		}
		st.Logger.Error().Err(err).Str("ticket_number", ticket.TicketNumber).Msg("failed to build ticket")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to build ticket.")
		return nil, false
	}
	return artifact, true
}

func DownloadTicket(c *gin.Context) {
	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	artifact, ok := buildTicketArtifact(c, st)
	if !ok {
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, "text/html; charset=utf-8", artifact.Document)
}

func TicketQR(c *gin.Context) {
	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	artifact, ok := buildTicketArtifact(c, st)
	if !ok {
		return
	}

	if artifact.QR.Degraded {
		c.Header("X-QR-Degraded", "true")
	}
	c.Data(http.StatusOK, "image/png", artifact.QR.PNG)
}
