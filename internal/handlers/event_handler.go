package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/ticketgate/internal/catalog"
	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
)

func GetEvent(c *gin.Context) {
	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	event, err := st.Catalog.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrEventNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	ticketTypes, err := catalog.TicketTypes(event)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error pricing event.")
		return
	}
	event.TicketTypes = ticketTypes

	c.JSON(http.StatusOK, event)
}

func ListEvents(c *gin.Context) {
	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "10")

	pageNum, err := helpers.StringToInt(page)
	if err != nil || pageNum < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return
	}

	limitNum, err := helpers.StringToInt(limit)
	if err != nil || limitNum < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	filter := catalog.Filter{Category: c.Query("category")}
	if featured := c.Query("featured"); featured != "" {
		value, err := strconv.ParseBool(featured)
		if err != nil {
			helpers.RespondWithError(c, http.StatusBadRequest, "Invalid featured flag.")
			return
		}
		filter.Featured = &value
	}

	events := st.Catalog.List(filter)
	totalCount := len(events)

	offset := (pageNum - 1) * limitNum
	if offset > totalCount {
		offset = totalCount
	}
	end := min(offset+limitNum, totalCount)

	c.JSON(http.StatusOK, gin.H{
		"events":      events[offset:end],
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + limitNum - 1) / limitNum,
	})
}
