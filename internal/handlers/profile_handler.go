package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/middleware"
	"github.com/farellandr/ticketgate/internal/models"
)

func GetProfile(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	st := middleware.GetState(c)
	if st == nil || st.DB == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	var user models.User
	if err := st.DB.Preload("Role").Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving user.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"name":         user.Name,
		"organization": user.Organization,
		"role":         user.Role.Name,
	})
}

// Dashboard summarises live checkouts and the issued-ticket ledger.
func Dashboard(c *gin.Context) {
	st := middleware.GetState(c)
	if st == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Application state not found.")
		return
	}

	stats, err := st.Store.Stats(c.Request.Context())
	if err != nil {
		st.Logger.Error().Err(err).Msg("failed to read ledger stats")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving ticket statistics.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":   st.Catalog.Len(),
		"bookings": st.Sessions.CountByState(),
		"issued":   stats,
	})
}
