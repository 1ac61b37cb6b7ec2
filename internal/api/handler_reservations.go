package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mesa-status-backend/internal/poller"
)

// GetReservations handles GET /api/restaurants/{restaurant_id}/reservations.
// Reservations come from the shared feed snapshot, already normalized and
// time-resolved; while the restaurant is closed the list is empty.
func (h *Handler) GetReservations(c *gin.Context) {
	restaurantID, err := strconv.ParseInt(c.Param("restaurant_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid restaurant ID"})
		return
	}

	restaurant, err := h.store.Restaurant(c.Request.Context(), restaurantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve restaurant"})
		}
		return
	}

	if !restaurant.Open {
		c.JSON(http.StatusOK, gin.H{
			"open":         false,
			"message":      restaurant.ClosedMessage,
			"reservations": []poller.ReservationView{},
		})
		return
	}

	date := c.Query("date")
	if date == "" {
		date = time.Now().In(h.loc).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'date' format. Use YYYY-MM-DD."})
		return
	}

	views, err := h.reservations.FetchReservations(c.Request.Context(), restaurantID, date)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch reservations from feed"})
		return
	}
	if views == nil {
		views = []poller.ReservationView{}
	}

	c.JSON(http.StatusOK, gin.H{
		"open":         true,
		"date":         date,
		"reservations": views,
	})
}
