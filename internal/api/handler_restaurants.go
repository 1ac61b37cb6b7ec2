package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mesa-status-backend/internal/model"
)

// RestaurantResponse represents the API response for a single restaurant.
type RestaurantResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Open          bool   `json:"open"`
	ClosedMessage string `json:"closedMessage,omitempty"`
	TotalTables   int64  `json:"totalTables"`
	TotalSeats    int64  `json:"totalSeats"`
}

// GetRestaurants handles the GET /api/restaurants request.
func GetRestaurants(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var restaurants []model.Restaurant
		if err := db.Order("id").Find(&restaurants).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve restaurants"})
			return
		}

		// One aggregation pass for per-restaurant table stats.
		type aggRow struct {
			RestaurantID int64
			TotalTables  int64
			TotalSeats   int64
		}
		var aggs []aggRow
		if err := db.
			Model(&model.Table{}).
			Select("restaurant_id as restaurant_id, COUNT(*) as total_tables, COALESCE(SUM(capacity), 0) as total_seats").
			Group("restaurant_id").
			Scan(&aggs).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate tables"})
			return
		}

		aggMap := make(map[int64]aggRow, len(aggs))
		for _, a := range aggs {
			aggMap[a.RestaurantID] = a
		}

		responses := make([]RestaurantResponse, 0, len(restaurants))
		for _, r := range restaurants {
			a := aggMap[r.ID] // Zero value when the restaurant has no tables yet
			responses = append(responses, RestaurantResponse{
				ID:            r.ID,
				Name:          r.Name,
				Open:          r.Open,
				ClosedMessage: r.ClosedMessage,
				TotalTables:   a.TotalTables,
				TotalSeats:    a.TotalSeats,
			})
		}
		c.JSON(http.StatusOK, responses)
	}
}

type createRestaurantRequest struct {
	Name     string `json:"name" binding:"required"`
	Timezone string `json:"timezone"`
}

// CreateRestaurant handles the POST /api/restaurants request.
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req createRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	restaurant := model.Restaurant{
		Name:     req.Name,
		Timezone: req.Timezone,
		Open:     true,
	}
	if err := h.store.CreateRestaurant(c.Request.Context(), &restaurant); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": restaurant.ID, "name": restaurant.Name})
}
