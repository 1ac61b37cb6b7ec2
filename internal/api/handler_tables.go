package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mesa-status-backend/internal/model"
	"mesa-status-backend/internal/normalize"
)

// tableStatusResponse is the flattened structure for the API response.
type tableStatusResponse struct {
	model.Table
	Status        string     `json:"status"`
	IsAvailable   bool       `json:"isAvailable"`
	Source        string     `json:"source,omitempty"`
	ClientName    string     `json:"clientName,omitempty"`
	ReservationID string     `json:"reservationId,omitempty"`
	PeriodStart   *time.Time `json:"periodStart,omitempty"`
	PeriodEnd     *time.Time `json:"periodEnd,omitempty"`
	ObservedAt    time.Time  `json:"observedAt"`
}

// GetTableStatus handles GET /api/restaurants/{restaurant_id}/tables.
func (h *Handler) GetTableStatus(c *gin.Context) {
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

	atParam := c.Query("at")
	if atParam != "" {
		h.getHistoricalStatus(c, restaurantID, atParam)
		return
	}

	// While closed, the floor plan renders nothing.
	if !restaurant.Open {
		c.JSON(http.StatusOK, []tableStatusResponse{})
		return
	}

	h.getCurrentStatus(c, restaurantID)
}

func (h *Handler) getCurrentStatus(c *gin.Context, restaurantID int64) {
	db := h.store.DB()

	var tables []model.Table
	if err := db.Where("restaurant_id = ?", restaurantID).Order("id").Find(&tables).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tables"})
		return
	}

	tableIDs := make([]int64, len(tables))
	for i, t := range tables {
		tableIDs[i] = t.ID
	}

	var openRows []model.TableStatusOpen
	db.Where("table_id IN ?", tableIDs).Find(&openRows)

	statusMap := make(map[int64]model.TableStatusOpen)
	for _, row := range openRows {
		statusMap[row.TableID] = row
	}

	response := make([]tableStatusResponse, 0, len(tables))
	for _, table := range tables {
		if row, ok := statusMap[table.ID]; ok {
			periodStart, periodEnd := row.PeriodStart, row.PeriodEnd
			response = append(response, tableStatusResponse{
				Table:         table,
				Status:        row.Status,
				IsAvailable:   false, // A table with an open status row is never available.
				Source:        row.Source,
				ClientName:    row.ClientName,
				ReservationID: row.ReservationID,
				PeriodStart:   &periodStart,
				PeriodEnd:     &periodEnd,
				ObservedAt:    row.ObservedAt,
			})
		} else {
			response = append(response, tableStatusResponse{
				Table:       table,
				Status:      model.TableAvailable,
				IsAvailable: true,
				ObservedAt:  time.Now().UTC(),
			})
		}
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) getHistoricalStatus(c *gin.Context, restaurantID int64, atParam string) {
	at, err := time.Parse(time.RFC3339, atParam)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid 'at' timestamp format. Use RFC3339."})
		return
	}

	db := h.store.DB()

	var tables []model.Table
	if err := db.Where("restaurant_id = ?", restaurantID).Order("id").Find(&tables).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tables"})
		return
	}

	response := make([]tableStatusResponse, 0, len(tables))
	for _, table := range tables {
		var history model.TableStatusHistory
		// The archived period that covers the requested instant, if any.
		err := db.Where("table_id = ? AND period_start <= ? AND period_end >= ?", table.ID, at, at).
			Order("observed_at DESC").
			First(&history).Error

		if err == gorm.ErrRecordNotFound {
			response = append(response, tableStatusResponse{
				Table:       table,
				Status:      model.TableAvailable,
				IsAvailable: true,
				ObservedAt:  at,
			})
			continue
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error during historical lookup"})
			return
		}

		periodStart, periodEnd := history.PeriodStart, history.PeriodEnd
		response = append(response, tableStatusResponse{
			Table:         table,
			Status:        history.Status,
			IsAvailable:   false,
			Source:        history.Source,
			ClientName:    history.ClientName,
			ReservationID: history.ReservationID,
			PeriodStart:   &periodStart,
			PeriodEnd:     &periodEnd,
			ObservedAt:    history.PeriodStart,
		})
	}

	c.JSON(http.StatusOK, response)
}

type generateTablesZone struct {
	Name     string `json:"name" binding:"required"`
	Count    int    `json:"count" binding:"required,min=1"`
	Capacity int    `json:"capacity" binding:"required,min=1"`
	Prefix   string `json:"prefix"`
}

type generateTablesRequest struct {
	Zones []generateTablesZone `json:"zones" binding:"required,min=1,dive"`
}

// GenerateTables handles POST /api/restaurants/{restaurant_id}/tables, the
// bulk table-generator used during restaurant setup.
func (h *Handler) GenerateTables(c *gin.Context) {
	restaurantID, err := strconv.ParseInt(c.Param("restaurant_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid restaurant ID"})
		return
	}

	var req generateTablesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if _, err := h.store.Restaurant(c.Request.Context(), restaurantID); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	var tables []model.Table
	for _, zone := range req.Zones {
		prefix := zone.Prefix
		if prefix == "" {
			// Zone-scoped names keep folded names unique across zones.
			prefix = zone.Name
		}
		for i := 1; i <= zone.Count; i++ {
			name := fmt.Sprintf("%s %d", prefix, i)
			tables = append(tables, model.Table{
				RestaurantID: restaurantID,
				Name:         name,
				FoldedName:   normalize.FoldName(name),
				Capacity:     zone.Capacity,
				Location:     zone.Name,
			})
		}
	}

	if err := h.store.CreateTables(c.Request.Context(), tables); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"created": len(tables)})
}
