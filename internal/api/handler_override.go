package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mesa-status-backend/internal/feed"
	"mesa-status-backend/internal/model"
)

type overrideRequest struct {
	Action     string `json:"action" binding:"required,oneof=occupy reserve free maintenance"`
	ClientName string `json:"clientName"`
	PartySize  int    `json:"partySize"`
}

var actionStatus = map[string]string{
	"occupy":      model.TableOccupied,
	"reserve":     model.TableReserved,
	"free":        model.TableAvailable,
	"maintenance": model.TableMaintenance,
}

var statusEstado = map[string]string{
	model.TableOccupied: "ocupada",
	model.TableReserved: "reservada",
}

// OverrideTableStatus handles POST
// /api/restaurants/{restaurant_id}/tables/{table_id}/status.
//
// The override is applied locally first, then written through to the feed;
// a failed upstream write rejects the override and reverts the table so
// local and upstream state do not silently diverge.
func (h *Handler) OverrideTableStatus(c *gin.Context) {
	restaurantID, err := strconv.ParseInt(c.Param("restaurant_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid restaurant ID"})
		return
	}
	tableID, err := strconv.ParseInt(c.Param("table_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid table ID"})
		return
	}

	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	status := actionStatus[req.Action]

	ctx := c.Request.Context()
	table, err := h.store.Table(ctx, restaurantID, tableID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	// Capture the reservation currently holding the table, if any; freeing
	// the table completes that reservation upstream.
	var priorReservationID string
	var prior model.TableStatusOpen
	if err := h.store.DB().WithContext(ctx).First(&prior, tableID).Error; err == nil {
		priorReservationID = prior.ReservationID
	}

	now := time.Now().In(h.loc)
	clientName := req.ClientName
	if clientName == "" && (req.Action == "occupy" || req.Action == "reserve") {
		clientName = "Walk-in"
	}

	override, transition, err := h.store.SetManualStatus(ctx, now, table, status, clientName)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if upstreamErr := h.writeThrough(c, restaurantID, table, req, status, priorReservationID, now); upstreamErr != nil {
		log.Printf("Upstream write for table %d failed: %v. Reverting override %d.", tableID, upstreamErr, override.ID)
		if err := h.store.ResolveOverride(ctx, now, override, table, false, upstreamErr.Error()); err != nil {
			log.Printf("Error rejecting override %d: %v", override.ID, err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to persist status upstream", "reverted": true})
		return
	}

	if err := h.store.ResolveOverride(ctx, now, override, table, true, ""); err != nil {
		log.Printf("Error confirming override %d: %v", override.ID, err)
	}
	if transition != nil {
		if err := h.publisher.PublishTransition(ctx, *transition); err != nil {
			log.Printf("Error publishing manual transition for table %d: %v", tableID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": status, "overrideId": override.ID})
}

// writeThrough persists a manual action to the reservation feed. A
// maintenance flag is local-only and needs no upstream write; freeing a
// table with no backing reservation likewise.
func (h *Handler) writeThrough(c *gin.Context, restaurantID int64, table model.Table, req overrideRequest, status, priorReservationID string, now time.Time) error {
	ctx := c.Request.Context()

	switch req.Action {
	case "occupy", "reserve":
		partySize := req.PartySize
		if partySize <= 0 {
			partySize = 2
		}
		clientName := req.ClientName
		if clientName == "" {
			clientName = "Walk-in"
		}
		return h.writer.OccupyTable(ctx, feed.OccupyRequest{
			RestaurantID: strconv.FormatInt(restaurantID, 10),
			TableName:    table.Name,
			Zone:         table.Location,
			ClientName:   clientName,
			PartySize:    partySize,
			Status:       statusEstado[status],
			Date:         now.Format("2006-01-02"),
			Time:         now.Format("15:04"),
		})
	case "free":
		if priorReservationID == "" {
			return nil
		}
		return h.writer.UpdateReservationStatus(ctx, restaurantID, priorReservationID, "completada", now.Format("2006-01-02"))
	default: // maintenance
		return nil
	}
}
