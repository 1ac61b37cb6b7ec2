package api

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"mesa-status-backend/internal/events"
	"mesa-status-backend/internal/feed"
	"mesa-status-backend/internal/poller"
	"mesa-status-backend/internal/store"
)

// ReservationSource serves resolved reservation snapshots for a
// restaurant/date, shared with the poller so concurrent readers do not
// trigger redundant upstream requests.
type ReservationSource interface {
	FetchReservations(ctx context.Context, restaurantID int64, date string) ([]poller.ReservationView, error)
}

// FeedWriter writes manual actions back to the reservation feed.
type FeedWriter interface {
	UpdateReservationStatus(ctx context.Context, restaurantID int64, reservationID, newStatus, date string) error
	OccupyTable(ctx context.Context, req feed.OccupyRequest) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store        store.Store
	webpush      *webpush.Options
	reservations ReservationSource
	writer       FeedWriter
	publisher    events.Publisher
	loc          *time.Location
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, src ReservationSource, writer FeedWriter, publisher events.Publisher, loc *time.Location) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		store:        s,
		webpush:      webpushOptions,
		reservations: src,
		writer:       writer,
		publisher:    publisher,
		loc:          loc,
	}
}
