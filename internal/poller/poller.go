package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"

	"mesa-status-backend/config"
	"mesa-status-backend/internal/events"
	"mesa-status-backend/internal/feed"
	"mesa-status-backend/internal/merge"
	"mesa-status-backend/internal/model"
	"mesa-status-backend/internal/normalize"
	"mesa-status-backend/internal/notification"
	"mesa-status-backend/internal/store"
	"mesa-status-backend/internal/window"
)

// completedStatus is what auto-completed reservations are set to upstream.
const completedStatus = "completada"

// ReservationView is a reservation after normalization and window
// resolution, as cached for read handlers.
type ReservationView struct {
	ID             string                `json:"id"`
	Date           string                `json:"date"`
	Time           string                `json:"time"`
	ClientName     string                `json:"clientName"`
	Phone          string                `json:"phone"`
	PartySize      int                   `json:"partySize"`
	TableName      string                `json:"table"`
	Status         normalize.Status      `json:"status"`
	Classification window.Classification `json:"classification"`
	Notes          string                `json:"notes,omitempty"`
}

// Service runs the fetch→normalize→resolve→merge→persist cycle for every
// restaurant on a single shared interval.
type Service struct {
	cfg        *config.Config
	store      store.Store
	feed       *feed.Client
	publisher  events.Publisher
	workerPool *notification.WorkerPool
	snapshots  *cache.Cache
	loc        *time.Location

	mu            sync.Mutex
	autoCompleted map[string]struct{}
}

// NewService creates and initializes the poller.
func NewService(cfg *config.Config, s store.Store, feedClient *feed.Client, publisher events.Publisher) *Service {
	loc, err := time.LoadLocation(cfg.Feed.Timezone)
	if err != nil {
		log.Printf("Warning: invalid timezone %q: %v. Falling back to UTC.", cfg.Feed.Timezone, err)
		loc = time.UTC
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &Service{
		cfg:           cfg,
		store:         s,
		feed:          feedClient,
		publisher:     publisher,
		workerPool:    notification.NewWorkerPool(cfg.WorkerPool.Size, s.DB(), &webpushOptions),
		snapshots:     cache.New(cfg.Feed.Interval, 2*cfg.Feed.Interval),
		loc:           loc,
		autoCompleted: make(map[string]struct{}),
	}
}

// WorkerPool exposes the notification pool for wiring and tests.
func (s *Service) WorkerPool() *notification.WorkerPool {
	return s.workerPool
}

// Run starts the polling loop.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Feed.Enabled {
		log.Println("Feed polling is disabled. Not starting.")
		return
	}
	log.Println("Starting poller service...")

	s.workerPool.Start(ctx)

	s.PollOnce(ctx)

	timer := time.NewTimer(s.cfg.Feed.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Poller service shutting down.")
			return
		case <-timer.C:
			s.PollOnce(ctx)
			timer.Reset(s.cfg.Feed.Interval)
		}
	}
}

// PollOnce runs a single reconciliation cycle across all restaurants.
func (s *Service) PollOnce(ctx context.Context) {
	now := time.Now().In(s.loc)
	date := now.Format("2006-01-02")
	clock := now.Format("15:04")

	restaurants, err := s.store.Restaurants(ctx)
	if err != nil {
		log.Printf("Error listing restaurants: %v", err)
		return
	}

	for _, r := range restaurants {
		if ctx.Err() != nil {
			return
		}
		s.pollRestaurant(ctx, r, now, date, clock)
	}
}

func (s *Service) pollRestaurant(ctx context.Context, r model.Restaurant, now time.Time, date, clock string) {
	open, err := s.feed.Schedule(ctx, r.ID, date, clock)
	if err != nil {
		log.Printf("Error checking schedule for restaurant %d: %v. Leaving status untouched.", r.ID, err)
		return
	}
	if err := s.store.SetOpenStatus(ctx, r.ID, open.Open, open.Message); err != nil {
		log.Printf("Error persisting open status for restaurant %d: %v", r.ID, err)
	}
	if !open.Open {
		log.Printf("Restaurant %d is closed (%s); skipping reservation processing.", r.ID, open.Message)
		return
	}

	records, err := s.feed.Reservations(ctx, r.ID, date)
	if err != nil {
		log.Printf("Error fetching reservations for restaurant %d: %v. Leaving persisted status untouched.", r.ID, err)
		return
	}

	reservations, views := s.resolve(ctx, r.ID, now, date, records)
	s.snapshots.Set(snapshotKey(r.ID, date), views, cache.DefaultExpiration)

	tables, err := s.store.TablesFor(ctx, r.ID)
	if err != nil {
		log.Printf("Error loading tables for restaurant %d: %v", r.ID, err)
		return
	}

	states := merge.Tables(tables, reservations)
	for _, st := range states {
		if st.Fuzzy {
			log.Printf("Warning: reservation %s joined to table %q by name only; feed carries no table id.", st.ReservationID, st.Table.Name)
		}
	}

	freed, transitions, err := s.store.ApplyMerged(ctx, now, states)
	if err != nil {
		log.Printf("Error applying merged status for restaurant %d: %v", r.ID, err)
		return
	}

	if len(freed) > 0 {
		log.Printf("Dispatching notifications for %d freed tables", len(freed))
		for _, tableID := range freed {
			s.workerPool.Dispatch(tableID)
		}
	}

	for _, t := range transitions {
		if err := s.publisher.PublishTransition(ctx, t); err != nil {
			log.Printf("Error publishing transition for table %d: %v", t.TableID, err)
		}
	}
}

// resolve normalizes and time-resolves raw feed records, firing
// auto-complete writes for reservations whose window has elapsed.
func (s *Service) resolve(ctx context.Context, restaurantID int64, now time.Time, date string, records []feed.Record) ([]merge.Reservation, []ReservationView) {
	reservations := make([]merge.Reservation, 0, len(records))
	views := make([]ReservationView, 0, len(records))

	for _, rec := range records {
		status := normalize.Normalize(rec.RawStatus)
		if status == normalize.StatusUnknown {
			log.Printf("Warning: reservation %s has unrecognized status %q; treating as reserved.", rec.ID, rec.RawStatus)
		}

		hour, minute, err := normalize.ParseClock(rec.Time)
		if err != nil {
			log.Printf("Warning: could not parse time for reservation %s: %v. Skipping.", rec.ID, err)
			continue
		}

		w := window.Resolve(now, hour, minute)

		if window.WantsAutoComplete(w.Classification, status) {
			s.autoComplete(ctx, restaurantID, rec.ID, date)
		}

		reservations = append(reservations, merge.Reservation{
			ID:             rec.ID,
			TableID:        rec.TableID,
			TableName:      rec.TableName,
			ClientName:     rec.ClientName,
			Status:         status,
			Classification: w.Classification,
			Window:         w,
		})
		views = append(views, ReservationView{
			ID:             rec.ID,
			Date:           rec.Date,
			Time:           rec.Time,
			ClientName:     rec.ClientName,
			Phone:          rec.Phone,
			PartySize:      rec.PartySize,
			TableName:      rec.TableName,
			Status:         status.Canonical(),
			Classification: w.Classification,
			Notes:          rec.Notes,
		})
	}
	return reservations, views
}

// autoComplete marks an elapsed reservation completed upstream, at most
// once per in-process detection. The upstream write is idempotent in
// effect, so repeats after a restart are harmless.
func (s *Service) autoComplete(ctx context.Context, restaurantID int64, reservationID, date string) {
	key := fmt.Sprintf("%d|%s|%s", restaurantID, date, reservationID)

	s.mu.Lock()
	_, done := s.autoCompleted[key]
	if !done {
		s.autoCompleted[key] = struct{}{}
	}
	s.mu.Unlock()
	if done {
		return
	}

	if err := s.feed.UpdateReservationStatus(ctx, restaurantID, reservationID, completedStatus, date); err != nil {
		log.Printf("Error auto-completing reservation %s: %v", reservationID, err)
		s.mu.Lock()
		delete(s.autoCompleted, key)
		s.mu.Unlock()
	}
}

// CachedReservations returns the last resolved snapshot for a restaurant
// and date, so read handlers do not issue redundant upstream requests.
func (s *Service) CachedReservations(restaurantID int64, date string) ([]ReservationView, bool) {
	v, ok := s.snapshots.Get(snapshotKey(restaurantID, date))
	if !ok {
		return nil, false
	}
	views, ok := v.([]ReservationView)
	return views, ok
}

// FetchReservations resolves reservations for a restaurant/date on demand,
// populating the snapshot cache. Used by the read API on cache miss.
func (s *Service) FetchReservations(ctx context.Context, restaurantID int64, date string) ([]ReservationView, error) {
	if views, ok := s.CachedReservations(restaurantID, date); ok {
		return views, nil
	}
	records, err := s.feed.Reservations(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}
	_, views := s.resolve(ctx, restaurantID, time.Now().In(s.loc), date, records)
	s.snapshots.Set(snapshotKey(restaurantID, date), views, cache.DefaultExpiration)
	return views, nil
}

func snapshotKey(restaurantID int64, date string) string {
	return fmt.Sprintf("%d|%s", restaurantID, date)
}
