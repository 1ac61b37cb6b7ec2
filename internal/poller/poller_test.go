package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mesa-status-backend/config"
	"mesa-status-backend/internal/feed"
	"mesa-status-backend/internal/normalize"
	"mesa-status-backend/internal/store"
	"mesa-status-backend/internal/window"
)

type updateRecorder struct {
	mu       sync.Mutex
	payloads []map[string]any
}

func (u *updateRecorder) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.payloads)
}

func newTestService(t *testing.T, baseURL string) *Service {
	t.Helper()

	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		Feed: config.FeedConfig{
			Enabled:  true,
			Interval: time.Minute,
			BaseURL:  baseURL,
			Timezone: "UTC",
		},
		WorkerPool: config.WorkerPoolConfig{Size: 1},
	}
	return NewService(cfg, store.NewGormStore(testDB), feed.NewClient(&cfg.Feed), nil)
}

func TestResolveAutoCompletesElapsedReservations(t *testing.T) {
	recorder := &updateRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/update-reservation-status" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		recorder.mu.Lock()
		recorder.payloads = append(recorder.payloads, payload)
		recorder.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)

	now := time.Date(2026, 5, 14, 16, 0, 0, 0, time.UTC)
	records := []feed.Record{
		// Lunch window 12:00-14:00 is long over; status still active upstream.
		{ID: "r1", Time: "12:00", ClientName: "Ana", TableName: "Mesa 1", RawStatus: "confirmada"},
		// Already terminal; nothing to complete.
		{ID: "r2", Time: "12:00", ClientName: "Luis", TableName: "Mesa 2", RawStatus: "completada"},
		// Still active; nothing to complete.
		{ID: "r3", Time: "15:30", ClientName: "Eva", TableName: "Mesa 3", RawStatus: "ocupada"},
	}

	reservations, views := svc.resolve(context.Background(), 1, now, "2026-05-14", records)
	require.Len(t, reservations, 3)
	require.Len(t, views, 3)

	assert.Equal(t, 1, recorder.count(), "only the elapsed non-terminal reservation should be completed")
	assert.Equal(t, "r1", recorder.payloads[0]["reservationId"])
	assert.Equal(t, "completada", recorder.payloads[0]["newStatus"])

	assert.Equal(t, window.Elapsed, reservations[0].Classification)
	assert.Equal(t, window.Active, reservations[2].Classification)

	// A second cycle sees the same elapsed reservation but must not write
	// upstream again.
	svc.resolve(context.Background(), 1, now.Add(time.Minute), "2026-05-14", records)
	assert.Equal(t, 1, recorder.count())
}

func TestResolveSkipsUnparsableTimes(t *testing.T) {
	svc := newTestService(t, "http://feed.invalid")

	now := time.Date(2026, 5, 14, 13, 0, 0, 0, time.UTC)
	records := []feed.Record{
		{ID: "r1", Time: "", ClientName: "Ana", TableName: "Mesa 1", RawStatus: "confirmada"},
		{ID: "r2", Time: "25:00", ClientName: "Luis", TableName: "Mesa 2", RawStatus: "confirmada"},
		{ID: "r3", Time: "13.15", ClientName: "Eva", TableName: "Mesa 3", RawStatus: "confirmada"},
	}

	reservations, views := svc.resolve(context.Background(), 1, now, "2026-05-14", records)
	require.Len(t, reservations, 1, "rows without a usable time are dropped")
	assert.Equal(t, "r3", reservations[0].ID)
	assert.Equal(t, normalize.StatusReserved, views[0].Status)
}

func TestResolveDegradesUnknownStatusToReserved(t *testing.T) {
	svc := newTestService(t, "http://feed.invalid")

	now := time.Date(2026, 5, 14, 13, 0, 0, 0, time.UTC)
	records := []feed.Record{
		{ID: "r1", Time: "13:00", ClientName: "Ana", TableName: "Mesa 1", RawStatus: "en camino"},
	}

	reservations, views := svc.resolve(context.Background(), 1, now, "2026-05-14", records)
	require.Len(t, reservations, 1)
	assert.Equal(t, normalize.StatusUnknown, reservations[0].Status, "the merger sees the unknown status as-is")
	assert.Equal(t, normalize.StatusReserved, views[0].Status, "readers see the degraded canonical status")
}

func TestCachedReservationsRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"reservas": []map[string]any{
				{"ID": "r1", "Hora": "13:00", "Cliente": "Ana", "Mesa": "Mesa 1", "Estado": "confirmada"},
			},
		})
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)

	_, ok := svc.CachedReservations(1, "2026-05-14")
	assert.False(t, ok, "cache starts empty")

	views, err := svc.FetchReservations(context.Background(), 1, "2026-05-14")
	require.NoError(t, err)
	require.Len(t, views, 1)

	cached, ok := svc.CachedReservations(1, "2026-05-14")
	require.True(t, ok)
	assert.Equal(t, views, cached)

	_, ok = svc.CachedReservations(2, "2026-05-14")
	assert.False(t, ok, "snapshots are keyed per restaurant")
}
