package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mesa-status-backend/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.FeedConfig{BaseURL: baseURL})
}

func TestRecordDecodeFieldVariants(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		expected Record
	}{
		{
			name:    "Canonical casing",
			payload: `{"ID":"r1","Fecha":"2026-03-14","Hora":"13:30","Cliente":"Ana","Telefono":"600111222","Personas":4,"Mesa":"Mesa 3","Estado":"confirmada","Notas":"ventana"}`,
			expected: Record{
				ID: "r1", Date: "2026-03-14", Time: "13:30", ClientName: "Ana",
				Phone: "600111222", PartySize: 4, TableName: "Mesa 3",
				RawStatus: "confirmada", Notes: "ventana",
			},
		},
		{
			name:    "Lower-case variants",
			payload: `{"id":"r2","fecha":"2026-03-14","hora":"21.00","cliente":"Luis","personas":"2","mesa":"terraza 1","estado":"ocupada"}`,
			expected: Record{
				ID: "r2", Date: "2026-03-14", Time: "21.00", ClientName: "Luis",
				PartySize: 2, TableName: "terraza 1", RawStatus: "ocupada",
			},
		},
		{
			name:    "Numeric ID and explicit table id",
			payload: `{"ID":42,"Hora":"14:00","Mesa":"Mesa 5","MesaId":5,"Estado":""}`,
			expected: Record{
				ID: "42", Time: "14:00", TableName: "Mesa 5", TableID: 5,
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got Record
			require.NoError(t, json.Unmarshal([]byte(tc.payload), &got))
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestRecordDecodeMissingID(t *testing.T) {
	var got Record
	err := json.Unmarshal([]byte(`{"Hora":"13:00"}`), &got)
	assert.Error(t, err)
}

func TestReservations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reservas", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("restaurantId"))
		assert.Equal(t, "2026-03-14", r.URL.Query().Get("fecha"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"reservas":[{"ID":"r1","Hora":"13:30","Mesa":"Mesa 3","Estado":"confirmada"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	records, err := client.Reservations(context.Background(), 7, "2026-03-14")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, "Mesa 3", records[0].TableName)
}

func TestReservationsFailure(t *testing.T) {
	t.Run("Non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Reservations(context.Background(), 7, "2026-03-14")
		assert.Error(t, err)
	})

	t.Run("Application-level failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false,"message":"sheet unavailable"}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Reservations(context.Background(), 7, "2026-03-14")
		assert.ErrorContains(t, err, "sheet unavailable")
	})
}

func TestSchedule(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/horarios", r.URL.Path)
		w.Write([]byte(`{"success":true,"status":{"abierto":false,"mensaje":"Cerrado por descanso"}}`))
	}))
	defer server.Close()

	status, err := newTestClient(server.URL).Schedule(context.Background(), 7, "2026-03-14", "13:00")
	require.NoError(t, err)
	assert.False(t, status.Open)
	assert.Equal(t, "Cerrado por descanso", status.Message)
}

func TestUpdateReservationStatus(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/update-reservation-status", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).UpdateReservationStatus(context.Background(), 7, "r1", "completada", "2026-03-14")
	require.NoError(t, err)
	assert.Equal(t, "7", received["restaurantId"])
	assert.Equal(t, "r1", received["reservationId"])
	assert.Equal(t, "completada", received["newStatus"])
}

func TestOccupyTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/occupy-table", r.URL.Path)
		var req OccupyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Mesa 3", req.TableName)
		assert.Equal(t, "ocupada", req.Status)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).OccupyTable(context.Background(), OccupyRequest{
		RestaurantID: "7",
		TableName:    "Mesa 3",
		ClientName:   "Walk-in",
		PartySize:    2,
		Status:       "ocupada",
		Date:         "2026-03-14",
		Time:         "13:30",
	})
	assert.NoError(t, err)
}
