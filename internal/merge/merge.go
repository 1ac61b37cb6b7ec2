package merge

import (
	"time"

	"mesa-status-backend/internal/model"
	"mesa-status-backend/internal/normalize"
	"mesa-status-backend/internal/window"
)

// Reservation is a feed record after normalization and window resolution.
type Reservation struct {
	ID             string
	TableID        int64  // Explicit id from the feed, 0 when absent
	TableName      string // Raw display name from the feed
	ClientName     string
	Status         normalize.Status
	Classification window.Classification
	Window         window.Window
}

// TableState is the effective display state computed for one table.
type TableState struct {
	Table         model.Table
	Status        string
	ClientName    string
	ReservationID string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	// Fuzzy is set when the winning reservation was joined by folded name
	// rather than an explicit table id. Callers log it as a degraded path.
	Fuzzy bool
}

// Tables joins today's reservations onto the restaurant's tables and
// computes each table's effective status.
//
// Match precedence per reservation: an explicit table id when the feed
// provides one, otherwise folded-name equality. When several reservations
// resolve to the same table, the last one in feed order wins; the feed
// defines no tie-break rule, so the behavior is pinned here and by tests
// rather than left to map iteration.
func Tables(tables []model.Table, reservations []Reservation) []TableState {
	byID := make(map[int64]model.Table, len(tables))
	byFolded := make(map[string]model.Table, len(tables))
	for _, t := range tables {
		byID[t.ID] = t
		byFolded[t.FoldedName] = t
	}

	winners := make(map[int64]Reservation, len(tables))
	fuzzy := make(map[int64]bool, len(tables))
	for _, res := range reservations {
		table, viaName, ok := match(res, byID, byFolded)
		if !ok {
			continue
		}
		winners[table.ID] = res
		fuzzy[table.ID] = viaName
	}

	states := make([]TableState, 0, len(tables))
	for _, t := range tables {
		state := TableState{Table: t, Status: model.TableAvailable}
		if res, ok := winners[t.ID]; ok {
			if s, occupied := effectiveStatus(res); occupied {
				state.Status = s
				state.ClientName = res.ClientName
				state.ReservationID = res.ID
				state.PeriodStart = res.Window.Start
				state.PeriodEnd = res.Window.End
				state.Fuzzy = fuzzy[t.ID]
			}
		}
		states = append(states, state)
	}
	return states
}

func match(res Reservation, byID map[int64]model.Table, byFolded map[string]model.Table) (model.Table, bool, bool) {
	if res.TableID != 0 {
		t, ok := byID[res.TableID]
		return t, false, ok
	}
	folded := normalize.FoldName(res.TableName)
	if folded == "" || folded == "unassigned" {
		return model.Table{}, false, false
	}
	t, ok := byFolded[folded]
	return t, true, ok
}

// effectiveStatus maps a reservation onto a table status. Only an active,
// non-terminal reservation holds a table: completed and cancelled never
// occupy, upcoming has not started, and elapsed is considered over.
func effectiveStatus(res Reservation) (string, bool) {
	if res.Status.Terminal() {
		return "", false
	}
	if res.Classification != window.Active {
		return "", false
	}
	if res.Status == normalize.StatusOccupied {
		return model.TableOccupied, true
	}
	// Reserved and unknown (canonicalized to reserved) both show as reserved.
	return model.TableReserved, true
}
