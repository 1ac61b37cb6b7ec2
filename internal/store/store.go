package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mesa-status-backend/internal/merge"
	"mesa-status-backend/internal/model"
)

// manualPeriod is the assumed sitting length for manual occupy/reserve
// actions, which have no reservation window of their own.
const manualPeriod = 2 * time.Hour

// Transition describes one table status change applied by the store.
type Transition struct {
	TableID      int64
	RestaurantID int64
	TableName    string
	From         string
	To           string
	Source       string
	At           time.Time
}

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	Restaurants(ctx context.Context) ([]model.Restaurant, error)
	Restaurant(ctx context.Context, id int64) (model.Restaurant, error)
	CreateRestaurant(ctx context.Context, r *model.Restaurant) error
	SetOpenStatus(ctx context.Context, restaurantID int64, open bool, message string) error

	TablesFor(ctx context.Context, restaurantID int64) ([]model.Table, error)
	Table(ctx context.Context, restaurantID, tableID int64) (model.Table, error)
	CreateTables(ctx context.Context, tables []model.Table) error

	ApplyMerged(ctx context.Context, now time.Time, states []merge.TableState) (freed []int64, transitions []Transition, err error)

	SetManualStatus(ctx context.Context, now time.Time, table model.Table, status, clientName string) (*model.StatusOverride, *Transition, error)
	ResolveOverride(ctx context.Context, now time.Time, override *model.StatusOverride, table model.Table, confirmed bool, upstreamErr string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Restaurants(ctx context.Context) ([]model.Restaurant, error) {
	var restaurants []model.Restaurant
	if err := s.db.WithContext(ctx).Order("id").Find(&restaurants).Error; err != nil {
		return nil, err
	}
	return restaurants, nil
}

func (s *gormStore) Restaurant(ctx context.Context, id int64) (model.Restaurant, error) {
	var r model.Restaurant
	err := s.db.WithContext(ctx).First(&r, id).Error
	return r, err
}

func (s *gormStore) CreateRestaurant(ctx context.Context, r *model.Restaurant) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *gormStore) SetOpenStatus(ctx context.Context, restaurantID int64, open bool, message string) error {
	return s.db.WithContext(ctx).Model(&model.Restaurant{}).
		Where("id = ?", restaurantID).
		Updates(map[string]any{"open": open, "closed_message": message}).Error
}

func (s *gormStore) TablesFor(ctx context.Context, restaurantID int64) ([]model.Table, error) {
	var tables []model.Table
	if err := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("id").Find(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *gormStore) Table(ctx context.Context, restaurantID, tableID int64) (model.Table, error) {
	var t model.Table
	err := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).First(&t, tableID).Error
	return t, err
}

func (s *gormStore) CreateTables(ctx context.Context, tables []model.Table) error {
	if len(tables) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "restaurant_id"}, {Name: "folded_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "capacity", "location", "updated_at"}),
	}).Create(&tables).Error
}

// ApplyMerged diffs the merged table states against the hot status rows and
// updates the database transactionally. It returns the IDs of tables that
// became available (for notification dispatch) and every applied transition
// (for event publishing).
func (s *gormStore) ApplyMerged(ctx context.Context, now time.Time, states []merge.TableState) ([]int64, []Transition, error) {
	tableIDs := make([]int64, len(states))
	for i, st := range states {
		tableIDs[i] = st.Table.ID
	}

	openRows, err := s.fetchOpenStatuses(ctx, tableIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch open status rows: %w", err)
	}

	var freed []int64
	var transitions []Transition

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, state := range states {
			old, exists := openRows[state.Table.ID]

			if state.Status == model.TableAvailable {
				if !exists {
					continue
				}
				// A manually flagged maintenance table has no feed
				// counterpart; only a matching reservation or another
				// manual action releases it.
				if old.Source == model.SourceManual && old.Status == model.TableMaintenance {
					continue
				}
				if err := archiveStatus(tx, old, now); err != nil {
					return err
				}
				if err := tx.Delete(&model.TableStatusOpen{}, old.TableID).Error; err != nil {
					return fmt.Errorf("failed to delete open status row for table %d: %w", old.TableID, err)
				}
				freed = append(freed, state.Table.ID)
				transitions = append(transitions, transition(state, old.Status, model.TableAvailable, now))
				continue
			}

			if exists {
				if old.Status == state.Status && old.ReservationID == state.ReservationID {
					continue
				}
				if err := archiveStatus(tx, old, now); err != nil {
					return err
				}
				row := openRowFor(state, now)
				if err := tx.Save(&row).Error; err != nil {
					return fmt.Errorf("failed to update open status row for table %d: %w", state.Table.ID, err)
				}
				transitions = append(transitions, transition(state, old.Status, state.Status, now))
			} else {
				row := openRowFor(state, now)
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("failed to create open status row for table %d: %w", state.Table.ID, err)
				}
				transitions = append(transitions, transition(state, model.TableAvailable, state.Status, now))
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return freed, transitions, nil
}

// SetManualStatus applies a staff override optimistically and records it as
// a pending StatusOverride. The caller is expected to write the change
// upstream and then call ResolveOverride with the outcome.
func (s *gormStore) SetManualStatus(ctx context.Context, now time.Time, table model.Table, status, clientName string) (*model.StatusOverride, *Transition, error) {
	var override model.StatusOverride
	var trans *Transition

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous := model.TableAvailable
		var old model.TableStatusOpen
		err := tx.First(&old, table.ID).Error
		exists := err == nil
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		if exists {
			previous = old.Status
		}

		if previous == status {
			return fmt.Errorf("table %d already has status %s", table.ID, status)
		}

		override = model.StatusOverride{
			TableID:         table.ID,
			RequestedStatus: status,
			PreviousStatus:  previous,
			State:           model.OverridePending,
		}
		if err := tx.Create(&override).Error; err != nil {
			return fmt.Errorf("failed to record override for table %d: %w", table.ID, err)
		}

		if exists {
			if err := archiveStatus(tx, old, now); err != nil {
				return err
			}
		}

		if status == model.TableAvailable {
			if exists {
				if err := tx.Delete(&model.TableStatusOpen{}, table.ID).Error; err != nil {
					return fmt.Errorf("failed to delete open status row for table %d: %w", table.ID, err)
				}
			}
		} else {
			row := manualRow(table.ID, status, clientName, now)
			if exists {
				if err := tx.Save(&row).Error; err != nil {
					return fmt.Errorf("failed to update open status row for table %d: %w", table.ID, err)
				}
			} else {
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("failed to create open status row for table %d: %w", table.ID, err)
				}
			}
		}

		trans = &Transition{
			TableID:      table.ID,
			RestaurantID: table.RestaurantID,
			TableName:    table.Name,
			From:         previous,
			To:           status,
			Source:       model.SourceManual,
			At:           now,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &override, trans, nil
}

// ResolveOverride finishes an override's pending state. A rejected override
// reverts the table to its previous status so local and upstream state do
// not diverge until the next poll.
func (s *gormStore) ResolveOverride(ctx context.Context, now time.Time, override *model.StatusOverride, table model.Table, confirmed bool, upstreamErr string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state := model.OverrideConfirmed
		if !confirmed {
			state = model.OverrideRejected
		}
		if err := tx.Model(&model.StatusOverride{}).
			Where("id = ?", override.ID).
			Updates(map[string]any{"state": state, "error": upstreamErr}).Error; err != nil {
			return fmt.Errorf("failed to resolve override %d: %w", override.ID, err)
		}
		if confirmed {
			return nil
		}

		// Revert the optimistic write. The archived row already captured
		// the pre-override period; the revert row restarts from now.
		if override.PreviousStatus == model.TableAvailable {
			if err := tx.Delete(&model.TableStatusOpen{}, override.TableID).Error; err != nil {
				return fmt.Errorf("failed to delete open status row for table %d: %w", override.TableID, err)
			}
			return nil
		}
		row := manualRow(override.TableID, override.PreviousStatus, "", now)
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to revert open status row for table %d: %w", override.TableID, err)
		}
		return nil
	})
}

// archiveStatus creates a historical record of a finished status period.
func archiveStatus(tx *gorm.DB, row model.TableStatusOpen, observationTime time.Time) error {
	periodEnd := row.PeriodEnd
	if periodEnd.IsZero() || periodEnd.Before(row.PeriodStart) {
		periodEnd = observationTime
	}

	historyRecord := model.TableStatusHistory{
		TableID:       row.TableID,
		ObservedAt:    observationTime,
		Status:        row.Status,
		Source:        row.Source,
		ClientName:    row.ClientName,
		ReservationID: row.ReservationID,
		PeriodStart:   row.PeriodStart,
		PeriodEnd:     periodEnd,
	}

	if err := tx.Create(&historyRecord).Error; err != nil {
		return fmt.Errorf("failed to archive status row for table %d: %w", row.TableID, err)
	}
	return nil
}

func (s *gormStore) fetchOpenStatuses(ctx context.Context, tableIDs []int64) (map[int64]model.TableStatusOpen, error) {
	var rows []model.TableStatusOpen
	if err := s.db.WithContext(ctx).Where("table_id IN ?", tableIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	rowMap := make(map[int64]model.TableStatusOpen, len(rows))
	for _, r := range rows {
		rowMap[r.TableID] = r
	}
	return rowMap, nil
}

func openRowFor(state merge.TableState, now time.Time) model.TableStatusOpen {
	return model.TableStatusOpen{
		TableID:       state.Table.ID,
		Status:        state.Status,
		Source:        model.SourceFeed,
		ClientName:    state.ClientName,
		ReservationID: state.ReservationID,
		ObservedAt:    now,
		PeriodStart:   state.PeriodStart,
		PeriodEnd:     state.PeriodEnd,
	}
}

func manualRow(tableID int64, status, clientName string, now time.Time) model.TableStatusOpen {
	return model.TableStatusOpen{
		TableID:     tableID,
		Status:      status,
		Source:      model.SourceManual,
		ClientName:  clientName,
		ObservedAt:  now,
		PeriodStart: now,
		PeriodEnd:   now.Add(manualPeriod),
	}
}

func transition(state merge.TableState, from, to string, at time.Time) Transition {
	return Transition{
		TableID:      state.Table.ID,
		RestaurantID: state.Table.RestaurantID,
		TableName:    state.Table.Name,
		From:         from,
		To:           to,
		Source:       model.SourceFeed,
		At:           at,
	}
}
