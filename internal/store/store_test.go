package store

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mesa-status-backend/internal/merge"
	"mesa-status-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func mergedState(tableID int64, status, reservationID string) merge.TableState {
	return merge.TableState{
		Table:         model.Table{ID: tableID, RestaurantID: 7, Name: "Mesa 3"},
		Status:        status,
		ReservationID: reservationID,
	}
}

func TestGormStore_ApplyMerged(t *testing.T) {
	now := time.Now()

	openRowCols := []string{"table_id", "status", "source", "client_name", "reservation_id", "observed_at", "period_start", "period_end"}

	testCases := []struct {
		name              string
		states            []merge.TableState
		mockExpectations  func(mock sqlmock.Sqlmock)
		expectedFreedIDs  []int64
		expectedFromTo    [][2]string
		expectedErr       bool
	}{
		{
			name:   "Table becomes available, should free and archive",
			states: []merge.TableState{mergedState(101, model.TableAvailable, "")},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "table_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openRowCols).
						AddRow(101, model.TableOccupied, model.SourceFeed, "Ana", "r1", now.Add(-time.Hour), now.Add(-time.Hour), now.Add(time.Hour)))

				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "table_status_histories"`)).
					WithArgs(101, Any{}, model.TableOccupied, model.SourceFeed, "Ana", "r1", Any{}, Any{}).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "table_status_opens" WHERE "table_status_opens"."table_id" = $1`)).
					WithArgs(101).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectedFreedIDs: []int64{101},
			expectedFromTo:   [][2]string{{model.TableOccupied, model.TableAvailable}},
		},
		{
			name:   "Status changes, should archive and update",
			states: []merge.TableState{mergedState(102, model.TableOccupied, "r2")},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "table_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openRowCols).
						AddRow(102, model.TableReserved, model.SourceFeed, "Luis", "r2", now.Add(-time.Hour), now.Add(-time.Hour), now.Add(time.Hour)))

				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "table_status_histories"`)).
					WithArgs(102, Any{}, model.TableReserved, model.SourceFeed, "Luis", "r2", Any{}, Any{}).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "table_status_opens"`)).
					WithArgs(model.TableOccupied, model.SourceFeed, "", "r2", Any{}, Any{}, Any{}, 102).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectedFromTo: [][2]string{{model.TableReserved, model.TableOccupied}},
		},
		{
			name:   "No change, should do nothing",
			states: []merge.TableState{mergedState(103, model.TableReserved, "r3")},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "table_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openRowCols).
						AddRow(103, model.TableReserved, model.SourceFeed, "Eva", "r3", now.Add(-time.Hour), now.Add(-time.Hour), now.Add(time.Hour)))
				mock.ExpectBegin()
				// No database writes expected
				mock.ExpectCommit()
			},
		},
		{
			name:   "New non-available status, should create row",
			states: []merge.TableState{mergedState(104, model.TableReserved, "r4")},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "table_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openRowCols))

				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "table_status_opens"`)).
					WithArgs(model.TableReserved, model.SourceFeed, "", "r4", Any{}, Any{}, Any{}, 104).
					WillReturnRows(sqlmock.NewRows([]string{"table_id"}).AddRow(104))
				mock.ExpectCommit()
			},
			expectedFromTo: [][2]string{{model.TableAvailable, model.TableReserved}},
		},
		{
			name:   "Manual maintenance row survives an available suggestion",
			states: []merge.TableState{mergedState(105, model.TableAvailable, "")},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "table_status_opens"`)).
					WillReturnRows(sqlmock.NewRows(openRowCols).
						AddRow(105, model.TableMaintenance, model.SourceManual, "", "", now.Add(-time.Hour), now.Add(-time.Hour), now.Add(time.Hour)))
				mock.ExpectBegin()
				// No database writes expected
				mock.ExpectCommit()
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB)

			tc.mockExpectations(mock)

			freed, transitions, err := store.ApplyMerged(context.Background(), now, tc.states)

			if tc.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.ElementsMatch(t, tc.expectedFreedIDs, freed)

				var fromTo [][2]string
				for _, tr := range transitions {
					fromTo = append(fromTo, [2]string{tr.From, tr.To})
				}
				assert.Equal(t, tc.expectedFromTo, fromTo)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
