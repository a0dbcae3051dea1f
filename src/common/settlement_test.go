package common

import (
	"errors"
	"log"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Marwan8766/travel-planner-api/src/db"
	"github.com/Marwan8766/travel-planner-api/src/models"
	"github.com/Marwan8766/travel-planner-api/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	return gormDB, mock
}

func TestHandleCheckoutCompletedRejectsMalformedMetadata(t *testing.T) {
	cs := &stripe.CheckoutSession{
		ID:       "cs_test_1",
		Metadata: map[string]string{"0": "not-a-manifest-line"},
	}

	err := HandleCheckoutCompleted("evt_test_1", cs)

	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestHandleCheckoutCompletedIgnoresEmptyMetadata(t *testing.T) {
	cs := &stripe.CheckoutSession{ID: "cs_test_2", Metadata: map[string]string{}}

	assert.NoError(t, HandleCheckoutCompleted("evt_test_2", cs))
}

func TestHandlePaymentFailedRejectsMalformedMetadata(t *testing.T) {
	cs := &stripe.CheckoutSession{
		ID:       "cs_test_3",
		Metadata: map[string]string{"0": "7"},
	}

	err := HandlePaymentFailed("evt_test_3", cs)

	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestBookingItemName(t *testing.T) {
	withTour := &models.Booking{ID: 1, Tour: &models.Tour{Name: "City Walk"}}
	assert.Equal(t, "City Walk", bookingItemName(withTour))

	withProgram := &models.Booking{ID: 2, TripProgram: &models.TripProgram{Name: "Nile Cruise"}}
	assert.Equal(t, "Nile Cruise", bookingItemName(withProgram))

	bare := &models.Booking{ID: 3}
	assert.Equal(t, "booking 3", bookingItemName(bare))
}

func TestHandleCheckoutCompletedReplayIsNoOp(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "paid", "status", "tour_id", "company_id", "user_id", "quantity", "date"}).
			AddRow(7, true, "reserved", 1, 3, 2, 2, date))
	mock.ExpectQuery(`SELECT .* FROM "tours"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "City Walk"))
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	cs := &stripe.CheckoutSession{
		ID:       "cs_replay",
		Metadata: map[string]string{"0": "7,2030-06-01T00:00:00Z"},
	}

	assert.NoError(t, HandleCheckoutCompleted("evt_replay", cs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlePaymentFailedRestoresInventoryAndClearsCart(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "paid", "status", "tour_id", "company_id", "user_id", "quantity", "date"}).
			AddRow(7, false, "pending", 1, 3, 2, 2, date))
	mock.ExpectQuery(`SELECT .* FROM "tours"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "City Walk"))
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`UPDATE "bookings"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "availabilities"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM "carts"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(9, 2))
	mock.ExpectExec(`UPDATE "cart_items"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "carts"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cs := &stripe.CheckoutSession{
		ID:       "cs_failed",
		Metadata: map[string]string{"0": "7,2030-06-01T00:00:00Z"},
	}

	assert.NoError(t, HandlePaymentFailed("evt_failed", cs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCheckoutCompletedSurfacesStorageErrors(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "bookings"`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	cs := &stripe.CheckoutSession{
		ID:       "cs_transient",
		Metadata: map[string]string{"0": "7,2030-06-01T00:00:00Z"},
	}

	err := HandleCheckoutCompleted("evt_transient", cs)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
