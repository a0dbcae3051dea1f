package utils

import (
	"log"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Marwan8766/travel-planner-api/src/db"
	"github.com/Marwan8766/travel-planner-api/src/models"
	"github.com/Marwan8766/travel-planner-api/src/types"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	return gormDB, mock
}

func uintPtr(v uint) *uint {
	return &v
}

func TestHoldSeats(t *testing.T) {
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("decrements when enough seats remain", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE "availabilities"`).WillReturnResult(sqlmock.NewResult(0, 1))

		err := HoldSeats(gormDB, types.PRODUCT_TOUR, 1, date, 2)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports insufficient inventory when the guard rejects", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE "availabilities"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT count`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := HoldSeats(gormDB, types.PRODUCT_TOUR, 1, date, 50)

		assert.ErrorIs(t, err, types.ErrInsufficientInventory)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports not found when no pool exists", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE "availabilities"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT count`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err := HoldSeats(gormDB, types.PRODUCT_TRIP_PROGRAM, 9, date, 1)

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReleaseSeats(t *testing.T) {
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("increments the pool", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE "availabilities"`).WillReturnResult(sqlmock.NewResult(0, 1))

		err := ReleaseSeats(gormDB, types.PRODUCT_TOUR, 1, date, 2)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports not found for a missing pool", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE "availabilities"`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := ReleaseSeats(gormDB, types.PRODUCT_TOUR, 1, date, 2)

		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestBookingMetadataRoundTrip(t *testing.T) {
	firstDate := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	secondDate := time.Date(2030, 7, 15, 0, 0, 0, 0, time.UTC)
	lines := []CheckoutLine{
		{Booking: &models.Booking{ID: 12, TourID: uintPtr(1), Date: firstDate}},
		{Booking: &models.Booking{ID: 34, TripProgramID: uintPtr(2), Date: secondDate}},
	}

	metadata := EncodeBookingMetadata(lines)
	assert.Len(t, metadata, 2)
	assert.Equal(t, "12,2030-06-01T00:00:00Z", metadata["0"])
	assert.Equal(t, "34,2030-07-15T00:00:00Z", metadata["1"])

	entries, err := DecodeBookingMetadata(metadata)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, uint(12), entries[0].BookingID)
	assert.True(t, entries[0].Date.Equal(firstDate))
	assert.Equal(t, uint(34), entries[1].BookingID)
	assert.True(t, entries[1].Date.Equal(secondDate))
}

func TestDecodeBookingMetadataSkipsForeignKeys(t *testing.T) {
	metadata := map[string]string{
		"0":          "7,2030-06-01T00:00:00Z",
		"request_id": "abc-123",
	}
	entries, err := DecodeBookingMetadata(metadata)

	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, uint(7), entries[0].BookingID)
}

func TestDecodeBookingMetadataMalformed(t *testing.T) {
	for name, value := range map[string]string{
		"missing separator": "7",
		"bad id":            "seven,2030-06-01T00:00:00Z",
		"bad date":          "7,June 1st",
	} {
		_, err := DecodeBookingMetadata(map[string]string{"0": value})
		assert.ErrorIs(t, err, types.ErrValidation, name)
	}
}

func TestDecodeBookingMetadataRestoresOrder(t *testing.T) {
	metadata := map[string]string{
		"2": "3,2030-06-03T00:00:00Z",
		"0": "1,2030-06-01T00:00:00Z",
		"1": "2,2030-06-02T00:00:00Z",
	}
	entries, err := DecodeBookingMetadata(metadata)

	assert.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, []uint{entries[0].BookingID, entries[1].BookingID, entries[2].BookingID})
}

func TestBuildLineItems(t *testing.T) {
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	lines := []CheckoutLine{
		{
			Booking: &models.Booking{ID: 1, TourID: uintPtr(1), Quantity: 3, Date: date},
			Product: &ProductInfo{Name: "Desert Safari", Price: 49.50, CompanyName: "Dune Tours"},
		},
	}

	items := BuildLineItems(lines)

	assert.Len(t, items, 1)
	assert.Equal(t, int64(4950), *items[0].PriceData.UnitAmount)
	assert.Equal(t, int64(3), *items[0].Quantity)
	assert.Equal(t, "Desert Safari", *items[0].PriceData.ProductData.Name)
	assert.Contains(t, *items[0].PriceData.ProductData.Description, "Dune Tours")
	assert.Contains(t, *items[0].PriceData.ProductData.Description, "2030-06-01")
}

func TestReleaseBookings(t *testing.T) {
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	booking := &models.Booking{ID: 5, TourID: uintPtr(1), Quantity: 2, Date: date}

	t.Run("removes the booking before crediting the pool", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		db.NewDB(gormDB)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "bookings"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "availabilities"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, ReleaseBookings([]*models.Booking{booking}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("does not credit the pool for a booking already unwound", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		db.NewDB(gormDB)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "bookings"`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		assert.NoError(t, ReleaseBookings([]*models.Booking{booking}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateAvailabilitySlotsReturnsOnlyNewDays(t *testing.T) {
	gormDB, mock := newMockDB(t)
	db.NewDB(gormDB)
	start := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "tours"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "company_id"}).AddRow(1, "City Walk", 25, 3))
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(3, "Wander Co", "sales@wander.test"))
	mock.ExpectQuery(`SELECT "date" FROM "availabilities"`).
		WillReturnRows(sqlmock.NewRows([]string{"date"}).AddRow(start))
	mock.ExpectQuery(`INSERT INTO "availabilities"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	slots, err := CreateAvailabilitySlots(types.PRODUCT_TOUR, 1, start, end, 20)

	assert.NoError(t, err)
	assert.Len(t, slots, 1)
	assert.True(t, slots[0].Date.Equal(end))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPruneUnavailableItems(t *testing.T) {
	gormDB, mock := newMockDB(t)
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	cart := &models.Cart{ID: 9, Items: []models.CartItem{
		{ID: 1, CartID: 9, TourID: uintPtr(1), Type: types.PRODUCT_TOUR, Quantity: 2, Date: date},
		{ID: 2, CartID: 9, TourID: uintPtr(2), Type: types.PRODUCT_TOUR, Quantity: 4, Date: date},
	}}

	mock.ExpectQuery(`SELECT .* FROM "availabilities"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "available_seats"}).AddRow(11, 5))
	mock.ExpectQuery(`SELECT .* FROM "availabilities"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "available_seats"}).AddRow(12, 1))
	mock.ExpectExec(`UPDATE "cart_items"`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := PruneUnavailableItems(gormDB, cart)

	assert.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, uint(1), cart.Items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
