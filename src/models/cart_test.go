package models

import (
	"testing"
	"time"

	"github.com/Marwan8766/travel-planner-api/src/types"
	"github.com/stretchr/testify/assert"
)

func uintPtr(v uint) *uint {
	return &v
}

func TestMergeCartItems(t *testing.T) {
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	otherDate := date.AddDate(0, 0, 1)

	items := []CartItem{
		{TourID: uintPtr(1), Quantity: 2, Date: date},
		{TripProgramID: uintPtr(1), Quantity: 1, Date: date},
		{TourID: uintPtr(1), Quantity: 3, Date: date},
		{TourID: uintPtr(1), Quantity: 4, Date: otherDate},
	}
	merged := MergeCartItems(items)

	assert.Len(t, merged, 3)
	assert.Equal(t, uint(5), merged[0].Quantity, "duplicate lines should sum quantities")
	assert.Equal(t, uint(1), merged[1].Quantity, "a trip program does not merge with a tour of the same id")
	assert.Equal(t, uint(4), merged[2].Quantity, "same product on a different day stays separate")
}

func TestMergeCartItemsPreservesOrder(t *testing.T) {
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	items := []CartItem{
		{TourID: uintPtr(7), Quantity: 1, Date: date},
		{TourID: uintPtr(3), Quantity: 1, Date: date},
		{TourID: uintPtr(7), Quantity: 1, Date: date},
	}
	merged := MergeCartItems(items)

	assert.Len(t, merged, 2)
	assert.Equal(t, uint(7), *merged[0].TourID)
	assert.Equal(t, uint(3), *merged[1].TourID)
}

func TestCartItemValidate(t *testing.T) {
	now := time.Date(2030, 6, 15, 13, 30, 0, 0, time.UTC)
	today := time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC)

	valid := CartItem{TourID: uintPtr(1), Quantity: 1, Date: today}
	assert.NoError(t, valid.Validate(now))

	bothRefs := CartItem{TourID: uintPtr(1), TripProgramID: uintPtr(2), Quantity: 1, Date: today}
	assert.ErrorIs(t, bothRefs.Validate(now), types.ErrValidation)

	noRefs := CartItem{Quantity: 1, Date: today}
	assert.ErrorIs(t, noRefs.Validate(now), types.ErrValidation)

	zeroQty := CartItem{TourID: uintPtr(1), Quantity: 0, Date: today}
	assert.ErrorIs(t, zeroQty.Validate(now), types.ErrValidation)

	pastDate := CartItem{TourID: uintPtr(1), Quantity: 1, Date: today.AddDate(0, 0, -1)}
	assert.ErrorIs(t, pastDate.Validate(now), types.ErrValidation)

	future := CartItem{TripProgramID: uintPtr(1), Quantity: 2, Date: today.AddDate(0, 1, 0)}
	assert.NoError(t, future.Validate(now))
}

func TestSameProductAndDate(t *testing.T) {
	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)

	a := CartItem{TourID: uintPtr(1), Date: date}
	b := CartItem{TourID: uintPtr(1), Date: date}
	assert.True(t, a.SameProductAndDate(&b))

	c := CartItem{TripProgramID: uintPtr(1), Date: date}
	assert.False(t, a.SameProductAndDate(&c))

	d := CartItem{TourID: uintPtr(1), Date: date.AddDate(0, 0, 1)}
	assert.False(t, a.SameProductAndDate(&d))
}
