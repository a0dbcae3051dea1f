package models

import (
	"time"

	"github.com/Marwan8766/travel-planner-api/src/types"
)

// Availability is the per-(product, calendar day) seat pool. Exactly one
// row may exist per product and day; the composite unique index enforces
// it. AvailableSeats never goes below zero: every decrement happens
// through a conditional UPDATE guarded by `available_seats >= qty`.
type Availability struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	TourID         *uint     `gorm:"uniqueIndex:idx_tour_date" json:"tour_id,omitempty"`
	TripProgramID  *uint     `gorm:"uniqueIndex:idx_trip_program_date" json:"trip_program_id,omitempty"`
	Date           time.Time `gorm:"uniqueIndex:idx_tour_date;uniqueIndex:idx_trip_program_date" json:"date"`
	AvailableSeats int       `json:"available_seats"`

	Tour        *Tour        `gorm:"foreignKey:tour_id" json:"-"`
	TripProgram *TripProgram `gorm:"foreignKey:trip_program_id" json:"-"`

	types.Timestamps
}

// ProductType reports which of the two product references is set.
func (a *Availability) ProductType() types.ProductType {
	if a.TourID != nil {
		return types.PRODUCT_TOUR
	}
	return types.PRODUCT_TRIP_PROGRAM
}
