package models

import (
	"time"

	"github.com/Marwan8766/travel-planner-api/src/types"
	"gorm.io/gorm"
)

// Booking is one reserved unit-of-sale. Created pending/unpaid when the
// checkout holds inventory; flipped to reserved/paid by a successful
// settlement, or deleted entirely (with a compensating seat release) by a
// failed one. CompanyID is denormalized from the product so settlement
// can route the sale notification without re-resolving the catalog.
type Booking struct {
	ID                    uint                `gorm:"primarykey" json:"id"`
	Paid                  bool                `gorm:"default:false" json:"paid"`
	Status                types.BookingStatus `gorm:"default:'pending'" json:"status"`
	TourID                *uint               `json:"tour_id,omitempty"`
	TripProgramID         *uint               `json:"trip_program_id,omitempty"`
	CompanyID             uint                `json:"company_id,omitempty"`
	UserID                uint                `json:"user_id,omitempty"`
	Quantity              uint                `json:"quantity"`
	UnitPrice             float32             `json:"unit_price"`
	Date                  time.Time           `json:"date"`
	StripePaymentIntentId *string             `json:"-"`

	Tour        *Tour        `gorm:"foreignKey:tour_id" json:"tour,omitempty"`
	TripProgram *TripProgram `gorm:"foreignKey:trip_program_id" json:"trip_program,omitempty"`
	Company     *User        `gorm:"foreignKey:company_id" json:"company,omitempty"`
	User        *User        `gorm:"foreignKey:user_id" json:"-"`

	types.Timestamps
}

// A booking has a tour XOR a trip program, never both and never neither.
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if (b.TourID == nil) == (b.TripProgramID == nil) {
		return types.ErrValidation
	}
	return nil
}

func (b *Booking) ProductType() types.ProductType {
	if b.TourID != nil {
		return types.PRODUCT_TOUR
	}
	return types.PRODUCT_TRIP_PROGRAM
}

func (b *Booking) ProductID() uint {
	if b.TourID != nil {
		return *b.TourID
	}
	if b.TripProgramID != nil {
		return *b.TripProgramID
	}
	return 0
}
