package models

import (
	"time"

	"github.com/Marwan8766/travel-planner-api/src/types"
	"gorm.io/gorm"
)

// Cart is the per-user staging list for checkout. One cart per user.
type Cart struct {
	ID     uint `gorm:"primarykey" json:"id"`
	UserID uint `gorm:"uniqueIndex" json:"user_id"`

	Items []CartItem `gorm:"foreignKey:cart_id;constraint:OnDelete:CASCADE" json:"items"`
	User  User       `gorm:"foreignKey:user_id" json:"-"`

	types.Timestamps
}

// CartItem references exactly one of a tour or a trip program for a given
// travel day. Two items in the same cart never share (product, date);
// duplicates are merged by summing quantity before persisting.
type CartItem struct {
	ID            uint              `gorm:"primarykey" json:"id"`
	CartID        uint              `json:"cart_id,omitempty"`
	TourID        *uint             `json:"tour_id,omitempty"`
	TripProgramID *uint             `json:"trip_program_id,omitempty"`
	Type          types.ProductType `json:"type,omitempty"`
	Quantity      uint              `json:"quantity"`
	Date          time.Time         `json:"date"`

	Tour        *Tour        `gorm:"foreignKey:tour_id" json:"tour,omitempty"`
	TripProgram *TripProgram `gorm:"foreignKey:trip_program_id" json:"trip_program,omitempty"`

	types.Timestamps
}

// Validate enforces the persist-time item invariants: exactly one product
// reference, quantity >= 1 and a travel date not in the past.
func (ci *CartItem) Validate(now time.Time) error {
	if (ci.TourID == nil) == (ci.TripProgramID == nil) {
		return types.ErrValidation
	}
	if ci.Quantity < 1 {
		return types.ErrValidation
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if ci.Date.Before(today) {
		return types.ErrValidation
	}
	return nil
}

func (ci *CartItem) BeforeCreate(tx *gorm.DB) error {
	if ci.TourID != nil {
		ci.Type = types.PRODUCT_TOUR
	} else {
		ci.Type = types.PRODUCT_TRIP_PROGRAM
	}
	return ci.Validate(time.Now())
}

// SameProductAndDate reports whether two items would double-reference one
// availability slot and therefore have to be merged.
func (ci *CartItem) SameProductAndDate(other *CartItem) bool {
	if !ci.Date.Equal(other.Date) {
		return false
	}
	if ci.TourID != nil && other.TourID != nil {
		return *ci.TourID == *other.TourID
	}
	if ci.TripProgramID != nil && other.TripProgramID != nil {
		return *ci.TripProgramID == *other.TripProgramID
	}
	return false
}

// MergeCartItems collapses duplicate (product, date) lines by summing
// quantities, preserving first-seen order.
func MergeCartItems(items []CartItem) []CartItem {
	merged := make([]CartItem, 0, len(items))
	for _, item := range items {
		found := false
		for i := range merged {
			if merged[i].SameProductAndDate(&item) {
				merged[i].Quantity += item.Quantity
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, item)
		}
	}
	return merged
}
