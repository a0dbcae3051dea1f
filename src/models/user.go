package models

import (
	"github.com/Marwan8766/travel-planner-api/src/types"
)

// User doubles as a company account when Role is "company"; bookings are
// routed to the owning company for the sale notification.
type User struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	Name            string         `json:"name,omitempty"`
	Email           string         `json:"email,omitempty"`
	Role            types.UserRole `gorm:"default:'user'" json:"role,omitempty"`
	StripeAccountId *string        `json:"-"`

	Bookings []Booking `gorm:"foreignKey:user_id" json:"bookings,omitempty"`

	types.Timestamps
}
