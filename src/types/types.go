package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Metadata map[string]any

// Error taxonomy shared by handlers and workflow helpers. Handlers map
// these to HTTP statuses with errors.Is; anything unrecognized is treated
// as a generic failure.
var (
	ErrValidation            = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrInsufficientInventory = errors.New("insufficient seats available")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrExternalService       = errors.New("external service unavailable")
)

type ProductType string

const (
	PRODUCT_TOUR         ProductType = "tour"
	PRODUCT_TRIP_PROGRAM ProductType = "tripProgram"
)

type BookingStatus string

const (
	BOOKING_PENDING  BookingStatus = "pending"
	BOOKING_RESERVED BookingStatus = "reserved"
)

type UserRole string

const (
	ROLE_USER    UserRole = "user"
	ROLE_COMPANY UserRole = "company"
	ROLE_ADMIN   UserRole = "admin"
)

type ProductURIParams struct {
	ItemType ProductType `uri:"itemType" binding:"required,oneof=tour tripProgram"`
	ID       uint        `uri:"id" binding:"required"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type CreateAvailabilityRequestBody struct {
	StartDate      string `json:"start_date" binding:"required,bookabledate" time_format:"2006-01-02"`
	EndDate        string `json:"end_date" binding:"required,bookabledate" time_format:"2006-01-02"`
	AvailableSeats int    `json:"available_seats" binding:"min=0"`
}

type UpdateAvailabilityRequestBody struct {
	Date           string  `json:"date" binding:"required" time_format:"2006-01-02"`
	AvailableSeats *int    `json:"available_seats,omitempty" binding:"omitempty,min=0"`
	NewDate        *string `json:"new_date,omitempty" binding:"omitempty,bookabledate" time_format:"2006-01-02"`
}

type DeleteAvailabilityRequestBody struct {
	Date string `json:"date" binding:"required" time_format:"2006-01-02"`
}

type AvailabilityRangeQuery struct {
	StartDate string `form:"start_date,omitempty" binding:"omitempty" time_format:"2006-01-02"`
	EndDate   string `form:"end_date,omitempty" binding:"omitempty" time_format:"2006-01-02"`
}

type CartItemRequest struct {
	TourID        *uint  `json:"tour,omitempty"`
	TripProgramID *uint  `json:"trip_program,omitempty"`
	Quantity      uint   `json:"quantity" binding:"required,min=1"`
	Date          string `json:"date" binding:"required,bookabledate" time_format:"2006-01-02"`
}

type CreateCartRequestBody struct {
	Items []CartItemRequest `json:"items" binding:"required,min=1,dive"`
}

type AddCartItemRequestBody struct {
	Item CartItemRequest `json:"item" binding:"required"`
}

type RemoveCartItemRequestBody struct {
	ItemID uint `json:"item_id" binding:"required"`
}

type PaginationQuery struct {
	Page  int `form:"page,default=1" binding:"omitempty,min=1"`
	Limit int `form:"limit,default=5" binding:"omitempty,min=1,max=100"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}
