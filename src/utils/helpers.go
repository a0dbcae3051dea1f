package utils

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Marwan8766/travel-planner-api/src/config"
	"github.com/Marwan8766/travel-planner-api/src/db"
	"github.com/Marwan8766/travel-planner-api/src/lib"
	"github.com/Marwan8766/travel-planner-api/src/models"
	"github.com/Marwan8766/travel-planner-api/src/types"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductInfo is the catalog snapshot the booking pipeline needs: price
// and owning company at hold time, name for the checkout line item.
type ProductInfo struct {
	Name         string
	Price        float32
	CompanyID    uint
	CompanyName  string
	CompanyEmail string
}

func productColumn(itemType types.ProductType) string {
	if itemType == types.PRODUCT_TRIP_PROGRAM {
		return "trip_program_id"
	}
	return "tour_id"
}

func LookupProduct(tx *gorm.DB, itemType types.ProductType, id uint) (*ProductInfo, error) {
	switch itemType {
	case types.PRODUCT_TOUR:
		var tour models.Tour
		if err := tx.Where(&models.Tour{ID: id}).Preload("Company").First(&tour).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, types.ErrNotFound
			}
			return nil, err
		}
		return &ProductInfo{
			Name:         tour.Name,
			Price:        tour.Price,
			CompanyID:    tour.CompanyID,
			CompanyName:  tour.Company.Name,
			CompanyEmail: tour.Company.Email,
		}, nil
	case types.PRODUCT_TRIP_PROGRAM:
		var program models.TripProgram
		if err := tx.Where(&models.TripProgram{ID: id}).Preload("Company").First(&program).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, types.ErrNotFound
			}
			return nil, err
		}
		return &ProductInfo{
			Name:         program.Name,
			Price:        program.Price,
			CompanyID:    program.CompanyID,
			CompanyName:  program.Company.Name,
			CompanyEmail: program.Company.Email,
		}, nil
	default:
		return nil, types.ErrValidation
	}
}

// CanManageProduct decides whether a user may change availability for the
// given product. Admins manage everything; a company account manages only
// its own products.
func CanManageProduct(tx *gorm.DB, userId uint, role types.UserRole, itemType types.ProductType, productId uint) (bool, error) {
	if role == types.ROLE_ADMIN {
		return true, nil
	}
	if role != types.ROLE_COMPANY {
		return false, nil
	}
	info, err := LookupProduct(tx, itemType, productId)
	if err != nil {
		return false, err
	}
	return info.CompanyID == userId, nil
}

// CreateAvailabilitySlots creates one seat pool per calendar day in
// [start, end]. Days that already have a pool are left untouched and do
// not appear in the returned slice; callers only see rows actually
// inserted.
func CreateAvailabilitySlots(itemType types.ProductType, productId uint, start time.Time, end time.Time, seats int) ([]models.Availability, error) {
	if seats < 0 || end.Before(start) {
		return nil, types.ErrValidation
	}
	var slots []models.Availability
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := LookupProduct(tx, itemType, productId); err != nil {
			return err
		}
		var existing []time.Time
		err := tx.
			Model(&models.Availability{}).
			Where(fmt.Sprintf("%s = ? AND date BETWEEN ? AND ?", productColumn(itemType)), productId, start, end).
			Pluck("date", &existing).
			Error
		if err != nil {
			return err
		}
		taken := make(map[string]bool, len(existing))
		for _, d := range existing {
			taken[d.UTC().Format(config.DATE_PARSE_FORMAT)] = true
		}
		for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
			if taken[date.UTC().Format(config.DATE_PARSE_FORMAT)] {
				continue
			}
			slot := models.Availability{Date: date, AvailableSeats: seats}
			if itemType == types.PRODUCT_TOUR {
				id := productId
				slot.TourID = &id
			} else {
				id := productId
				slot.TripProgramID = &id
			}
			slots = append(slots, slot)
		}
		if len(slots) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&slots).Error
	})
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func GetAvailabilities(itemType types.ProductType, productId uint, start *time.Time, end *time.Time) ([]models.Availability, error) {
	var slots []models.Availability
	db := db.GetDb()
	tx := db.
		Model(&models.Availability{}).
		Where(fmt.Sprintf("%s = ?", productColumn(itemType)), productId)
	if start != nil {
		tx = tx.Where("date >= ?", *start)
	}
	if end != nil {
		tx = tx.Where("date <= ?", *end)
	}
	if err := tx.Order("date asc").Find(&slots).Error; err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, types.ErrNotFound
	}
	return slots, nil
}

// CheckSeatsAvailable is the read-only counterpart of HoldSeats used at
// cart time. It holds nothing; the authoritative check happens again
// inside the checkout transaction.
func CheckSeatsAvailable(tx *gorm.DB, itemType types.ProductType, productId uint, date time.Time, qty int) error {
	slot, err := GetAvailability(tx, itemType, productId, date)
	if err != nil {
		return err
	}
	if slot.AvailableSeats < qty {
		return types.ErrInsufficientInventory
	}
	return nil
}

// PruneUnavailableItems drops cart lines whose seat pool is gone or no
// longer covers their quantity. A fetched cart only shows lines that
// could still check out; stale lines are deleted, not just hidden.
func PruneUnavailableItems(tx *gorm.DB, cart *models.Cart) error {
	kept := make([]models.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		var productId uint
		if item.TourID != nil {
			productId = *item.TourID
		} else if item.TripProgramID != nil {
			productId = *item.TripProgramID
		}
		err := CheckSeatsAvailable(tx, item.Type, productId, item.Date, int(item.Quantity))
		if err == nil {
			kept = append(kept, item)
			continue
		}
		if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInsufficientInventory) {
			log.Printf("Pruning cart item %d, availability no longer covers it\n", item.ID)
			if err := tx.Delete(&models.CartItem{}, item.ID).Error; err != nil {
				return err
			}
			continue
		}
		return err
	}
	cart.Items = kept
	return nil
}

func GetAvailability(tx *gorm.DB, itemType types.ProductType, productId uint, date time.Time) (*models.Availability, error) {
	var slot models.Availability
	err := tx.
		Where(fmt.Sprintf("%s = ? AND date = ?", productColumn(itemType)), productId, date).
		First(&slot).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &slot, nil
}

func UpdateAvailabilitySlot(itemType types.ProductType, productId uint, date time.Time, seats *int, newDate *time.Time) (*models.Availability, error) {
	var slot models.Availability
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		found, err := GetAvailability(tx, itemType, productId, date)
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if seats != nil {
			updates["available_seats"] = *seats
		}
		if newDate != nil {
			updates["date"] = *newDate
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Availability{}).Where(&models.Availability{ID: found.ID}).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Where(&models.Availability{ID: found.ID}).First(&slot).Error
	})
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func DeleteAvailabilitySlot(itemType types.ProductType, productId uint, date time.Time) error {
	db := db.GetDb()
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where(fmt.Sprintf("%s = ? AND date = ?", productColumn(itemType)), productId, date).
			Delete(&models.Availability{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.ErrNotFound
		}
		return nil
	})
}

// HoldSeats decrements a seat pool with a single conditional UPDATE. The
// `available_seats >= qty` guard makes concurrent holds race-free: two
// competing requests serialize on the row and the loser sees zero rows
// affected. A zero-row result is disambiguated into ErrNotFound when the
// pool does not exist at all.
func HoldSeats(tx *gorm.DB, itemType types.ProductType, productId uint, date time.Time, qty int) error {
	column := productColumn(itemType)
	res := tx.
		Model(&models.Availability{}).
		Where(fmt.Sprintf("%s = ? AND date = ? AND available_seats >= ?", column), productId, date, qty).
		Update("available_seats", gorm.Expr("available_seats - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.
			Model(&models.Availability{}).
			Where(fmt.Sprintf("%s = ? AND date = ?", column), productId, date).
			Count(&count).
			Error; err != nil {
			return err
		}
		if count == 0 {
			return types.ErrNotFound
		}
		return types.ErrInsufficientInventory
	}
	return nil
}

// ReleaseSeats gives qty seats back to the pool. The compensating half of
// HoldSeats; releasing into a missing pool is reported as ErrNotFound so
// callers can log it, the seats are gone either way.
func ReleaseSeats(tx *gorm.DB, itemType types.ProductType, productId uint, date time.Time, qty int) error {
	res := tx.
		Model(&models.Availability{}).
		Where(fmt.Sprintf("%s = ? AND date = ?", productColumn(itemType)), productId, date).
		Update("available_seats", gorm.Expr("available_seats + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// CheckoutLine pairs a pending booking with the catalog snapshot taken
// inside the hold transaction, so the Stripe session is built without
// re-reading the catalog after commit.
type CheckoutLine struct {
	Booking *models.Booking
	Product *ProductInfo
}

// CheckoutCart turns the user's cart into held inventory plus pending
// bookings, all inside one transaction. Either every line holds its seats
// or the whole checkout rolls back and no inventory moves. The Stripe
// session is created only after the commit; if that call fails the held
// seats are released and the bookings deleted before the error surfaces.
func CheckoutCart(userId uint) (*string, error) {
	db := db.GetDb()
	var user models.User
	lines := []CheckoutLine{}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&models.User{ID: userId}).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrNotFound
			}
			return err
		}
		var cart models.Cart
		if err := tx.Where(&models.Cart{UserID: userId}).Preload("Items").First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrEmptyCart
			}
			return err
		}
		if len(cart.Items) == 0 {
			return types.ErrEmptyCart
		}
		items := models.MergeCartItems(cart.Items)
		for _, item := range items {
			var productId uint
			if item.TourID != nil {
				productId = *item.TourID
			} else if item.TripProgramID != nil {
				productId = *item.TripProgramID
			}
			info, err := LookupProduct(tx, item.Type, productId)
			if err != nil {
				return err
			}
			if err := HoldSeats(tx, item.Type, productId, item.Date, int(item.Quantity)); err != nil {
				return fmt.Errorf("%s %q on %s: %w", item.Type, info.Name, item.Date.Format(config.DATE_PARSE_FORMAT), err)
			}
			booking := models.Booking{
				TourID:        item.TourID,
				TripProgramID: item.TripProgramID,
				CompanyID:     info.CompanyID,
				UserID:        userId,
				Quantity:      item.Quantity,
				UnitPrice:     info.Price,
				Date:          item.Date,
				Status:        types.BOOKING_PENDING,
			}
			if err := tx.Create(&booking).Error; err != nil {
				return err
			}
			lines = append(lines, CheckoutLine{Booking: &booking, Product: info})
		}
		return nil
	})
	if err != nil {
		log.Printf("CheckoutCart failed: userId=%d error=%s\n", userId, err.Error())
		return nil, err
	}

	checkoutURL, err := CreateCheckoutSession(&user, lines)
	if err != nil {
		log.Printf("Error creating checkout session: %s\n", err.Error())
		bookings := make([]*models.Booking, 0, len(lines))
		for _, line := range lines {
			bookings = append(bookings, line.Booking)
		}
		if rbErr := ReleaseBookings(bookings); rbErr != nil {
			log.Printf("Error releasing bookings after session failure: %s\n", rbErr.Error())
		}
		return nil, types.ErrExternalService
	}
	return checkoutURL, nil
}

// ReleaseBookings undoes pending bookings. The booking row is removed
// first; only a delete that matched a live row releases its seats, so
// concurrent unwinds of the same booking (sweep racing a failed-payment
// event) cannot both credit the pool.
func ReleaseBookings(bookings []*models.Booking) error {
	db := db.GetDb()
	return db.Transaction(func(tx *gorm.DB) error {
		for _, booking := range bookings {
			res := tx.Delete(&models.Booking{}, booking.ID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				log.Printf("Booking %d already unwound, not releasing seats\n", booking.ID)
				continue
			}
			if err := ReleaseSeats(tx, booking.ProductType(), booking.ProductID(), booking.Date, int(booking.Quantity)); err != nil {
				if errors.Is(err, types.ErrNotFound) {
					log.Printf("No availability pool to release for booking %d\n", booking.ID)
				} else {
					return err
				}
			}
		}
		return nil
	})
}

// EncodeBookingMetadata packs the settlement manifest into the flat
// string map Stripe carries on a session. Keys are line positions, values
// are "bookingID,RFC3339 date" so the webhook can reconstruct what was
// sold without trusting its own database timing.
func EncodeBookingMetadata(lines []CheckoutLine) map[string]string {
	metadata := make(map[string]string, len(lines))
	for i, line := range lines {
		metadata[strconv.Itoa(i)] = fmt.Sprintf("%d,%s", line.Booking.ID, line.Booking.Date.UTC().Format(time.RFC3339))
	}
	return metadata
}

// BookingMetadataEntry is one decoded settlement manifest line.
type BookingMetadataEntry struct {
	BookingID uint
	Date      time.Time
}

// DecodeBookingMetadata reverses EncodeBookingMetadata, restoring line
// order. Non-numeric keys (Stripe adds its own) are skipped; a malformed
// value fails the whole decode.
func DecodeBookingMetadata(metadata map[string]string) ([]BookingMetadataEntry, error) {
	type indexed struct {
		pos   int
		entry BookingMetadataEntry
	}
	decoded := []indexed{}
	for key, value := range metadata {
		pos, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		parts := strings.SplitN(value, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed booking metadata at key %q: %w", key, types.ErrValidation)
		}
		bookingId, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed booking id at key %q: %w", key, types.ErrValidation)
		}
		date, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("malformed booking date at key %q: %w", key, types.ErrValidation)
		}
		decoded = append(decoded, indexed{pos: pos, entry: BookingMetadataEntry{BookingID: uint(bookingId), Date: date}})
	}
	sort.Slice(decoded, func(i, j int) bool { return decoded[i].pos < decoded[j].pos })
	entries := make([]BookingMetadataEntry, 0, len(decoded))
	for _, d := range decoded {
		entries = append(entries, d.entry)
	}
	return entries, nil
}

// BuildLineItems renders checkout lines as inline price data. Amounts go
// to Stripe in the currency's minimum unit.
func BuildLineItems(lines []CheckoutLine) []*stripe.CheckoutSessionCreateLineItemParams {
	const MINIMUM_UNITS float32 = 100
	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(lines))
	for _, line := range lines {
		description := fmt.Sprintf("%s by %s on %s", line.Product.Name, line.Product.CompanyName, line.Booking.Date.Format(config.DATE_PARSE_FORMAT))
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String("usd"),
				UnitAmount: stripe.Int64(int64(line.Product.Price * MINIMUM_UNITS)),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name:        stripe.String(line.Product.Name),
					Description: stripe.String(description),
				},
			},
			Quantity: stripe.Int64(int64(line.Booking.Quantity)),
		})
	}
	return lineItems
}

func CreateCheckoutSession(user *models.User, lines []CheckoutLine) (*string, error) {
	sc := lib.GetStripeClient()
	appHost := os.Getenv("APP_HOST")
	successUrl := fmt.Sprintf("%s/checkout/callback/success", appHost)
	cancelUrl := fmt.Sprintf("%s/checkout/callback/cancel", appHost)
	metadata := EncodeBookingMetadata(lines)
	metadata["request_id"] = uuid.New().String()
	createParams := stripe.CheckoutSessionCreateParams{
		SuccessURL:    stripe.String(successUrl),
		CancelURL:     stripe.String(cancelUrl),
		UIMode:        stripe.String("hosted"),
		Mode:          stripe.String("payment"),
		CustomerEmail: stripe.String(user.Email),
		LineItems:     BuildLineItems(lines),
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		},
		Metadata: metadata,
	}
	checkoutSession, err := sc.V1CheckoutSessions.Create(context.Background(), &createParams)
	if err != nil {
		return nil, err
	}
	log.Printf("CheckoutSessionID: %s\n", checkoutSession.ID)
	return &checkoutSession.URL, nil
}

// GetOwnBookings lists a user's settled bookings, newest first.
func GetOwnBookings(userId uint, page int, limit int) ([]models.Booking, error) {
	db := db.GetDb()
	var bookings []models.Booking
	err := db.
		Model(&models.Booking{}).
		Where(&models.Booking{UserID: userId, Status: types.BOOKING_RESERVED, Paid: true}).
		Preload("Tour").
		Preload("TripProgram").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&bookings).
		Error
	return bookings, err
}

func DeleteOwnBooking(userId uint, bookingId uint) error {
	db := db.GetDb()
	return db.Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Where(&models.Booking{ID: bookingId, UserID: userId}).First(&booking).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrNotFound
			}
			return err
		}
		return tx.Delete(&booking).Error
	})
}
