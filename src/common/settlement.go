package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Marwan8766/travel-planner-api/src/config"
	"github.com/Marwan8766/travel-planner-api/src/db"
	"github.com/Marwan8766/travel-planner-api/src/lib"
	"github.com/Marwan8766/travel-planner-api/src/lib/mailer"
	"github.com/Marwan8766/travel-planner-api/src/models"
	"github.com/Marwan8766/travel-planner-api/src/types"
	"github.com/Marwan8766/travel-planner-api/src/utils"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

const settlementEventTTL = 48 * time.Hour

// MarkEventProcessed claims a webhook event id. Returns false when the id
// was already claimed, meaning a redelivery. Redis being down degrades to
// processing the event; the state checks below keep that harmless.
func MarkEventProcessed(eventId string) bool {
	rd := lib.GetRedisClient()
	if rd == nil {
		log.Printf("No redis client available, processing event %s anyway\n", eventId)
		return true
	}
	ok, err := rd.SetNX(context.Background(), fmt.Sprintf("stripe:event:%s", eventId), 1, settlementEventTTL).Result()
	if err != nil {
		log.Printf("Error claiming event %s, processing anyway: %s\n", eventId, err.Error())
		return true
	}
	return ok
}

// ReleaseEventClaim drops a claimed event id after a transient processing
// failure so the provider's redelivery gets another attempt.
func ReleaseEventClaim(eventId string) {
	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	if err := rd.Del(context.Background(), fmt.Sprintf("stripe:event:%s", eventId)).Err(); err != nil {
		log.Printf("Error releasing claim on event %s: %s\n", eventId, err.Error())
	}
}

func bookingItemName(booking *models.Booking) string {
	if booking.Tour != nil {
		return booking.Tour.Name
	}
	if booking.TripProgram != nil {
		return booking.TripProgram.Name
	}
	return fmt.Sprintf("booking %d", booking.ID)
}

func loadSettledBookings(tx *gorm.DB, entries []utils.BookingMetadataEntry) ([]*models.Booking, error) {
	bookings := make([]*models.Booking, 0, len(entries))
	for _, entry := range entries {
		var booking models.Booking
		err := tx.
			Where(&models.Booking{ID: entry.BookingID}).
			Preload("User").
			Preload("Company").
			Preload("Tour").
			Preload("TripProgram").
			First(&booking).
			Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("Booking %d from settlement metadata no longer exists\n", entry.BookingID)
				continue
			}
			return nil, err
		}
		bookings = append(bookings, &booking)
	}
	return bookings, nil
}

func clearCart(tx *gorm.DB, userId uint) error {
	var cart models.Cart
	if err := tx.Where(&models.Cart{UserID: userId}).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := tx.Where(&models.CartItem{CartID: cart.ID}).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&cart).Error
}

// HandleCheckoutCompleted settles a paid checkout session: every booking
// named in the session metadata flips to reserved and paid, its travel
// date is pinned to the date the metadata carried at session creation,
// and the buyer's cart is emptied. Bookings already settled are left
// alone so redelivered events are no-ops.
func HandleCheckoutCompleted(eventId string, cs *stripe.CheckoutSession) error {
	if !MarkEventProcessed(eventId) {
		log.Printf("Event %s already processed, skipping\n", eventId)
		return nil
	}
	entries, err := utils.DecodeBookingMetadata(cs.Metadata)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		log.Printf("Session %s carries no booking metadata\n", cs.ID)
		return nil
	}
	dates := make(map[uint]time.Time, len(entries))
	for _, entry := range entries {
		dates[entry.BookingID] = entry.Date
	}
	var settled []*models.Booking
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		bookings, err := loadSettledBookings(tx, entries)
		if err != nil {
			return err
		}
		clearedUsers := map[uint]bool{}
		for _, booking := range bookings {
			if booking.Status == types.BOOKING_RESERVED && booking.Paid {
				continue
			}
			updates := map[string]any{
				"status": types.BOOKING_RESERVED,
				"paid":   true,
				"date":   dates[booking.ID],
			}
			if cs.PaymentIntent != nil {
				updates["stripe_payment_intent_id"] = cs.PaymentIntent.ID
			}
			if err := tx.
				Model(&models.Booking{}).
				Where(&models.Booking{ID: booking.ID}).
				Updates(updates).
				Error; err != nil {
				return err
			}
			if !clearedUsers[booking.UserID] {
				if err := clearCart(tx, booking.UserID); err != nil {
					return err
				}
				clearedUsers[booking.UserID] = true
			}
			settled = append(settled, booking)
		}
		return nil
	})
	if err != nil {
		log.Printf("Error settling session %s: %s\n", cs.ID, err.Error())
		ReleaseEventClaim(eventId)
		return err
	}
	for _, booking := range settled {
		itemName := bookingItemName(booking)
		if booking.User != nil {
			mailer.SendBookingConfirmation(booking.User.Email, booking.User.Name, itemName, booking.UnitPrice, booking.Quantity)
		}
		if booking.Company != nil && booking.User != nil {
			mailer.SendSaleNotification(booking.Company.Email, booking.User.Name, booking.User.Email, itemName, booking.UnitPrice, booking.Quantity)
		}
	}
	log.Printf("Session %s settled: %d bookings reserved\n", cs.ID, len(settled))
	return nil
}

// HandlePaymentFailed unwinds a failed checkout: each pending booking is
// deleted and, only when its delete matched a live row, its seats return
// to the pool. The buyer's cart is emptied. Bookings a completed event
// already settled are not touched.
func HandlePaymentFailed(eventId string, cs *stripe.CheckoutSession) error {
	if !MarkEventProcessed(eventId) {
		log.Printf("Event %s already processed, skipping\n", eventId)
		return nil
	}
	entries, err := utils.DecodeBookingMetadata(cs.Metadata)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		log.Printf("Session %s carries no booking metadata\n", cs.ID)
		return nil
	}
	var released []*models.Booking
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		bookings, err := loadSettledBookings(tx, entries)
		if err != nil {
			return err
		}
		clearedUsers := map[uint]bool{}
		for _, booking := range bookings {
			if booking.Status == types.BOOKING_RESERVED && booking.Paid {
				continue
			}
			res := tx.Delete(&models.Booking{}, booking.ID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				log.Printf("Booking %d already unwound, not releasing seats\n", booking.ID)
				continue
			}
			if err := utils.ReleaseSeats(tx, booking.ProductType(), booking.ProductID(), booking.Date, int(booking.Quantity)); err != nil {
				if errors.Is(err, types.ErrNotFound) {
					log.Printf("No availability pool to release for booking %d\n", booking.ID)
				} else {
					return err
				}
			}
			if !clearedUsers[booking.UserID] {
				if err := clearCart(tx, booking.UserID); err != nil {
					return err
				}
				clearedUsers[booking.UserID] = true
			}
			released = append(released, booking)
		}
		return nil
	})
	if err != nil {
		log.Printf("Error unwinding session %s: %s\n", cs.ID, err.Error())
		ReleaseEventClaim(eventId)
		return err
	}
	for _, booking := range released {
		if booking.User == nil {
			continue
		}
		itemDate := booking.Date.Format(config.DATE_PARSE_FORMAT)
		mailer.SendPaymentFailed(booking.User.Email, booking.User.Name, bookingItemName(booking), booking.ID, itemDate)
	}
	log.Printf("Session %s unwound: %d bookings released\n", cs.ID, len(released))
	return nil
}

// ReleaseStaleReservations releases pending bookings whose hold outlived
// the reservation TTL. Runs on the scheduler; abandoned checkouts never
// pin inventory forever.
func ReleaseStaleReservations() {
	cutoff := time.Now().Add(-config.GetReservationTTL())
	db := db.GetDb()
	var stale []*models.Booking
	err := db.
		Model(&models.Booking{}).
		Where(&models.Booking{Status: types.BOOKING_PENDING}).
		Where("created_at < ?", cutoff).
		Find(&stale).
		Error
	if err != nil {
		log.Printf("Error listing stale reservations: %s\n", err.Error())
		return
	}
	if len(stale) == 0 {
		return
	}
	if err := utils.ReleaseBookings(stale); err != nil {
		log.Printf("Error releasing stale reservations: %s\n", err.Error())
		return
	}
	log.Printf("Released %d stale reservations older than %s\n", len(stale), cutoff.Format(time.RFC3339))
}
