package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/Marwan8766/travel-planner-api/src/common"
	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeWebhookRoute receives settlement events. Once an event parses it
// is always acknowledged with 2xx, even when processing fails; otherwise
// Stripe keeps redelivering an event we will never be able to handle.
// Processing failures are logged and left for redelivery plus the
// idempotency guard to sort out.
func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		switch event.Type {
		case "checkout.session.completed":
			var cs stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			if cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
				// Async payment method; settlement arrives with the
				// async_payment_succeeded or async_payment_failed event.
				log.Printf("[CheckoutSession] %s completed but unpaid, awaiting async result\n", cs.ID)
				break
			}
			go func() {
				if err := common.HandleCheckoutCompleted(event.ID, &cs); err != nil {
					log.Printf("Error handling completed session %s: %s\n", cs.ID, err.Error())
				}
			}()
		case "checkout.session.async_payment_succeeded":
			var cs stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			go func() {
				if err := common.HandleCheckoutCompleted(event.ID, &cs); err != nil {
					log.Printf("Error handling completed session %s: %s\n", cs.ID, err.Error())
				}
			}()
		case "checkout.session.async_payment_failed", "checkout.session.expired":
			var cs stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
				log.Printf("[Stripe] Error parsing CheckoutSession: %s\n", err.Error())
				break
			}
			go func() {
				if err := common.HandlePaymentFailed(event.ID, &cs); err != nil {
					log.Printf("Error unwinding session %s: %s\n", cs.ID, err.Error())
				}
			}()
		}
		ctx.Status(http.StatusNoContent)
	})
	return apiv1
}
