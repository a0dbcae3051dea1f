package mailer

import (
	"fmt"
	"log"
	"os"

	"github.com/Marwan8766/travel-planner-api/src/lib"
	"github.com/Marwan8766/travel-planner-api/src/types"
)

// NewMailerMessage fans the message out: in local env it is produced onto
// the email topic and drained by the queue worker, otherwise it goes
// straight over SMTP. Failures are logged, never retried here.
func NewMailerMessage(input *lib.SendMailInput) error {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		emailBody := types.JSONB{
			"from":      input.From,
			"from-name": input.FromName,
			"to":        input.To,
			"subject":   input.Subject,
			"body":      input.Body,
			"html":      input.Html,
		}
		if err := lib.KafkaProduceMessage("emails", emailTopic(), emailBody); err != nil {
			return fmt.Errorf("error sending message to queue: %s", err.Error())
		}
		return nil
	}
	return lib.SendMail(input)
}

func emailTopic() string {
	topic := os.Getenv("EMAIL_QUEUE")
	if topic == "" {
		topic = "emails"
	}
	return topic
}

func sender() (string, string) {
	from := os.Getenv("MAIL_FROM")
	if from == "" {
		from = "noreply@travelplanner.app"
	}
	return from, "Travel Planner"
}

func SendBookingConfirmation(toEmail, userName, itemName string, unitPrice float32, quantity uint) {
	body := fmt.Sprintf(`
	<html>
	  <body>
	    <div class="container">
	      <h1>Booking Confirmation</h1>
	      <h2>Thank you for your booking, %s!</h2>
	      <p>You have successfully purchased the following item:</p>
	      <p><strong>Name:</strong> %s</p>
	      <p><strong>Price:</strong> %.2f</p>
	      <p><strong>Quantity:</strong> %d</p>
	    </div>
	  </body>
	</html>`, userName, itemName, unitPrice, quantity)
	from, fromName := sender()
	if err := NewMailerMessage(&lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{toEmail},
		Subject:  "Your Payment was Successful, Thanks for choosing Travel Planner",
		Body:     body,
		Html:     true,
	}); err != nil {
		log.Printf("Error sending booking confirmation to %s: %s\n", toEmail, err.Error())
	}
}

func SendSaleNotification(toEmail, userName, userEmail, itemName string, unitPrice float32, quantity uint) {
	body := fmt.Sprintf(`
	<html>
	  <body>
	    <div class="container">
	      <h1>New Booking Notification</h1>
	      <h2>A customer has successfully booked a tour/trip!</h2>
	      <p><strong>User:</strong> %s</p>
	      <p><strong>Email:</strong> %s</p>
	      <p><strong>Item Name:</strong> %s</p>
	      <p><strong>Price:</strong> %.2f</p>
	      <p><strong>Quantity:</strong> %d</p>
	    </div>
	  </body>
	</html>`, userName, userEmail, itemName, unitPrice, quantity)
	from, fromName := sender()
	if err := NewMailerMessage(&lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{toEmail},
		Subject:  "New Booking Notification - Tour/Trip Sold",
		Body:     body,
		Html:     true,
	}); err != nil {
		log.Printf("Error sending sale notification to %s: %s\n", toEmail, err.Error())
	}
}

func SendPaymentFailed(toEmail, userName, itemName string, bookingId uint, itemDate string) {
	body := fmt.Sprintf(`
	<html>
	  <body>
	    <div class="container">
	      <h1>Payment Unsuccessful</h1>
	      <h2>Dear %s,</h2>
	      <p>We are sorry to inform you that your payment was not successful for the following item:</p>
	      <p><strong>Booking ID:</strong> %d</p>
	      <p><strong>Item Name:</strong> %s</p>
	      <p><strong>Item Date:</strong> %s</p>
	      <p>Please review your payment details and try again. If you have any questions or need assistance, feel free to contact us.</p>
	    </div>
	  </body>
	</html>`, userName, bookingId, itemName, itemDate)
	from, fromName := sender()
	if err := NewMailerMessage(&lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{toEmail},
		Subject:  "Payment Unsuccessful",
		Body:     body,
		Html:     true,
	}); err != nil {
		log.Printf("Error sending payment failed notice to %s: %s\n", toEmail, err.Error())
	}
}
