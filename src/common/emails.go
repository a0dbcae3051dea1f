package common

import (
	"log"
	"os"

	"github.com/Marwan8766/travel-planner-api/src/lib"
	"github.com/tidwall/gjson"
)

// EmailsConsumer drains the local email queue and delivers over SMTP.
// Only wired up when API_ENV is local; other environments send directly.
func EmailsConsumer() {
	topic := os.Getenv("EMAIL_QUEUE")
	if topic == "" {
		topic = "emails"
	}
	log.Printf("%s: Listening for messages...", topic)
	lib.KafkaConsumeMessages("EmailsConsumerGroup", topic, func(value []byte) {
		body := string(value)
		if !gjson.Valid(body) {
			log.Printf("[%s]: Received invalid json body. Aborting", topic)
			return
		}
		to := []string{}
		for _, recipient := range gjson.Get(body, "to").Array() {
			to = append(to, recipient.String())
		}
		input := &lib.SendMailInput{
			From:     gjson.Get(body, "from").String(),
			FromName: gjson.Get(body, "from-name").String(),
			To:       to,
			Subject:  gjson.Get(body, "subject").String(),
			Body:     gjson.Get(body, "body").String(),
			Html:     gjson.Get(body, "html").Bool(),
		}
		if err := lib.SendMail(input); err != nil {
			log.Printf("[%s]: Error sending email: %s\n", topic, err.Error())
		}
	})
}
