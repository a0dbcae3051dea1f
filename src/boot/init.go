package boot

import (
	"log"
	"os"
	"time"

	"github.com/Marwan8766/travel-planner-api/src/common"
	"github.com/Marwan8766/travel-planner-api/src/db"
	"github.com/Marwan8766/travel-planner-api/src/lib"
	"github.com/Marwan8766/travel-planner-api/src/models"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Tour{},
		&models.TripProgram{},
		&models.Availability{},
		&models.Cart{},
		&models.CartItem{},
		&models.Booking{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler starts the background scheduler with the stale
// reservation sweep on an hourly cadence.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	id, err := lib.CreateCronJob(common.ReleaseStaleReservations, 1*time.Hour)
	if err != nil {
		log.Printf("Error scheduling reservation sweep: %s\n", err.Error())
		return
	}
	log.Printf("Reservation sweep scheduled with job ID %s\n", *id)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
		return
	}
}

// InitConsumers starts the local email queue worker. Outside the local
// environment emails go straight over SMTP and no consumer is needed.
func InitConsumers() {
	if os.Getenv("API_ENV") == "local" {
		go common.EmailsConsumer()
	}
}
