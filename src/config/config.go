package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

// Calendar-day granularity used by availability slots and cart items.
const DATE_PARSE_FORMAT = "2006-01-02"

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

// GetReservationTTL returns how long a pending booking may hold inventory
// before the sweep releases it. Defaults to 24 hours.
func GetReservationTTL() time.Duration {
	return time.Duration(intFromEnv("RESERVATION_TTL_HOURS", 24)) * time.Hour
}

// GetDBPoolSize returns the connection pool limits for the shared
// database handle. Checkout holds and webhook settlements share the pool,
// so the open limit caps how many transactions contend at once.
func GetDBPoolSize() (maxIdle int, maxOpen int) {
	return intFromEnv("DATABASE_MAX_IDLE_CONNS", 10), intFromEnv("DATABASE_MAX_OPEN_CONNS", 100)
}

func intFromEnv(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
