package db

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestNewDBOverridesSingleton(t *testing.T) {
	conn, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer conn.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	assert.NoError(t, err)

	NewDB(gormDB)
	assert.Same(t, gormDB, GetDb())
}
