package models

import (
	"github.com/Marwan8766/travel-planner-api/src/types"
)

// Tour and TripProgram are the two sellable product kinds. Their CRUD
// lives elsewhere; the booking pipeline only reads them to snapshot price
// and resolve the owning company.
type Tour struct {
	ID        uint    `gorm:"primarykey" json:"id"`
	Name      string  `json:"name,omitempty"`
	Price     float32 `json:"price"`
	CompanyID uint    `json:"company_id,omitempty"`

	Company User `gorm:"foreignKey:company_id" json:"-"`

	types.Timestamps
}

type TripProgram struct {
	ID        uint    `gorm:"primarykey" json:"id"`
	Name      string  `json:"name,omitempty"`
	Price     float32 `json:"price"`
	CompanyID uint    `json:"company_id,omitempty"`

	Company User `gorm:"foreignKey:company_id" json:"-"`

	types.Timestamps
}
