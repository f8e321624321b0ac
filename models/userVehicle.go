package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserVehicle is a saved vehicle profile used to pre-fill the booking form.
// The vehicle snapshot embedded in a ParkingRequest stays denormalized:
// editing or removing a profile never rewrites past tickets.
type UserVehicle struct {
	Id        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"userId" gorm:"index;not null"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model" gorm:"not null"`
	Plate     string    `json:"plate" gorm:"not null"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

func (v *UserVehicle) BeforeCreate(tx *gorm.DB) (err error) {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	return
}
