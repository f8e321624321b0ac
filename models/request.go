package models

import "time"

// Vehicle is the denormalized vehicle snapshot captured at request time.
type Vehicle struct {
	Plate string `json:"plate"`
	Model string `json:"model"`
}

// ParkingRequest is the unit of workflow state. A request is created by a car
// owner, claimed by a valet driver and moves through the parking/retrieval
// lifecycle until it reaches a terminal status.
//
// The JSON field names are a wire contract shared with other client variants
// and must not change.
type ParkingRequest struct {
	// Assigned at creation from the creation time (Unix milliseconds),
	// which also makes it the newest-first sort key.
	ID int64 `json:"id" gorm:"primaryKey;autoIncrement:false"`

	UserID    string `json:"userId" gorm:"index;not null"`
	UserName  string `json:"userName"`
	UserPhone string `json:"userPhone"`

	Vehicle  Vehicle `json:"vehicle" gorm:"embedded;embeddedPrefix:vehicle_"`
	Location string  `json:"location"`

	Status string `json:"status" gorm:"index;not null"`

	// Nil while the request is unassigned (requested / retrieval_requested).
	ValetID   *string `json:"valetId" gorm:"index"`
	ValetName *string `json:"valetName"`

	Timestamp time.Time `json:"timestamp"`
	// Set the first time the vehicle is parked; never overwritten.
	ParkedTimestamp *time.Time `json:"parkedTimestamp"`
	// Set exactly once, on completion.
	ExitTimestamp *time.Time `json:"exitTimestamp"`
}
