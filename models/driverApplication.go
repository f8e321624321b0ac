package models

import "time"

// Driver application review states. Unlike parking requests, applications use
// a simple tri-state with no further lifecycle.
const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

// DriverApplication is a manager-submitted request to onboard a new valet
// driver. Approval by an admin creates the driver's user account; the
// application record itself is retained for audit either way.
type DriverApplication struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	FullName      string     `json:"full_name" gorm:"not null"`
	Phone         string     `json:"phone" gorm:"not null"`
	Email         string     `json:"email" gorm:"not null"`
	Address       string     `json:"address"`
	LicenseNumber string     `json:"license_number" gorm:"not null"`
	Photo         string     `json:"photo"`         // profile photo URL or data ref
	LicensePhoto  string     `json:"license_photo"` // license scan URL or data ref
	Status        string     `json:"status" gorm:"index;not null;default:pending"`
	SubmittedBy   string     `json:"submitted_by"` // manager user id
	SubmittedAt   time.Time  `json:"submitted_at"`
	ReviewedBy    *string    `json:"reviewed_by"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
}
