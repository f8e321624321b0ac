package models

import (
	"time"

	"gorm.io/datatypes"
)

// RequestEvent is an immutable snapshot of a parking request taken after each
// workflow transition. Dashboards read it as an audit trail; live state stays
// on ParkingRequest.
type RequestEvent struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	RequestID int64          `json:"request_id" gorm:"index:idx_request_events_request_seq,priority:1"`
	Seq       int            `json:"seq" gorm:"not null;index:idx_request_events_request_seq,priority:2"`
	Status    string         `json:"status" gorm:"type:VARCHAR(32)"`
	Actor     string         `json:"actor"` // user/driver id that caused the transition
	Snapshot  datatypes.JSON `json:"snapshot"`
	CreatedAt time.Time      `json:"created_at"`
}
