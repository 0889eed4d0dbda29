package booking

import "time"

// 预约状态
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Booking 巡检预约
type Booking struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	VehicleID string    `gorm:"type:varchar(36);index" json:"vehicle_id"`
	Status    string    `gorm:"type:varchar(16);index" json:"status"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Booking) TableName() string {
	return "inspection_bookings"
}
