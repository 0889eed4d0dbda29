package inspection

import "time"

// 巡检单状态
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// 检查项结论
const (
	ItemPass = "pass"
	ItemFail = "fail"
)

// Inspection 巡检单
type Inspection struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	VehicleID   string    `gorm:"type:varchar(36);index;not null" json:"vehicle_id"`
	Type        string    `gorm:"type:varchar(32);not null" json:"type"`
	Status      string    `gorm:"type:varchar(16);index;not null" json:"status"`
	Date        time.Time `json:"date"`
	Notes       string    `gorm:"type:text" json:"notes"`
	InspectorID string    `gorm:"type:varchar(36);index" json:"inspector_id"`
	CreatedBy   string    `gorm:"type:varchar(36)" json:"created_by"`
	BookingID   string    `gorm:"type:varchar(36);index" json:"booking_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Inspection) TableName() string {
	return "inspections"
}

// ItemRecord 检查项结果行
type ItemRecord struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	InspectionID string    `gorm:"type:varchar(36);index;not null" json:"inspection_id"`
	TemplateID   string    `gorm:"type:varchar(36);index;not null" json:"template_id"`
	Status       string    `gorm:"type:varchar(16)" json:"status"` // pass / fail，空串表示未判定
	Notes        string    `gorm:"type:text" json:"notes"`
	CreatedBy    string    `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (ItemRecord) TableName() string {
	return "inspection_items"
}

// PhotoRecord 检查项照片行
type PhotoRecord struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	InspectionItemID string    `gorm:"type:varchar(36);index;not null" json:"inspection_item_id"`
	PhotoURL         string    `gorm:"type:varchar(1024);not null" json:"photo_url"`
	CreatedBy        string    `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName 指定表名
func (PhotoRecord) TableName() string {
	return "inspection_photos"
}
