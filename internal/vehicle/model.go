package vehicle

import "time"

// Vehicle 车辆
type Vehicle struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(128);not null" json:"name"`
	PlateNumber string    `gorm:"type:varchar(32);index" json:"plate_number"`
	Brand       string    `gorm:"type:varchar(64);index" json:"brand"`
	Model       string    `gorm:"type:varchar(64);index" json:"model"`
	Year        int       `json:"year"`
	ImageURL    string    `gorm:"type:varchar(512)" json:"image_url"`
	GroupID     string    `gorm:"type:varchar(36);index" json:"group_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Vehicle) TableName() string {
	return "vehicles"
}

// VehicleGroup 车辆分组（车队）
type VehicleGroup struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Color     string    `gorm:"type:varchar(16)" json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (VehicleGroup) TableName() string {
	return "vehicle_groups"
}
