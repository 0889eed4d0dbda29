package template

import (
	"time"

	"gorm.io/datatypes"
)

// CategoryTemplate 检查项分类模板（一个分类对应流程中的一个 section）
type CategoryTemplate struct {
	ID               string                               `gorm:"type:varchar(36);primaryKey" json:"id"`
	InspectionType   string                               `gorm:"type:varchar(32);index;not null" json:"inspection_type"`
	NameTranslations datatypes.JSONType[map[string]string] `gorm:"column:name_translations" json:"name_translations"`
	OrderNumber      *int                                 `json:"order_number"` // 可空，空值排最前
	CreatedAt        time.Time                            `json:"created_at"`
}

// TableName 指定表名
func (CategoryTemplate) TableName() string {
	return "inspection_category_templates"
}

// ItemTemplate 检查项模板
type ItemTemplate struct {
	ID                      string                               `gorm:"type:varchar(36);primaryKey" json:"id"`
	CategoryID              string                               `gorm:"type:varchar(36);index;not null" json:"category_id"`
	NameTranslations        datatypes.JSONType[map[string]string] `gorm:"column:name_translations" json:"name_translations"`
	DescriptionTranslations datatypes.JSONType[map[string]string] `gorm:"column:description_translations" json:"description_translations"`
	OrderNumber             *int                                 `json:"order_number"`
	RequiresPhoto           bool                                 `json:"requires_photo"`
	RequiresNotes           bool                                 `json:"requires_notes"`
	CreatedAt               time.Time                            `json:"created_at"`
}

// TableName 指定表名
func (ItemTemplate) TableName() string {
	return "inspection_item_templates"
}

// Assignment 检查类型与车辆/分组的绑定。
// VehicleID 与 GroupID 二选一填写。
type Assignment struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	VehicleID      string    `gorm:"type:varchar(36);index" json:"vehicle_id"`
	GroupID        string    `gorm:"type:varchar(36);index" json:"group_id"`
	InspectionType string    `gorm:"type:varchar(32);not null" json:"inspection_type"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName 指定表名
func (Assignment) TableName() string {
	return "inspection_assignments"
}

// WorkingItem 会话中的工作态检查项
type WorkingItem struct {
	TemplateID    string   `json:"template_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	RequiresPhoto bool     `json:"requires_photo"`
	RequiresNotes bool     `json:"requires_notes"`
	Status        *string  `json:"status"` // nil 未判定 / pass / fail
	Notes         string   `json:"notes"`
	Photos        []string `json:"photos"`
}

// WorkingSection 会话中的工作态 section
type WorkingSection struct {
	CategoryID string        `json:"category_id"`
	Title      string        `json:"title"`
	Items      []WorkingItem `json:"items"`
}
