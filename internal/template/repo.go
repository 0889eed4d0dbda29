package template

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repo 模板只读仓储
type Repo struct {
	db *gorm.DB
}

// NewRepo 创建模板仓储
func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// ListAssignmentsByVehicle 车辆直接绑定（仅生效的）
func (r *Repo) ListAssignmentsByVehicle(ctx context.Context, vehicleID string) ([]Assignment, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("template repo is not initialized")
	}
	var out []Assignment
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ? AND is_active = ?", vehicleID, true).
		Order("created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicle assignments: %w", err)
	}
	return out, nil
}

// ListAssignmentsByGroup 分组绑定（仅生效的）
func (r *Repo) ListAssignmentsByGroup(ctx context.Context, groupID string) ([]Assignment, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("template repo is not initialized")
	}
	var out []Assignment
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Order("created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list group assignments: %w", err)
	}
	return out, nil
}

// ListCategoriesByType 按检查类型查询分类模板
func (r *Repo) ListCategoriesByType(ctx context.Context, inspectionType string) ([]CategoryTemplate, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("template repo is not initialized")
	}
	var out []CategoryTemplate
	err := r.db.WithContext(ctx).
		Where("inspection_type = ?", inspectionType).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories type=%s: %w", inspectionType, err)
	}
	return out, nil
}

// ListItemsByCategories 按分类 id 集合查询检查项模板
func (r *Repo) ListItemsByCategories(ctx context.Context, categoryIDs []string) ([]ItemTemplate, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("template repo is not initialized")
	}
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	var out []ItemTemplate
	err := r.db.WithContext(ctx).
		Where("category_id IN ?", categoryIDs).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list item templates: %w", err)
	}
	return out, nil
}
