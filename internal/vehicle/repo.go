package vehicle

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repo 车辆只读仓储
type Repo struct {
	db *gorm.DB
}

// NewRepo 创建车辆仓储
func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// FindByID 按 id 查询车辆
func (r *Repo) FindByID(ctx context.Context, id string) (*Vehicle, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("vehicle repo is not initialized")
	}
	var v Vehicle
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, fmt.Errorf("failed to find vehicle id=%s: %w", id, err)
	}
	return &v, nil
}

// List 查询全部车辆（过滤分页在内存中做，车队规模可控）
func (r *Repo) List(ctx context.Context) ([]Vehicle, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("vehicle repo is not initialized")
	}
	var vehicles []Vehicle
	if err := r.db.WithContext(ctx).Order("name asc").Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

// ListGroups 查询全部车辆分组
func (r *Repo) ListGroups(ctx context.Context) ([]VehicleGroup, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("vehicle repo is not initialized")
	}
	var groups []VehicleGroup
	if err := r.db.WithContext(ctx).Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicle groups: %w", err)
	}
	return groups, nil
}
