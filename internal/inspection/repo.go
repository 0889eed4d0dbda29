package inspection

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Store 巡检持久化接口（提交协调器与会话服务依赖的最小面）
type Store interface {
	CreateInspection(ctx context.Context, insp *Inspection) error
	UpdateInspection(ctx context.Context, insp *Inspection) error
	DeleteInspection(ctx context.Context, id string) error
	GetInspection(ctx context.Context, id string) (*Inspection, error)
	ListItems(ctx context.Context, inspectionID string) ([]ItemRecord, error)
	ListPhotosByItemIDs(ctx context.Context, itemIDs []string) ([]PhotoRecord, error)
	DeletePhotosByItemIDs(ctx context.Context, itemIDs []string) error
	DeleteItemsByInspection(ctx context.Context, inspectionID string) error
	BulkInsertItems(ctx context.Context, items []ItemRecord) error
	BulkInsertPhotos(ctx context.Context, photos []PhotoRecord) error
}

// Repo GORM 实现
type Repo struct {
	db *gorm.DB
}

// NewRepo 创建巡检仓储
func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateInspection 插入巡检单
func (r *Repo) CreateInspection(ctx context.Context, insp *Inspection) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("inspection repo is not initialized")
	}
	if err := r.db.WithContext(ctx).Create(insp).Error; err != nil {
		return fmt.Errorf("failed to create inspection: %w", err)
	}
	return nil
}

// UpdateInspection 全量更新巡检单
func (r *Repo) UpdateInspection(ctx context.Context, insp *Inspection) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("inspection repo is not initialized")
	}
	if insp == nil || insp.ID == "" {
		return fmt.Errorf("inspection id is empty")
	}
	if err := r.db.WithContext(ctx).Save(insp).Error; err != nil {
		return fmt.Errorf("failed to update inspection id=%s: %w", insp.ID, err)
	}
	return nil
}

// DeleteInspection 删除巡检单（新建路径补偿用）
func (r *Repo) DeleteInspection(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("inspection repo is not initialized")
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Inspection{}).Error; err != nil {
		return fmt.Errorf("failed to delete inspection id=%s: %w", id, err)
	}
	return nil
}

// GetInspection 按 id 查询巡检单
func (r *Repo) GetInspection(ctx context.Context, id string) (*Inspection, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("inspection repo is not initialized")
	}
	var insp Inspection
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&insp).Error; err != nil {
		return nil, fmt.Errorf("failed to find inspection id=%s: %w", id, err)
	}
	return &insp, nil
}

// ListItems 查询巡检单的检查项行
func (r *Repo) ListItems(ctx context.Context, inspectionID string) ([]ItemRecord, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("inspection repo is not initialized")
	}
	var items []ItemRecord
	err := r.db.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list items inspection=%s: %w", inspectionID, err)
	}
	return items, nil
}

// ListPhotosByItemIDs 按检查项 id 集合查询照片行（保持入库顺序）
func (r *Repo) ListPhotosByItemIDs(ctx context.Context, itemIDs []string) ([]PhotoRecord, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("inspection repo is not initialized")
	}
	if len(itemIDs) == 0 {
		return nil, nil
	}
	var photos []PhotoRecord
	err := r.db.WithContext(ctx).
		Where("inspection_item_id IN ?", itemIDs).
		Order("created_at asc").
		Find(&photos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return photos, nil
}

// DeletePhotosByItemIDs 整批删除照片行（编辑路径）
func (r *Repo) DeletePhotosByItemIDs(ctx context.Context, itemIDs []string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("inspection repo is not initialized")
	}
	if len(itemIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Where("inspection_item_id IN ?", itemIDs).Delete(&PhotoRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete photos: %w", err)
	}
	return nil
}

// DeleteItemsByInspection 整批删除检查项行（编辑路径、补偿）
func (r *Repo) DeleteItemsByInspection(ctx context.Context, inspectionID string) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("inspection repo is not initialized")
	}
	if err := r.db.WithContext(ctx).Where("inspection_id = ?", inspectionID).Delete(&ItemRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete items inspection=%s: %w", inspectionID, err)
	}
	return nil
}

// BulkInsertItems 批量插入检查项行
func (r *Repo) BulkInsertItems(ctx context.Context, items []ItemRecord) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("inspection repo is not initialized")
	}
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
		return fmt.Errorf("failed to insert items: %w", err)
	}
	return nil
}

// BulkInsertPhotos 批量插入照片行
func (r *Repo) BulkInsertPhotos(ctx context.Context, photos []PhotoRecord) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("inspection repo is not initialized")
	}
	if len(photos) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&photos).Error; err != nil {
		return fmt.Errorf("failed to insert photos: %w", err)
	}
	return nil
}
