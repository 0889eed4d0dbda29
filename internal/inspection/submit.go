package inspection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FleetLink/FleetLink/internal/common/logger"
	"github.com/FleetLink/FleetLink/internal/notify"
	"github.com/FleetLink/FleetLink/internal/template"
)

// ErrValidation 提交前置校验失败（未发生任何写入）
var ErrValidation = errors.New("submission validation failed")

// PhotoPersister 照片持久化（photo.Pipeline 实现）
type PhotoPersister interface {
	Persist(ctx context.Context, actor, itemID string, photos []string) ([]string, error)
	RemoveDurable(ctx context.Context, refs []string)
}

// BookingCompleter 预约完成回调（booking.Repo 实现）
type BookingCompleter interface {
	MarkCompleted(ctx context.Context, bookingID string) error
}

// RecurrencePlanner 复检排期（schedule.Planner 实现）
type RecurrencePlanner interface {
	PlanNext(ctx context.Context, completed *Inspection) (string, error)
}

// SubmitInput 提交入参。InspectionID 为空表示表头尚不存在，由协调器创建。
type SubmitInput struct {
	InspectionID string
	VehicleID    string
	VehicleName  string
	Type         string
	Actor        string
	Notes        string
	Date         time.Time
	BookingID    string
	Sections     []template.WorkingSection
}

// SubmitResult 提交结果
type SubmitResult struct {
	InspectionID    string
	Status          string
	ItemCount       int
	PhotoCount      int
	NextScheduledID string
}

// Coordinator 提交协调器：把会话工作态落成多实体写入。
// 写入顺序固定：表头 → 旧行清理 → 照片上传 → item 行 → photo 行。
// 本次新建的表头在中途失败时补偿删除；已有表头不回滚，
// 旧行在清理步骤已删，重试即重新提交（已知缺口）。
type Coordinator struct {
	store    Store
	photos   PhotoPersister
	bookings BookingCompleter
	planner  RecurrencePlanner
	notifier notify.Notifier
}

// NewCoordinator 创建提交协调器。bookings / planner / notifier 可为 nil。
func NewCoordinator(store Store, photos PhotoPersister, bookings BookingCompleter, planner RecurrencePlanner, notifier notify.Notifier) *Coordinator {
	return &Coordinator{
		store:    store,
		photos:   photos,
		bookings: bookings,
		planner:  planner,
		notifier: notifier,
	}
}

// ComputeStatus 按检查项推导巡检单状态：
// 任一项未判定 → in_progress；否则任一项 fail → failed；否则 completed。
func ComputeStatus(sections []template.WorkingSection) string {
	hasFail := false
	for _, sec := range sections {
		for _, it := range sec.Items {
			if it.Status == nil {
				return StatusInProgress
			}
			if *it.Status == ItemFail {
				hasFail = true
			}
		}
	}
	if hasFail {
		return StatusFailed
	}
	return StatusCompleted
}

// Submit 执行提交
func (c *Coordinator) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if c == nil || c.store == nil || c.photos == nil {
		return nil, fmt.Errorf("coordinator is not initialized")
	}

	// 前置校验，任何违反都在写入之前拒绝
	if err := c.validate(in); err != nil {
		return nil, err
	}

	status := ComputeStatus(in.Sections)
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	var insp *Inspection
	createdHere := false
	if strings.TrimSpace(in.InspectionID) == "" {
		// 表头尚不存在：本次创建，失败时补偿删除
		insp = &Inspection{
			ID:          uuid.NewString(),
			VehicleID:   in.VehicleID,
			Type:        in.Type,
			Status:      status,
			Date:        date,
			Notes:       in.Notes,
			InspectorID: in.Actor,
			CreatedBy:   in.Actor,
			BookingID:   in.BookingID,
		}
		if err := c.store.CreateInspection(ctx, insp); err != nil {
			return nil, err
		}
		createdHere = true
	} else {
		// 已有表头：只更新状态与整单备注，车辆与类型不可变
		var err error
		insp, err = c.store.GetInspection(ctx, in.InspectionID)
		if err != nil {
			return nil, err
		}
		if insp.Status != status {
			if err := ApplyTransition(insp, status); err != nil {
				return nil, err
			}
		}
		insp.Notes = in.Notes
		if err := c.store.UpdateInspection(ctx, insp); err != nil {
			return nil, err
		}

		// 整批删除旧 item/photo 行，旧照片对象尽力清理
		if err := c.clearPrevious(ctx, insp.ID); err != nil {
			return nil, err
		}
	}

	// 照片上传 + 行构造
	items := make([]ItemRecord, 0)
	photoRows := make([]PhotoRecord, 0)
	for _, sec := range in.Sections {
		for _, it := range sec.Items {
			if it.Status == nil {
				continue
			}
			itemID := uuid.NewString()

			durable, err := c.photos.Persist(ctx, in.Actor, itemID, it.Photos)
			if err != nil {
				return nil, c.fail(ctx, insp, createdHere, err)
			}

			items = append(items, ItemRecord{
				ID:           itemID,
				InspectionID: insp.ID,
				TemplateID:   it.TemplateID,
				Status:       *it.Status,
				Notes:        it.Notes,
				CreatedBy:    in.Actor,
			})
			for _, url := range durable {
				photoRows = append(photoRows, PhotoRecord{
					ID:               uuid.NewString(),
					InspectionItemID: itemID,
					PhotoURL:         url,
					CreatedBy:        in.Actor,
				})
			}
		}
	}

	if err := c.store.BulkInsertItems(ctx, items); err != nil {
		return nil, c.fail(ctx, insp, createdHere, err)
	}
	if err := c.store.BulkInsertPhotos(ctx, photoRows); err != nil {
		return nil, c.fail(ctx, insp, createdHere, err)
	}

	result := &SubmitResult{
		InspectionID: insp.ID,
		Status:       status,
		ItemCount:    len(items),
		PhotoCount:   len(photoRows),
	}

	// 以下副作用全部尽力而为，失败不影响提交结果
	bookingID := in.BookingID
	if bookingID == "" {
		bookingID = insp.BookingID
	}
	if bookingID != "" && c.bookings != nil {
		if err := c.bookings.MarkCompleted(ctx, bookingID); err != nil {
			logger.Get().Warnf("failed to complete booking %s: %v", bookingID, err)
		}
	}

	if status == StatusCompleted && c.planner != nil {
		nextID, err := c.planner.PlanNext(ctx, insp)
		if err != nil {
			logger.Get().Warnf("failed to plan next inspection for %s: %v", insp.ID, err)
		} else {
			result.NextScheduledID = nextID
		}
	}

	if c.notifier != nil {
		if err := c.notifier.InspectionSubmitted(ctx, notify.Event{
			InspectionID: insp.ID,
			VehicleID:    in.VehicleID,
			VehicleName:  in.VehicleName,
			Status:       status,
			Actor:        in.Actor,
		}); err != nil {
			logger.Get().Warnf("failed to notify submission %s: %v", insp.ID, err)
		}
	}

	return result, nil
}

func (c *Coordinator) validate(in SubmitInput) error {
	if strings.TrimSpace(in.VehicleID) == "" {
		return fmt.Errorf("%w: no vehicle selected", ErrValidation)
	}
	if strings.TrimSpace(in.Actor) == "" {
		return fmt.Errorf("%w: no actor identity", ErrValidation)
	}
	for _, sec := range in.Sections {
		for _, it := range sec.Items {
			if it.Status != nil {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: no item has a result", ErrValidation)
}

// clearPrevious 已有表头的旧行清理。行删除失败中止提交；
// 旧照片对象清理尽力而为。
func (c *Coordinator) clearPrevious(ctx context.Context, inspectionID string) error {
	oldItems, err := c.store.ListItems(ctx, inspectionID)
	if err != nil {
		return err
	}
	if len(oldItems) == 0 {
		return nil
	}

	itemIDs := make([]string, 0, len(oldItems))
	for _, it := range oldItems {
		itemIDs = append(itemIDs, it.ID)
	}

	oldPhotos, err := c.store.ListPhotosByItemIDs(ctx, itemIDs)
	if err != nil {
		return err
	}

	if err := c.store.DeletePhotosByItemIDs(ctx, itemIDs); err != nil {
		return err
	}
	if err := c.store.DeleteItemsByInspection(ctx, inspectionID); err != nil {
		return err
	}

	if len(oldPhotos) > 0 {
		refs := make([]string, 0, len(oldPhotos))
		for _, p := range oldPhotos {
			refs = append(refs, p.PhotoURL)
		}
		c.photos.RemoveDurable(ctx, refs)
	}
	return nil
}

// fail 中途失败收尾：本次新建的表头连同已插入的 item 行补偿删除，
// 已有表头原样保留（旧行已清，由重试重建）。
func (c *Coordinator) fail(ctx context.Context, insp *Inspection, createdHere bool, cause error) error {
	if !createdHere {
		return cause
	}
	if err := c.store.DeleteItemsByInspection(ctx, insp.ID); err != nil {
		logger.Get().Warnf("compensation: failed to delete items of %s: %v", insp.ID, err)
	}
	if err := c.store.DeleteInspection(ctx, insp.ID); err != nil {
		logger.Get().Warnf("compensation: failed to delete inspection %s: %v", insp.ID, err)
	}
	return cause
}
