package inspection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FleetLink/FleetLink/internal/common/logger"
	"github.com/FleetLink/FleetLink/internal/template"
	"github.com/FleetLink/FleetLink/internal/vehicle"
)

// VehicleSource 车辆查询（vehicle.Repo 实现）
type VehicleSource interface {
	FindByID(ctx context.Context, id string) (*vehicle.Vehicle, error)
}

// TemplateSource 模板加载（template.Loader 实现）
type TemplateSource interface {
	ResolveAssignableTypes(ctx context.Context, vehicleID, groupID string) ([]string, error)
	LoadTemplate(ctx context.Context, inspectionType, locale string) ([]template.WorkingSection, error)
}

// PhotoStager 拍照暂存（photo.Pipeline 实现）
type PhotoStager interface {
	Stage(data []byte) (string, error)
	DiscardStaged(ref string)
}

// Service 巡检流程服务：在会话状态机之上编排 I/O。
type Service struct {
	vehicles    VehicleSource
	templates   TemplateSource
	store       Store
	coordinator *Coordinator
	stager      PhotoStager
}

// NewService 创建巡检流程服务
func NewService(vehicles VehicleSource, templates TemplateSource, store Store, coordinator *Coordinator, stager PhotoStager) *Service {
	return &Service{
		vehicles:    vehicles,
		templates:   templates,
		store:       store,
		coordinator: coordinator,
		stager:      stager,
	}
}

// SelectVehicle 选车并解析可用检查类型。
// 非编辑模式下恰好一个可用类型时自动推进到逐节检查（每次选车只触发一次）。
func (s *Service) SelectVehicle(ctx context.Context, sess *Session, vehicleID string) error {
	if s == nil || s.vehicles == nil || s.templates == nil {
		return fmt.Errorf("inspection service is not initialized")
	}
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return fmt.Errorf("vehicle id is empty")
	}

	v, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	types, err := s.templates.ResolveAssignableTypes(ctx, v.ID, v.GroupID)
	if err != nil {
		return err
	}
	if err := sess.SelectVehicle(v, types); err != nil {
		return err
	}

	if len(types) == 1 && !sess.Editing() && sess.MarkAutoStarted() {
		if err := sess.AdvanceToTypeSelection(); err != nil {
			return err
		}
		if err := sess.SelectType(types[0]); err != nil {
			return err
		}
		if err := s.StartInspection(ctx, sess); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceToTypeSelection 手动进入类型选择
func (s *Service) AdvanceToTypeSelection(sess *Session) error {
	return sess.AdvanceToTypeSelection()
}

// SelectType 选择检查类型
func (s *Service) SelectType(sess *Session, inspectionType string) error {
	return sess.SelectType(inspectionType)
}

// StartInspection 开始巡检：加载模板、建立或续接巡检单、进入逐节检查。
// 并发调用被 in-flight 守卫拒绝；过期的模板加载结果被丢弃。
func (s *Service) StartInspection(ctx context.Context, sess *Session) error {
	if s == nil || s.templates == nil || s.store == nil {
		return fmt.Errorf("inspection service is not initialized")
	}
	if !sess.TryBeginFlight() {
		return ErrBusy
	}
	defer sess.EndFlight()

	v := sess.Vehicle()
	if v == nil {
		return fmt.Errorf("no vehicle selected")
	}
	inspectionType := sess.Type()
	if inspectionType == "" {
		return fmt.Errorf("no inspection type selected")
	}

	seq := sess.NextLoadSeq()
	sections, err := s.templates.LoadTemplate(ctx, inspectionType, sess.Locale)
	if err != nil {
		return err
	}
	if !sess.IsCurrentLoad(seq) {
		logger.Get().Debugf("discarding stale template load for session %s", sess.ID)
		return nil
	}

	inspectionID := sess.InspectionID()
	if inspectionID == "" {
		// 新建路径：立即落表头，后续提交只更新
		insp := &Inspection{
			ID:        uuid.NewString(),
			VehicleID: v.ID,
			Type:      inspectionType,
			Status:    StatusInProgress,
			Date:      time.Now(),
			CreatedBy: sess.Actor,
		}
		if err := s.store.CreateInspection(ctx, insp); err != nil {
			return err
		}
		inspectionID = insp.ID
	} else {
		// 编辑/续检路径：并入历史结果，表头拉回 in_progress
		insp, err := s.store.GetInspection(ctx, inspectionID)
		if err != nil {
			return err
		}
		// 会话选择必须与表头一致：车辆与类型在编辑中不可变
		if insp.VehicleID != v.ID || insp.Type != inspectionType {
			return fmt.Errorf("inspection %s is for vehicle %s type %s, not %s/%s",
				inspectionID, insp.VehicleID, insp.Type, v.ID, inspectionType)
		}
		if sess.MarkMerged(inspectionID) {
			items, err := s.store.ListItems(ctx, inspectionID)
			if err != nil {
				return err
			}
			itemIDs := make([]string, 0, len(items))
			for _, it := range items {
				itemIDs = append(itemIDs, it.ID)
			}
			photos, err := s.store.ListPhotosByItemIDs(ctx, itemIDs)
			if err != nil {
				return err
			}
			MergeExisting(sections, items, photos)
			sess.SetNotes(insp.Notes)
		}
		if insp.Status != StatusInProgress {
			if err := ApplyTransition(insp, StatusInProgress); err != nil {
				return err
			}
			if err := s.store.UpdateInspection(ctx, insp); err != nil {
				return err
			}
		}
	}

	return sess.EnterSectionReview(inspectionID, sections)
}

// CapturePhoto 拍照：登记目标、暂存字节、挂到检查项。
func (s *Service) CapturePhoto(sess *Session, section, item int, data []byte) (string, error) {
	if s == nil || s.stager == nil {
		return "", fmt.Errorf("inspection service is not initialized")
	}
	if err := sess.BeginCapture(section, item); err != nil {
		return "", err
	}
	ref, err := s.stager.Stage(data)
	if err != nil {
		sess.CancelCapture()
		return "", err
	}
	sess.CompleteCapture(ref)
	return ref, nil
}

// DeletePhoto 删除检查项照片；未提交的暂存照片同时清理暂存文件。
func (s *Service) DeletePhoto(sess *Session, section, item, idx int) error {
	ref, err := sess.DeletePhoto(section, item, idx)
	if err != nil {
		return err
	}
	if s != nil && s.stager != nil {
		s.stager.DiscardStaged(ref)
	}
	return nil
}

// Submit 提交：状态机进入 submitting，协调器落库，按结果收尾。
// 失败时会话回到逐节检查，重试即重新提交。
func (s *Service) Submit(ctx context.Context, sess *Session) (*SubmitResult, error) {
	if s == nil || s.coordinator == nil {
		return nil, fmt.Errorf("inspection service is not initialized")
	}
	if !sess.TryBeginFlight() {
		return nil, ErrBusy
	}
	defer sess.EndFlight()

	if err := sess.BeginSubmit(); err != nil {
		return nil, err
	}

	v := sess.Vehicle()
	in := SubmitInput{
		InspectionID: sess.InspectionID(),
		Type:         sess.Type(),
		Actor:        sess.Actor,
		Notes:        sess.Notes(),
		Date:         time.Now(),
		Sections:     sess.Sections(),
	}
	if v != nil {
		in.VehicleID = v.ID
		in.VehicleName = v.Name
	}

	res, err := s.coordinator.Submit(ctx, in)
	sess.FinishSubmit(err == nil)
	if err != nil {
		return nil, err
	}
	return res, nil
}
