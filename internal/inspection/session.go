package inspection

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/FleetLink/FleetLink/internal/common/logger"
	"github.com/FleetLink/FleetLink/internal/template"
	"github.com/FleetLink/FleetLink/internal/vehicle"
)

// 会话步骤
const (
	StepVehicleSelection = "vehicle_selection"
	StepTypeSelection    = "type_selection"
	StepSectionReview    = "section_review"
	StepSubmitting       = "submitting"
	StepCompleted        = "completed"
	StepFailed           = "failed"
)

// 会话级错误
var (
	ErrInvalidStep    = errors.New("operation not allowed in current step")
	ErrBusy           = errors.New("another operation is in flight")
	ErrCapturePending = errors.New("a photo capture is already pending")
	ErrOutOfRange     = errors.New("index out of range")
)

type captureTarget struct {
	section int
	item    int
}

// Session 一次巡检流程的工作态。
// 所有方法并发安全；纯状态流转在这里，I/O 编排在 Service。
type Session struct {
	mu sync.Mutex

	ID     string
	Actor  string
	Locale string

	step         string
	sectionIndex int

	vehicle         *vehicle.Vehicle
	assignableTypes []string
	inspectionType  string
	sections        []template.WorkingSection

	// inspectionID：已存在的巡检单 id（编辑模式传入，新建模式 Start 时生成）
	inspectionID string
	editing      bool

	notes string

	// mergedInspectionID：已并入结果的巡检单 id，保证 merge 只执行一次
	mergedInspectionID string
	// autoStarted：单类型自动开始只触发一次（每次选车重置）
	autoStarted bool
	// inFlight：串行化 Start/Submit 等写操作
	inFlight bool
	// loadSeq：异步加载的最新序号，旧结果丢弃
	loadSeq uint64

	capture *captureTarget
}

// NewSession 创建会话。editID 非空表示编辑已有巡检单。
func NewSession(id, actor, locale, editID string) *Session {
	return &Session{
		ID:           id,
		Actor:        strings.TrimSpace(actor),
		Locale:       strings.TrimSpace(locale),
		step:         StepVehicleSelection,
		inspectionID: strings.TrimSpace(editID),
		editing:      strings.TrimSpace(editID) != "",
	}
}

// Step 当前步骤
func (s *Session) Step() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SectionIndex 当前 section 下标
func (s *Session) SectionIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sectionIndex
}

// Editing 是否编辑模式
func (s *Session) Editing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

// InspectionID 当前关联的巡检单 id（可能为空）
func (s *Session) InspectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inspectionID
}

// Vehicle 当前选中车辆
func (s *Session) Vehicle() *vehicle.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehicle
}

// Type 当前检查类型
func (s *Session) Type() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inspectionType
}

// AssignableTypes 车辆可用的检查类型
func (s *Session) AssignableTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.assignableTypes...)
}

// Sections 工作态 section 深拷贝快照，与会话内部状态解耦，
// 持锁外读写快照不会与检查项操作竞争。
func (s *Session) Sections() []template.WorkingSection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSections(s.sections)
}

func cloneSections(src []template.WorkingSection) []template.WorkingSection {
	if src == nil {
		return nil
	}
	out := make([]template.WorkingSection, len(src))
	for i, sec := range src {
		cp := sec
		cp.Items = make([]template.WorkingItem, len(sec.Items))
		for j, it := range sec.Items {
			ci := it
			if it.Status != nil {
				v := *it.Status
				ci.Status = &v
			}
			ci.Photos = append([]string{}, it.Photos...)
			cp.Items[j] = ci
		}
		out[i] = cp
	}
	return out
}

// Notes 整单备注
func (s *Session) Notes() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes
}

// SetNotes 设置整单备注
func (s *Session) SetNotes(notes string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = notes
}

// ---------------- 流程推进 ----------------

// SelectVehicle 选车：记录车辆与可用类型，不自动推进步骤。
// 每次选车重置自动开始守卫与类型、模板状态。
func (s *Session) SelectVehicle(v *vehicle.Vehicle, assignableTypes []string) error {
	if v == nil {
		return fmt.Errorf("vehicle is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepVehicleSelection {
		return fmt.Errorf("%w: step=%s", ErrInvalidStep, s.step)
	}
	s.vehicle = v
	s.assignableTypes = append([]string{}, assignableTypes...)
	s.inspectionType = ""
	s.sections = nil
	s.sectionIndex = 0
	s.autoStarted = false
	s.mergedInspectionID = ""
	return nil
}

// AdvanceToTypeSelection 从选车进入类型选择
func (s *Session) AdvanceToTypeSelection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepVehicleSelection {
		return fmt.Errorf("%w: step=%s", ErrInvalidStep, s.step)
	}
	if s.vehicle == nil {
		return fmt.Errorf("no vehicle selected")
	}
	s.step = StepTypeSelection
	return nil
}

// SelectType 选择检查类型：清空已加载的 section 与进度。
func (s *Session) SelectType(inspectionType string) error {
	inspectionType = strings.TrimSpace(inspectionType)
	if inspectionType == "" {
		return fmt.Errorf("inspection type is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepTypeSelection {
		return fmt.Errorf("%w: step=%s", ErrInvalidStep, s.step)
	}
	s.inspectionType = inspectionType
	s.sections = nil
	s.sectionIndex = 0
	// 工作态已丢弃，下次 Start 需要重新并入历史结果
	s.mergedInspectionID = ""
	return nil
}

// MarkAutoStarted 记录单类型自动开始已触发；再次调用返回 false。
func (s *Session) MarkAutoStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autoStarted {
		return false
	}
	s.autoStarted = true
	return true
}

// EnterSectionReview 模板加载完成后进入逐节检查。
// inspectionID 为新建或编辑中的巡检单 id。
func (s *Session) EnterSectionReview(inspectionID string, sections []template.WorkingSection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepTypeSelection {
		return fmt.Errorf("%w: step=%s", ErrInvalidStep, s.step)
	}
	if len(sections) == 0 {
		return fmt.Errorf("sections are empty")
	}
	s.inspectionID = inspectionID
	s.sections = sections
	s.sectionIndex = 0
	s.step = StepSectionReview
	return nil
}

// NextSection 下一节；在最后一节调用保持不动（提交走 Submit）。
func (s *Session) NextSection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepSectionReview {
		return fmt.Errorf("%w: step=%s", ErrInvalidStep, s.step)
	}
	if s.sectionIndex < len(s.sections)-1 {
		s.sectionIndex++
	}
	return nil
}

// PreviousSection 上一节；在第 0 节继续后退则回到类型选择。
func (s *Session) PreviousSection() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepSectionReview {
		return fmt.Errorf("%w: step=%s", ErrInvalidStep, s.step)
	}
	if s.sectionIndex > 0 {
		s.sectionIndex--
		return nil
	}
	s.step = StepTypeSelection
	s.sections = nil
	s.sectionIndex = 0
	s.mergedInspectionID = ""
	return nil
}

// ---------------- 检查项操作 ----------------

// SetItemStatus 设置检查项结论（pass / fail，空串清除）
func (s *Session) SetItemStatus(section, item int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.itemAt(section, item)
	if err != nil {
		return err
	}
	status = strings.TrimSpace(status)
	switch status {
	case "":
		w.Status = nil
	case ItemPass, ItemFail:
		w.Status = &status
	default:
		return fmt.Errorf("invalid item status: %s", status)
	}
	return nil
}

// SetItemNotes 设置检查项备注
func (s *Session) SetItemNotes(section, item int, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.itemAt(section, item)
	if err != nil {
		return err
	}
	w.Notes = notes
	return nil
}

// DeletePhoto 删除检查项的第 idx 张照片，返回被删除的引用。
func (s *Session) DeletePhoto(section, item, idx int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.itemAt(section, item)
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(w.Photos) {
		return "", fmt.Errorf("%w: photo index %d", ErrOutOfRange, idx)
	}
	ref := w.Photos[idx]
	w.Photos = append(w.Photos[:idx], w.Photos[idx+1:]...)
	return ref, nil
}

// ---------------- 拍照目标 ----------------

// BeginCapture 登记拍照目标；已有未完成目标时拒绝。
func (s *Session) BeginCapture(section, item int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.itemAt(section, item); err != nil {
		return err
	}
	if s.capture != nil {
		return ErrCapturePending
	}
	s.capture = &captureTarget{section: section, item: item}
	return nil
}

// CompleteCapture 拍照完成：照片挂到登记的目标上。
// 没有登记目标时记日志丢弃，不报错（目标可能已被重置）。
func (s *Session) CompleteCapture(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.capture
	s.capture = nil
	if target == nil {
		logger.Get().Warnf("capture completed with no pending target, dropping photo %s", ref)
		return
	}
	w, err := s.itemAt(target.section, target.item)
	if err != nil {
		logger.Get().Warnf("capture target no longer valid, dropping photo %s: %v", ref, err)
		return
	}
	w.Photos = append(w.Photos, ref)
}

// CancelCapture 取消登记的拍照目标
func (s *Session) CancelCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture = nil
}

// ---------------- 提交流转 ----------------

// BeginSubmit 最后一节才允许提交，进入 submitting。
func (s *Session) BeginSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepSectionReview {
		return fmt.Errorf("%w: step=%s", ErrInvalidStep, s.step)
	}
	if s.sectionIndex != len(s.sections)-1 {
		return fmt.Errorf("%w: submit only from the last section", ErrInvalidStep)
	}
	s.step = StepSubmitting
	return nil
}

// FinishSubmit 提交结束：成功进入 completed，失败回到逐节检查重试。
func (s *Session) FinishSubmit(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepSubmitting {
		return
	}
	if success {
		s.step = StepCompleted
		return
	}
	s.step = StepSectionReview
}

// ---------------- 守卫 ----------------

// TryBeginFlight 尝试占用写操作槽（Start / Submit 串行化）
func (s *Session) TryBeginFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

// EndFlight 释放写操作槽
func (s *Session) EndFlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// NextLoadSeq 领取一次异步加载序号
func (s *Session) NextLoadSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadSeq++
	return s.loadSeq
}

// IsCurrentLoad 判断加载结果是否仍是最新的（旧结果丢弃）
func (s *Session) IsCurrentLoad(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.loadSeq
}

// MarkMerged 记录已并入的巡检单 id；同一份工作态内重复并入返回 false。
// 工作态被丢弃时（换类型、退回类型选择、重新选车）守卫重置。
func (s *Session) MarkMerged(inspectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mergedInspectionID == inspectionID {
		return false
	}
	s.mergedInspectionID = inspectionID
	return true
}

// ---------------- 进度 ----------------

// Progress 完成百分比：round(100 * 已判定项 / 总项)，空模板为 0。
func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total, completed := 0, 0
	for _, sec := range s.sections {
		for _, it := range sec.Items {
			total++
			if it.Status != nil {
				completed++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// SectionProgress 单节完成百分比，下标越界为 0。
func (s *Session) SectionProgress(section int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if section < 0 || section >= len(s.sections) {
		return 0
	}
	total, completed := 0, 0
	for _, it := range s.sections[section].Items {
		total++
		if it.Status != nil {
			completed++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// DefaultType 多类型时的默认选项：可用类型中的第一个。
func (s *Session) DefaultType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.assignableTypes) == 0 {
		return ""
	}
	return s.assignableTypes[0]
}

func (s *Session) itemAt(section, item int) (*template.WorkingItem, error) {
	if s.step != StepSectionReview {
		return nil, fmt.Errorf("%w: step=%s", ErrInvalidStep, s.step)
	}
	if section < 0 || section >= len(s.sections) {
		return nil, fmt.Errorf("%w: section %d", ErrOutOfRange, section)
	}
	if item < 0 || item >= len(s.sections[section].Items) {
		return nil, fmt.Errorf("%w: item %d", ErrOutOfRange, item)
	}
	return &s.sections[section].Items[item], nil
}
