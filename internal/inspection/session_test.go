package inspection

import (
	"errors"
	"testing"

	"github.com/FleetLink/FleetLink/internal/template"
	"github.com/FleetLink/FleetLink/internal/vehicle"
)

func testSections() []template.WorkingSection {
	return []template.WorkingSection{
		{CategoryID: "c1", Items: []template.WorkingItem{
			{TemplateID: "t1", Photos: []string{}},
			{TemplateID: "t2", Photos: []string{}},
		}},
		{CategoryID: "c2", Items: []template.WorkingItem{
			{TemplateID: "t3", Photos: []string{}},
		}},
	}
}

func reviewingSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession("s1", "actor1", "en", "")
	if err := s.SelectVehicle(&vehicle.Vehicle{ID: "v1"}, []string{"routine"}); err != nil {
		t.Fatalf("select vehicle: %v", err)
	}
	if err := s.AdvanceToTypeSelection(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.SelectType("routine"); err != nil {
		t.Fatalf("select type: %v", err)
	}
	if err := s.EnterSectionReview("insp1", testSections()); err != nil {
		t.Fatalf("enter review: %v", err)
	}
	return s
}

func TestSessionHappyPathSteps(t *testing.T) {
	s := reviewingSession(t)
	if s.Step() != StepSectionReview || s.SectionIndex() != 0 {
		t.Fatalf("unexpected state: step=%s index=%d", s.Step(), s.SectionIndex())
	}
}

func TestSelectVehicleNoAutoAdvance(t *testing.T) {
	s := NewSession("s1", "actor1", "en", "")
	if err := s.SelectVehicle(&vehicle.Vehicle{ID: "v1"}, []string{"routine"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Step() != StepVehicleSelection {
		t.Fatalf("selecting a vehicle must not advance the step, got %s", s.Step())
	}
}

func TestSelectTypeClearsSections(t *testing.T) {
	s := reviewingSession(t)
	// 回退到类型选择再换类型
	if err := s.PreviousSection(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if s.Step() != StepTypeSelection {
		t.Fatalf("expected type selection, got %s", s.Step())
	}
	if err := s.SelectType("safety"); err != nil {
		t.Fatalf("select type: %v", err)
	}
	if len(s.Sections()) != 0 {
		t.Fatalf("changing type must clear sections")
	}
}

func TestSectionNavigationClamped(t *testing.T) {
	s := reviewingSession(t)

	if err := s.NextSection(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if s.SectionIndex() != 1 {
		t.Fatalf("expected index 1, got %d", s.SectionIndex())
	}
	// 最后一节继续 next 保持不动
	if err := s.NextSection(); err != nil {
		t.Fatalf("next at end: %v", err)
	}
	if s.SectionIndex() != 1 {
		t.Fatalf("index must clamp at last section, got %d", s.SectionIndex())
	}

	if err := s.PreviousSection(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if s.SectionIndex() != 0 {
		t.Fatalf("expected index 0, got %d", s.SectionIndex())
	}
	// 第 0 节继续后退 → 类型选择
	if err := s.PreviousSection(); err != nil {
		t.Fatalf("previous at start: %v", err)
	}
	if s.Step() != StepTypeSelection {
		t.Fatalf("expected fall back to type selection, got %s", s.Step())
	}
}

func TestSetItemStatusAndProgress(t *testing.T) {
	s := reviewingSession(t)
	if s.Progress() != 0 {
		t.Fatalf("expected 0 progress, got %d", s.Progress())
	}

	if err := s.SetItemStatus(0, 0, ItemPass); err != nil {
		t.Fatalf("set status: %v", err)
	}
	// 1/3 → 33
	if got := s.Progress(); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}

	if err := s.SetItemStatus(0, 1, ItemFail); err != nil {
		t.Fatalf("set status: %v", err)
	}
	// 2/3 → 67
	if got := s.Progress(); got != 67 {
		t.Fatalf("expected 67, got %d", got)
	}

	// 清除结论
	if err := s.SetItemStatus(0, 0, ""); err != nil {
		t.Fatalf("clear status: %v", err)
	}
	if got := s.Progress(); got != 33 {
		t.Fatalf("expected 33 after clearing, got %d", got)
	}

	if err := s.SetItemStatus(0, 0, "maybe"); err == nil {
		t.Fatalf("expected invalid status error")
	}
	if err := s.SetItemStatus(5, 0, ItemPass); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestSectionProgress(t *testing.T) {
	s := reviewingSession(t)
	if err := s.SetItemStatus(0, 0, ItemPass); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got := s.SectionProgress(0); got != 50 {
		t.Fatalf("expected section 0 at 50, got %d", got)
	}
	if got := s.SectionProgress(1); got != 0 {
		t.Fatalf("expected section 1 at 0, got %d", got)
	}
	if got := s.SectionProgress(9); got != 0 {
		t.Fatalf("out-of-range section must report 0, got %d", got)
	}
}

func TestDefaultTypeIsFirstAssignable(t *testing.T) {
	s := NewSession("s1", "actor1", "en", "")
	if s.DefaultType() != "" {
		t.Fatalf("no types means no default")
	}
	if err := s.SelectVehicle(&vehicle.Vehicle{ID: "v1"}, []string{"safety", "routine"}); err != nil {
		t.Fatalf("select vehicle: %v", err)
	}
	if got := s.DefaultType(); got != "safety" {
		t.Fatalf("expected first assignable type, got %s", got)
	}
}

func TestProgressEmptyTemplate(t *testing.T) {
	s := NewSession("s1", "actor1", "en", "")
	if s.Progress() != 0 {
		t.Fatalf("empty template progress must be 0")
	}
}

func TestCaptureLifecycle(t *testing.T) {
	s := reviewingSession(t)

	if err := s.BeginCapture(0, 0); err != nil {
		t.Fatalf("begin capture: %v", err)
	}
	// 第二个目标被拒绝
	if err := s.BeginCapture(0, 1); !errors.Is(err, ErrCapturePending) {
		t.Fatalf("expected ErrCapturePending, got %v", err)
	}

	s.CompleteCapture("staged://p1")
	items := s.Sections()[0].Items
	if len(items[0].Photos) != 1 || items[0].Photos[0] != "staged://p1" {
		t.Fatalf("photo not attached: %v", items[0].Photos)
	}

	// 无目标时完成拍照：静默丢弃
	s.CompleteCapture("staged://orphan")
	if len(s.Sections()[0].Items[0].Photos) != 1 {
		t.Fatalf("orphan capture must be dropped")
	}

	if err := s.BeginCapture(0, 1); err != nil {
		t.Fatalf("begin after complete: %v", err)
	}
	s.CancelCapture()
	if err := s.BeginCapture(0, 1); err != nil {
		t.Fatalf("begin after cancel: %v", err)
	}
}

func TestDeletePhoto(t *testing.T) {
	s := reviewingSession(t)
	if err := s.BeginCapture(0, 0); err != nil {
		t.Fatalf("begin capture: %v", err)
	}
	s.CompleteCapture("staged://p1")

	ref, err := s.DeletePhoto(0, 0, 0)
	if err != nil || ref != "staged://p1" {
		t.Fatalf("delete photo: ref=%s err=%v", ref, err)
	}
	if _, err := s.DeletePhoto(0, 0, 0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestSubmitOnlyFromLastSection(t *testing.T) {
	s := reviewingSession(t)
	if err := s.BeginSubmit(); err == nil {
		t.Fatalf("submit from first section must fail")
	}
	if err := s.NextSection(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := s.BeginSubmit(); err != nil {
		t.Fatalf("submit from last section: %v", err)
	}
	if s.Step() != StepSubmitting {
		t.Fatalf("expected submitting, got %s", s.Step())
	}
}

func TestFinishSubmitOutcomes(t *testing.T) {
	s := reviewingSession(t)
	_ = s.NextSection()
	_ = s.BeginSubmit()
	s.FinishSubmit(false)
	if s.Step() != StepSectionReview {
		t.Fatalf("failed submit must return to review, got %s", s.Step())
	}

	_ = s.BeginSubmit()
	s.FinishSubmit(true)
	if s.Step() != StepCompleted {
		t.Fatalf("expected completed, got %s", s.Step())
	}
}

func TestInFlightGuard(t *testing.T) {
	s := reviewingSession(t)
	if !s.TryBeginFlight() {
		t.Fatalf("first flight must be granted")
	}
	if s.TryBeginFlight() {
		t.Fatalf("second flight must be rejected")
	}
	s.EndFlight()
	if !s.TryBeginFlight() {
		t.Fatalf("flight must be granted after release")
	}
}

func TestLoadSeqLastInputWins(t *testing.T) {
	s := NewSession("s1", "actor1", "en", "")
	first := s.NextLoadSeq()
	second := s.NextLoadSeq()
	if s.IsCurrentLoad(first) {
		t.Fatalf("stale load must be discarded")
	}
	if !s.IsCurrentLoad(second) {
		t.Fatalf("latest load must win")
	}
}

func TestMarkMergedOnce(t *testing.T) {
	s := NewSession("s1", "actor1", "en", "insp1")
	if !s.MarkMerged("insp1") {
		t.Fatalf("first merge must proceed")
	}
	if s.MarkMerged("insp1") {
		t.Fatalf("second merge of the same inspection must be skipped")
	}
}

func TestMarkMergedResetsWhenSectionsDiscarded(t *testing.T) {
	s := NewSession("s1", "actor1", "en", "insp1")
	if err := s.SelectVehicle(&vehicle.Vehicle{ID: "v1"}, []string{"routine", "safety"}); err != nil {
		t.Fatalf("select vehicle: %v", err)
	}
	if err := s.AdvanceToTypeSelection(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := s.SelectType("routine"); err != nil {
		t.Fatalf("select type: %v", err)
	}
	if err := s.EnterSectionReview("insp1", testSections()); err != nil {
		t.Fatalf("enter review: %v", err)
	}
	if !s.MarkMerged("insp1") {
		t.Fatalf("first merge must proceed")
	}

	// 从第 0 节退回类型选择丢弃工作态，守卫必须重置
	if err := s.PreviousSection(); err != nil {
		t.Fatalf("previous past 0: %v", err)
	}
	if s.Step() != StepTypeSelection {
		t.Fatalf("expected type selection, got %s", s.Step())
	}
	if !s.MarkMerged("insp1") {
		t.Fatalf("merge guard must reset after work state is discarded")
	}
}

func TestSectionsSnapshotIsolated(t *testing.T) {
	s := reviewingSession(t)
	snap := s.Sections()

	if err := s.SetItemStatus(0, 0, ItemPass); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := s.SetItemNotes(0, 0, "worn"); err != nil {
		t.Fatalf("set notes: %v", err)
	}
	if err := s.BeginCapture(0, 0); err != nil {
		t.Fatalf("begin capture: %v", err)
	}
	s.CompleteCapture("staged://p1")

	// 快照不随后续修改变化
	it := snap[0].Items[0]
	if it.Status != nil || it.Notes != "" || len(it.Photos) != 0 {
		t.Fatalf("snapshot must not see later mutations: %+v", it)
	}

	// 改写快照不影响会话
	snap[0].Items[1].Notes = "scribble"
	snap[0].Items[1].Photos = append(snap[0].Items[1].Photos, "staged://x")
	live := s.Sections()[0].Items[1]
	if live.Notes != "" || len(live.Photos) != 0 {
		t.Fatalf("session must not see snapshot mutations: %+v", live)
	}
}

func TestMarkAutoStartedOnce(t *testing.T) {
	s := NewSession("s1", "actor1", "en", "")
	if !s.MarkAutoStarted() {
		t.Fatalf("first auto start must be granted")
	}
	if s.MarkAutoStarted() {
		t.Fatalf("auto start must not repeat")
	}
	// 重新选车后守卫重置
	if err := s.SelectVehicle(&vehicle.Vehicle{ID: "v2"}, nil); err != nil {
		t.Fatalf("select vehicle: %v", err)
	}
	if !s.MarkAutoStarted() {
		t.Fatalf("auto start guard must reset on vehicle selection")
	}
}
