// Package schedule 在提交成功后排下一次计划巡检。
package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/FleetLink/FleetLink/internal/inspection"
)

// Planner 复检排期器：按类型间隔（天）创建下一条 scheduled 巡检单。
// 间隔未配置或为 0 的类型不排期。
type Planner struct {
	store          inspection.Store
	recurrenceDays map[string]int
}

// NewPlanner 创建排期器
func NewPlanner(store inspection.Store, recurrenceDays map[string]int) *Planner {
	return &Planner{store: store, recurrenceDays: recurrenceDays}
}

// PlanNext 为刚完成的巡检排下一次，返回新巡检单 id（不排期时为空串）。
func (p *Planner) PlanNext(ctx context.Context, completed *inspection.Inspection) (string, error) {
	if p == nil || p.store == nil {
		return "", fmt.Errorf("planner is not initialized")
	}
	if completed == nil {
		return "", fmt.Errorf("inspection is nil")
	}

	days, ok := p.recurrenceDays[completed.Type]
	if !ok || days <= 0 {
		return "", nil
	}

	next := &inspection.Inspection{
		ID:        uuid.NewString(),
		VehicleID: completed.VehicleID,
		Type:      completed.Type,
		Status:    inspection.StatusScheduled,
		Date:      completed.Date.AddDate(0, 0, days),
		CreatedBy: completed.CreatedBy,
	}
	if err := p.store.CreateInspection(ctx, next); err != nil {
		return "", err
	}
	return next.ID, nil
}
