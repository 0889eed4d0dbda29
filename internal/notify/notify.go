// Package notify 在巡检提交成功后推送通知（尽力而为）。
package notify

import "context"

// Event 推送事件
type Event struct {
	InspectionID string
	VehicleID    string
	VehicleName  string
	Status       string
	Actor        string
}

// Notifier 通知发送器
type Notifier interface {
	InspectionSubmitted(ctx context.Context, ev Event) error
}

// Nop 空实现（关闭推送时使用）
type Nop struct{}

// InspectionSubmitted 什么都不做
func (Nop) InspectionSubmitted(ctx context.Context, ev Event) error {
	return nil
}
