package inspection

import "fmt"

// AllowTransition 巡检单状态流转表。
// completed / failed 允许回到 in_progress（续检、复检编辑）。
var AllowTransition = map[string][]string{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {StatusInProgress},
	StatusFailed:     {StatusInProgress},
	StatusCancelled:  {},
}

// CanTransition 判断状态流转是否允许
func CanTransition(from, to string) bool {
	for _, allowed := range AllowTransition[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ApplyTransition 执行状态流转，非法流转返回错误。
func ApplyTransition(insp *Inspection, to string) error {
	if insp == nil {
		return fmt.Errorf("inspection is nil")
	}
	if !CanTransition(insp.Status, to) {
		return fmt.Errorf("invalid status transition: %s -> %s", insp.Status, to)
	}
	insp.Status = to
	return nil
}
