// internal/models/plan.go
package models

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultNumberOfSlides 默认计划幻灯片数
const DefaultNumberOfSlides = 3

// PlanItem 演示计划中的一项
type PlanItem struct {
	ID          string     `json:"id"`
	SlideNumber int        `json:"slide_number"` // 1 起始，始终等于下标+1
	Topic       string     `json:"topic"`
	Summary     string     `json:"summary"`
	Image       *ImageData `json:"image,omitempty"`
}

// NewPlanItemID 生成计划项ID
func NewPlanItemID() string {
	return "plan-" + uuid.NewString()
}

// Renumber 重新计算 SlideNumber
func Renumber(plan []PlanItem) []PlanItem {
	for i := range plan {
		plan[i].SlideNumber = i + 1
	}
	return plan
}

// ClonePlan 深拷贝计划
func ClonePlan(plan []PlanItem) []PlanItem {
	if plan == nil {
		return nil
	}
	out := make([]PlanItem, len(plan))
	for i, item := range plan {
		out[i] = item
		out[i].Image = item.Image.Clone()
	}
	return out
}

// IndexOfPlanItem 按ID查找，找不到返回 -1
func IndexOfPlanItem(plan []PlanItem, planID string) int {
	for i := range plan {
		if plan[i].ID == planID {
			return i
		}
	}
	return -1
}

// AddPlanItem 追加一项；空主题使用 defaultTopic，其中 %d 为新页码
func AddPlanItem(plan []PlanItem, topic, summary, defaultTopic string) ([]PlanItem, PlanItem) {
	if topic == "" {
		topic = fmt.Sprintf(defaultTopic, len(plan)+1)
	}
	item := PlanItem{ID: NewPlanItemID(), Topic: topic, Summary: summary}
	plan = Renumber(append(plan, item))
	return plan, plan[len(plan)-1]
}

// RemovePlanItem 删除一项
func RemovePlanItem(plan []PlanItem, planID string) ([]PlanItem, error) {
	idx := IndexOfPlanItem(plan, planID)
	if idx < 0 {
		return plan, fmt.Errorf("计划项不存在: %s", planID)
	}
	out := append(plan[:idx:idx], plan[idx+1:]...)
	return Renumber(out), nil
}

// UpdatePlanItem 修改主题或摘要，nil 表示不修改
func UpdatePlanItem(plan []PlanItem, planID string, topic, summary *string) ([]PlanItem, error) {
	idx := IndexOfPlanItem(plan, planID)
	if idx < 0 {
		return plan, fmt.Errorf("计划项不存在: %s", planID)
	}
	if topic != nil {
		plan[idx].Topic = *topic
	}
	if summary != nil {
		plan[idx].Summary = *summary
	}
	return plan, nil
}

// MovePlanItem 把一项移动到 toIndex（越界时夹到两端）
func MovePlanItem(plan []PlanItem, planID string, toIndex int) ([]PlanItem, error) {
	from := IndexOfPlanItem(plan, planID)
	if from < 0 {
		return plan, fmt.Errorf("计划项不存在: %s", planID)
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex >= len(plan) {
		toIndex = len(plan) - 1
	}
	item := plan[from]
	rest := append(plan[:from:from], plan[from+1:]...)
	out := make([]PlanItem, 0, len(plan))
	out = append(out, rest[:toIndex]...)
	out = append(out, item)
	out = append(out, rest[toIndex:]...)
	return Renumber(out), nil
}

// SetPlanItemImage 设置或清除配图
func SetPlanItemImage(plan []PlanItem, planID string, image *ImageData) ([]PlanItem, error) {
	idx := IndexOfPlanItem(plan, planID)
	if idx < 0 {
		return plan, fmt.Errorf("计划项不存在: %s", planID)
	}
	plan[idx].Image = image
	return plan, nil
}
