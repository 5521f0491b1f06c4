// Package macro 提供设备输入动作与宏的执行
//
// 宏是命名的有序动作序列，动作通过 adb 命令通道注入设备。
// 宏执行采用失败继续策略: 单步失败记录在案但不中断序列。
package macro

import (
	"errors"
	"fmt"
)

// ActionType 动作类型
type ActionType string

const (
	ActionTap       ActionType = "tap"
	ActionSwipe     ActionType = "swipe"
	ActionText      ActionType = "text"
	ActionKeyevent  ActionType = "keyevent"
	ActionLongPress ActionType = "long_press"
	ActionBack      ActionType = "back"
	ActionHome      ActionType = "home"
	ActionWait      ActionType = "wait"
)

// ErrUnknownAction 未知动作类型
var ErrUnknownAction = errors.New("未知动作类型")

// Action 单个设备输入动作
// 字段按 Type 取用，与宏在存储中的 JSON 形态一一对应
type Action struct {
	Type ActionType `json:"type"`

	// tap / long_press 坐标
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`

	// swipe 起止坐标
	X1 int `json:"x1,omitempty"`
	Y1 int `json:"y1,omitempty"`
	X2 int `json:"x2,omitempty"`
	Y2 int `json:"y2,omitempty"`

	// swipe / long_press 持续毫秒
	Duration int `json:"duration,omitempty"`

	// text 内容与可选覆盖
	Value   string `json:"value,omitempty"`
	DelayMs *int   `json:"delay_ms,omitempty"` // nil 时用设备参数
	Retry   *bool  `json:"retry,omitempty"`    // nil 按 true 处理

	// keyevent 键码
	Code int `json:"code,omitempty"`

	// wait 秒数，支持小数
	Seconds float64 `json:"seconds,omitempty"`
}

// Validate 校验动作是否良构
func (a Action) Validate() error {
	switch a.Type {
	case ActionTap, ActionSwipe, ActionText, ActionKeyevent,
		ActionLongPress, ActionBack, ActionHome:
		return nil
	case ActionWait:
		if a.Seconds < 0 {
			return fmt.Errorf("wait 秒数不能为负: %v", a.Seconds)
		}
		return nil
	case "":
		return fmt.Errorf("%w: 缺少 type 字段", ErrUnknownAction)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, a.Type)
	}
}

// retryEnabled text 动作是否启用重试，缺省为 true
func (a Action) retryEnabled() bool {
	return a.Retry == nil || *a.Retry
}
