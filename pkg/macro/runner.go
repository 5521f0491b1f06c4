package macro

import (
	"errors"
	"fmt"
	"time"
)

// StepStatus 单步执行状态
type StepStatus string

const (
	// StepSuccess 执行成功
	StepSuccess StepStatus = "success"
	// StepFailed 设备命令执行了但报告失败
	StepFailed StepStatus = "failed"
	// StepError 动作不良构或通道故障
	StepError StepStatus = "error"
)

// StepLog 执行日志的一条记录
type StepLog struct {
	Step   int        `json:"step"` // 从 1 开始
	Action ActionType `json:"action"`
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// FailedAction 失败步骤摘要
type FailedAction struct {
	Step   int        `json:"step"`
	Action ActionType `json:"action"`
	Error  string     `json:"error"`
}

// Result 宏执行结果
// Success 仅在所有动作都成功时为 true；部分失败始终在
// FailedActions/ExecutionLog 中逐步列出，不压缩成单个布尔值
type Result struct {
	Success         bool           `json:"success"`
	TotalActions    int            `json:"total_actions"`
	ExecutedActions int            `json:"executed_actions"`
	FailedActions   []FailedAction `json:"failed_actions"`
	ExecutionLog    []StepLog      `json:"execution_log"`
}

// RunMacro 按序执行动作序列
//
// 失败继续策略: 每个动作无论之前成败都会尝试，失败只记录不中断。
// UI 宏常含防御性步骤 (如"有弹窗就关掉")，首错即停会让宏过于脆弱。
// 设备参数在开头取一次，整个序列复用
func (e *Executor) RunMacro(device string, actions []Action) *Result {
	start := time.Now()

	result := &Result{
		Success:       true,
		TotalActions:  len(actions),
		FailedActions: make([]FailedAction, 0),
		ExecutionLog:  make([]StepLog, 0, len(actions)),
	}

	settings := e.settings.GetDeviceSettings(device)

	for i, action := range actions {
		step := i + 1
		err := e.ExecuteAction(device, action, &settings)

		if err == nil {
			result.ExecutedActions++
			result.ExecutionLog = append(result.ExecutionLog, StepLog{
				Step:   step,
				Action: action.Type,
				Status: StepSuccess,
			})
			continue
		}

		status := StepError
		if errors.Is(err, ErrActionFailed) {
			status = StepFailed
		}

		result.Success = false
		result.FailedActions = append(result.FailedActions, FailedAction{
			Step:   step,
			Action: action.Type,
			Error:  err.Error(),
		})
		result.ExecutionLog = append(result.ExecutionLog, StepLog{
			Step:   step,
			Action: action.Type,
			Status: status,
			Error:  err.Error(),
		})
		// 继续执行剩余动作
	}

	elapsed := float64(time.Since(start).Milliseconds())
	e.log.LogEvent("MAC", device, result.Success, elapsed,
		fmt.Sprintf("total=%d executed=%d failed=%d",
			result.TotalActions, result.ExecutedActions, len(result.FailedActions)))

	return result
}
