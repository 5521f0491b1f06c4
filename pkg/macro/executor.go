package macro

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/droidauto/screenworker/internal/logger"
	"github.com/droidauto/screenworker/pkg/adb"
)

// 动作超时: 输入类命令短，逐字符文本稍长
const (
	inputTimeout = 10 * time.Second
	textTimeout  = 15 * time.Second
)

// 默认值
const (
	DefaultSwipeDuration     = 300  // ms
	DefaultLongPressDuration = 2000 // ms
	DefaultMaxRetries        = 2
	retryBackoff             = 500 * time.Millisecond
)

// Android 键码
const (
	KeycodeHome = 3
	KeycodeBack = 4
)

// ErrActionFailed 设备命令执行了但报告失败
// 与通道本身的故障 (超时/无法启动) 区分，宏运行器据此分类记录
var ErrActionFailed = errors.New("动作执行失败")

// Executor 动作执行器
// 把单个动作翻译成设备输入命令；文本输入的转义与重试策略在这里
type Executor struct {
	runner   adb.Runner
	settings SettingsSource
	log      *logger.Logger

	// sleep 可在测试中替换，避免真实等待
	sleep func(time.Duration)
}

// NewExecutor 创建动作执行器
func NewExecutor(runner adb.Runner, settings SettingsSource) *Executor {
	return &Executor{
		runner:   runner,
		settings: settings,
		log:      logger.Default(),
		sleep:    time.Sleep,
	}
}

// input 执行一条 input 命令
func (e *Executor) input(device string, timeout time.Duration, args ...string) error {
	result, err := e.runner.Run(device, append([]string{"shell", "input"}, args...), timeout)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("%w: input %s: %s", ErrActionFailed,
			strings.Join(args, " "), strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Tap 点击坐标 (x, y)
func (e *Executor) Tap(device string, x, y int) error {
	return e.input(device, inputTimeout, "tap", strconv.Itoa(x), strconv.Itoa(y))
}

// Swipe 从 (x1, y1) 滑动到 (x2, y2)，duration 为毫秒
func (e *Executor) Swipe(device string, x1, y1, x2, y2, duration int) error {
	if duration <= 0 {
		duration = DefaultSwipeDuration
	}
	return e.input(device, inputTimeout, "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1),
		strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.Itoa(duration))
}

// LongPress 长按坐标 (x, y)
// 长按即起止重合、按住 duration 毫秒的滑动
func (e *Executor) LongPress(device string, x, y, duration int) error {
	if duration <= 0 {
		duration = DefaultLongPressDuration
	}
	return e.Swipe(device, x, y, x, y, duration)
}

// Keyevent 发送键码
func (e *Executor) Keyevent(device string, code int) error {
	return e.input(device, inputTimeout, "keyevent", strconv.Itoa(code))
}

// Back 返回键
func (e *Executor) Back(device string) error {
	return e.Keyevent(device, KeycodeBack)
}

// Home 主屏键
func (e *Executor) Home(device string) error {
	return e.Keyevent(device, KeycodeHome)
}

// Wait 纯等待
func (e *Executor) Wait(seconds float64) error {
	if seconds < 0 {
		return fmt.Errorf("wait 秒数不能为负: %v", seconds)
	}
	e.sleep(time.Duration(seconds * float64(time.Second)))
	return nil
}

// escapeChar 字符转义表
// input text 无法原样传输 shell 元字符: 空格用 %s 占位，其余反斜杠转义
func escapeChar(ch rune) string {
	switch ch {
	case ' ':
		return "%s"
	case '&':
		return `\&`
	case '"':
		return `\"`
	case '\'':
		return `\'`
	case '`':
		return "\\`"
	case '$':
		return `\$`
	case '(':
		return `\(`
	case ')':
		return `\)`
	default:
		return string(ch)
	}
}

// Text 逐字符输入文本
// 每个字符单独发一条 input text 命令，字符间按 delayMs 节流，
// 连发过快在慢设备上会丢键
func (e *Executor) Text(device, value string, delayMs int) error {
	for _, ch := range value {
		if err := e.input(device, textTimeout, "text", escapeChar(ch)); err != nil {
			return fmt.Errorf("输入字符 %q 失败: %w", ch, err)
		}
		if delayMs > 0 {
			e.sleep(time.Duration(delayMs) * time.Millisecond)
		}
	}
	return nil
}

// TextWithRetry 带重试的文本输入
// 任一字符失败即整串从头重来，不做断点续传: 输了一半的输入框
// 视为已污染，由宏作者在上游负责清空。
// 最多追加 maxRetries 次尝试，间隔固定 500ms
func (e *Executor) TextWithRetry(device, value string, delayMs, maxRetries int) error {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = e.Text(device, value, delayMs)
		if lastErr == nil {
			return nil
		}
		if attempt < maxRetries {
			e.log.Warn("文本输入失败，重试 (%d/%d)...", attempt+1, maxRetries)
			e.sleep(retryBackoff)
		}
	}

	e.log.Error("文本输入在 %d 次尝试后仍失败", maxRetries+1)
	return fmt.Errorf("%w: 文本输入 %d 次尝试后仍失败: %s",
		ErrActionFailed, maxRetries+1, lastErr)
}

// ExecuteAction 执行单个动作
// settings 为 nil 时从 SettingsSource 获取；宏运行器会取一次后
// 传给整个序列，避免逐动作重取造成中途参数漂移
func (e *Executor) ExecuteAction(device string, action Action, settings *DeviceSettings) error {
	if err := action.Validate(); err != nil {
		return err
	}

	if settings == nil {
		s := e.settings.GetDeviceSettings(device)
		settings = &s
	}

	switch action.Type {
	case ActionTap:
		return e.Tap(device, action.X, action.Y)

	case ActionSwipe:
		return e.Swipe(device, action.X1, action.Y1, action.X2, action.Y2, action.Duration)

	case ActionText:
		delayMs := settings.KeystrokeDelayMs
		if action.DelayMs != nil {
			delayMs = *action.DelayMs
		}
		if action.retryEnabled() {
			return e.TextWithRetry(device, action.Value, delayMs, DefaultMaxRetries)
		}
		if err := e.Text(device, action.Value, delayMs); err != nil {
			return fmt.Errorf("%w: %s", ErrActionFailed, err)
		}
		return nil

	case ActionKeyevent:
		return e.Keyevent(device, action.Code)

	case ActionLongPress:
		return e.LongPress(device, action.X, action.Y, action.Duration)

	case ActionBack:
		return e.Back(device)

	case ActionHome:
		return e.Home(device)

	case ActionWait:
		return e.Wait(action.Seconds)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action.Type)
	}
}
