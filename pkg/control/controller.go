// Package control 把截图、屏幕识别与宏执行串成完整流程
//
// 流程: 截图 → 识别当前屏幕 → 查关联宏 → 逐个执行。
// 本包不拥有任何存储，只组合各层的窄接口
package control

import (
	"fmt"
	"time"

	"github.com/droidauto/screenworker/internal/logger"
	"github.com/droidauto/screenworker/pkg/adb"
	"github.com/droidauto/screenworker/pkg/macro"
	"github.com/droidauto/screenworker/pkg/screen"
	"github.com/droidauto/screenworker/pkg/store"
)

// ScreenDetector 屏幕识别器
type ScreenDetector interface {
	Detect(screenshotPath string, opts ...screen.DetectOption) *screen.DetectionResult
}

// MacroStore 宏来源
type MacroStore interface {
	GetMacro(name string) (*store.Macro, error)
	GetMacroByID(id int64) (*store.Macro, error)
	MacrosForTemplate(templateID int64) ([]store.Macro, error)
}

// CredentialStore 凭据来源
type CredentialStore interface {
	GetCredentials(address string) (*store.Credentials, error)
}

// Controller 设备控制器
type Controller struct {
	runner   adb.Runner
	detector ScreenDetector
	executor *macro.Executor
	macros   MacroStore
	creds    CredentialStore
	settings macro.SettingsSource

	screenshotsDir string
	log            *logger.Logger

	// capture/sleep 可在测试中替换
	capture func(address string) (string, error)
	sleep   func(time.Duration)
}

// New 创建控制器
func New(runner adb.Runner, detector ScreenDetector, executor *macro.Executor,
	macros MacroStore, creds CredentialStore, settings macro.SettingsSource,
	screenshotsDir string) *Controller {

	c := &Controller{
		runner:         runner,
		detector:       detector,
		executor:       executor,
		macros:         macros,
		creds:          creds,
		settings:       settings,
		screenshotsDir: screenshotsDir,
		log:            logger.Default(),
		sleep:          time.Sleep,
	}
	c.capture = func(address string) (string, error) {
		return adb.NewDevice(address, c.runner).Screenshot(c.screenshotsDir)
	}
	return c
}

// NewFromStore 用 SQLite 存储创建控制器
func NewFromStore(runner adb.Runner, st *store.Store, screenshotsDir string) *Controller {
	executor := macro.NewExecutor(runner, st)
	detector := screen.NewDetector(st)
	return New(runner, detector, executor, st, st, st, screenshotsDir)
}

// ScreenState 一次屏幕识别的完整状态
type ScreenState struct {
	ScreenshotPath string                  `json:"screenshot_path,omitempty"`
	Detection      *screen.DetectionResult `json:"detection"`
	LinkedMacros   []store.MacroSummary    `json:"linked_macros,omitempty"`
}

// CurrentScreen 截图并识别设备当前屏幕，附带识别结果关联的宏
func (c *Controller) CurrentScreen(address string, opts ...screen.DetectOption) (*ScreenState, error) {
	screenshotPath, err := c.capture(address)
	if err != nil {
		return nil, fmt.Errorf("截图失败: %w", err)
	}

	state := &ScreenState{
		ScreenshotPath: screenshotPath,
		Detection:      c.detector.Detect(screenshotPath, opts...),
	}

	if state.Detection.Detected() {
		linked, err := c.macros.MacrosForTemplate(state.Detection.TemplateID)
		if err != nil {
			c.log.Warn("查询关联宏失败: %v", err)
		} else {
			for _, m := range linked {
				state.LinkedMacros = append(state.LinkedMacros, store.MacroSummary{
					ID: m.ID, Name: m.Name, Description: m.Description,
				})
			}
		}
	}
	return state, nil
}

// RunMacro 按名称执行宏
func (c *Controller) RunMacro(address, name string) (*macro.Result, error) {
	m, err := c.macros.GetMacro(name)
	if err != nil {
		return nil, err
	}
	return c.executor.RunMacro(address, m.Actions), nil
}

// RunMacroByID 按 ID 执行宏
func (c *Controller) RunMacroByID(address string, id int64) (*macro.Result, error) {
	m, err := c.macros.GetMacroByID(id)
	if err != nil {
		return nil, err
	}
	return c.executor.RunMacro(address, m.Actions), nil
}

// 登录界面的固定坐标与按键
const (
	keycodeTab   = 61
	loginButtonX = 702
	loginButtonY = 1311
)

// AutoLogin 用已存凭据执行自动登录
// 固定动作序列: TAB→用户名→TAB→密码→点登录→短等待，
// 执行完再按设备参数等待登录后加载
func (c *Controller) AutoLogin(address string) (*macro.Result, error) {
	creds, err := c.creds.GetCredentials(address)
	if err != nil {
		return nil, err
	}

	loginActions := []macro.Action{
		{Type: macro.ActionKeyevent, Code: keycodeTab},
		{Type: macro.ActionText, Value: creds.Username},
		{Type: macro.ActionKeyevent, Code: keycodeTab},
		{Type: macro.ActionText, Value: creds.Password},
		{Type: macro.ActionTap, X: loginButtonX, Y: loginButtonY},
		{Type: macro.ActionWait, Seconds: 2},
	}

	result := c.executor.RunMacro(address, loginActions)

	settings := c.settings.GetDeviceSettings(address)
	if settings.PostLoginWaitSeconds > 0 {
		c.sleep(time.Duration(settings.PostLoginWaitSeconds) * time.Second)
	}
	return result, nil
}

// MacroRun 自动流程中一个宏的执行记录
type MacroRun struct {
	MacroID   int64         `json:"macro_id"`
	MacroName string        `json:"macro_name"`
	Result    *macro.Result `json:"result"`
}

// StepResult 一轮自动流程的结果
type StepResult struct {
	Screen    *ScreenState `json:"screen"`
	MacroRuns []MacroRun   `json:"macro_runs,omitempty"`
}

// AutoStep 执行一轮自动流程: 截图识别，识别出屏幕则执行其全部关联宏
// 识别阈值用设备参数覆盖模板阈值
func (c *Controller) AutoStep(address string) (*StepResult, error) {
	settings := c.settings.GetDeviceSettings(address)

	state, err := c.CurrentScreen(address, screen.WithThreshold(settings.MatchThreshold))
	if err != nil {
		return nil, err
	}

	result := &StepResult{Screen: state}
	if !state.Detection.Detected() {
		return result, nil
	}

	linked, err := c.macros.MacrosForTemplate(state.Detection.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("查询关联宏失败: %w", err)
	}

	for _, m := range linked {
		c.log.Info("屏幕 %s 触发宏 %s", state.Detection.Screen, m.Name)
		result.MacroRuns = append(result.MacroRuns, MacroRun{
			MacroID:   m.ID,
			MacroName: m.Name,
			Result:    c.executor.RunMacro(address, m.Actions),
		})
	}
	return result, nil
}

// Watch 按固定间隔循环执行自动流程，直到 stop 关闭
// 单轮出错只记录，循环继续
func (c *Controller) Watch(address string, interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := c.AutoStep(address); err != nil {
				c.log.Error("自动流程出错: %v", err)
			}
		}
	}
}
