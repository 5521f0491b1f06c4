package adb

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/droidauto/screenworker/internal/logger"
)

// Device 一台可寻址的 Android 设备
type Device struct {
	Address string // adb 地址 (ip:port 或序列号)
	Name    string // 展示名称，缺省用地址

	runner Runner
	log    *logger.Logger
}

// NewDevice 创建设备句柄
func NewDevice(address string, runner Runner) *Device {
	return &Device{
		Address: address,
		Name:    address,
		runner:  runner,
		log:     logger.Default(),
	}
}

// Run 在本设备上执行 adb 命令
func (d *Device) Run(args []string, timeout time.Duration) (*CommandResult, error) {
	start := time.Now()
	result, err := d.runner.Run(d.Address, args, timeout)
	elapsed := float64(time.Since(start).Milliseconds())

	detail := strings.Join(args, " ")
	if err != nil {
		d.log.LogEvent("ADB", d.Address, false, elapsed, detail+": "+err.Error())
		return nil, err
	}
	d.log.LogEvent("ADB", d.Address, result.Success(), elapsed, detail)
	return result, nil
}

// Shell 在设备上执行 shell 命令
func (d *Device) Shell(timeout time.Duration, args ...string) (*CommandResult, error) {
	return d.Run(append([]string{"shell"}, args...), timeout)
}

// Connect 连接设备 (adb connect)
func (d *Device) Connect() error {
	result, err := d.runner.Run("", []string{"connect", d.Address}, ConnectTimeout)
	if err != nil {
		return err
	}
	// adb connect 对失败也可能返回 0，需检查输出
	if !result.Success() || !strings.Contains(strings.ToLower(result.Stdout), "connected") {
		return fmt.Errorf("连接设备失败: %s", strings.TrimSpace(result.Stdout+result.Stderr))
	}
	return nil
}

// CheckConnection 检查设备是否在 adb devices 列表中
func (d *Device) CheckConnection() bool {
	result, err := d.runner.Run("", []string{"devices"}, 5*time.Second)
	if err != nil || !result.Success() {
		return false
	}
	return strings.Contains(result.Stdout, d.Address)
}

// Resolution 查询设备屏幕分辨率
// 优先使用 Override size (实际显示分辨率)，否则用 Physical size
func (d *Device) Resolution() (width, height int, err error) {
	result, err := d.Shell(5*time.Second, "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	if !result.Success() {
		return 0, 0, fmt.Errorf("查询分辨率失败: %s", strings.TrimSpace(result.Stderr))
	}

	var physical, override string
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Physical size:"); ok {
			physical = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "Override size:"); ok {
			override = strings.TrimSpace(v)
		}
	}

	size := override
	if size == "" {
		size = physical
	}
	if size == "" {
		return 0, 0, fmt.Errorf("无法解析 wm size 输出: %q", result.Stdout)
	}

	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return 0, 0, fmt.Errorf("无法解析分辨率: %q", size)
	}
	width, err = strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, fmt.Errorf("无法解析分辨率: %q", size)
	}
	height, err = strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, fmt.Errorf("无法解析分辨率: %q", size)
	}
	return width, height, nil
}

// AppStatus 应用安装与运行状态
type AppStatus struct {
	Installed bool `json:"installed"`
	Running   bool `json:"running"`
}

// AppInstalled 检查应用是否已安装
func (d *Device) AppInstalled(pkg string) (bool, error) {
	result, err := d.Shell(DefaultTimeout, "pm", "list", "packages")
	if err != nil {
		return false, err
	}
	if !result.Success() {
		return false, fmt.Errorf("查询已安装应用失败: %s", strings.TrimSpace(result.Stderr))
	}
	return strings.Contains(result.Stdout, pkg), nil
}

// AppRunning 检查应用是否在运行
func (d *Device) AppRunning(pkg string) (bool, error) {
	result, err := d.Shell(DefaultTimeout, "pidof", pkg)
	if err != nil {
		return false, err
	}
	// pidof 找不到进程时退出码非零，不算错误
	return result.Success() && strings.TrimSpace(result.Stdout) != "", nil
}

// GetAppStatus 一次性获取应用安装与运行状态
func (d *Device) GetAppStatus(pkg string) (*AppStatus, error) {
	installed, err := d.AppInstalled(pkg)
	if err != nil {
		return nil, err
	}
	status := &AppStatus{Installed: installed}
	if installed {
		running, err := d.AppRunning(pkg)
		if err != nil {
			return nil, err
		}
		status.Running = running
	}
	return status, nil
}

// StartApp 启动应用
func (d *Device) StartApp(pkg, activity string) error {
	result, err := d.Shell(DefaultTimeout, "am", "start", "-n", pkg+"/"+activity)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("启动应用失败: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// StopApp 停止应用
func (d *Device) StopApp(pkg string) error {
	result, err := d.Shell(DefaultTimeout, "am", "force-stop", pkg)
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("停止应用失败: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// SlaveModeStatus 托管模式状态
type SlaveModeStatus struct {
	Enabled       bool `json:"enabled"`
	ScreenTimeout int  `json:"screen_timeout"` // screen_off_timeout 毫秒值，-1 表示未知
	StayAwake     bool `json:"stay_awake"`
}

// EnableSlaveMode 开启托管模式: 禁用息屏、保持唤醒、熄屏
// 开启后设备可在灭屏状态下被远程控制
func (d *Device) EnableSlaveMode() error {
	steps := [][]string{
		{"settings", "put", "system", "screen_off_timeout", "2147483647"},
		{"svc", "power", "stayon", "true"},
		{"input", "keyevent", "26"},
	}
	for _, step := range steps {
		result, err := d.Shell(DefaultTimeout, step...)
		if err != nil {
			return err
		}
		if !result.Success() {
			// 单步失败只告警，尽量把剩余设置做完
			d.log.Warn("托管模式步骤失败: %s", strings.Join(step, " "))
		}
	}
	return nil
}

// DisableSlaveMode 关闭托管模式: 恢复 60s 息屏、关闭保持唤醒、亮屏
func (d *Device) DisableSlaveMode() error {
	steps := [][]string{
		{"settings", "put", "system", "screen_off_timeout", "60000"},
		{"svc", "power", "stayon", "false"},
		{"input", "keyevent", "KEYCODE_WAKEUP"},
	}
	for _, step := range steps {
		result, err := d.Shell(DefaultTimeout, step...)
		if err != nil {
			return err
		}
		if !result.Success() {
			d.log.Warn("托管模式步骤失败: %s", strings.Join(step, " "))
		}
	}
	return nil
}

// GetSlaveModeStatus 查询托管模式状态
// 息屏超时大于 1 小时视为托管中
func (d *Device) GetSlaveModeStatus() (*SlaveModeStatus, error) {
	status := &SlaveModeStatus{ScreenTimeout: -1}

	result, err := d.Shell(5*time.Second, "settings", "get", "system", "screen_off_timeout")
	if err != nil {
		return nil, err
	}
	if result.Success() {
		if v, err := strconv.Atoi(strings.TrimSpace(result.Stdout)); err == nil {
			status.ScreenTimeout = v
			status.Enabled = v > 3600000
		}
	}

	result, err = d.Shell(5*time.Second, "settings", "get", "global", "stay_on_while_plugged_in")
	if err != nil {
		return nil, err
	}
	if result.Success() {
		if v, err := strconv.Atoi(strings.TrimSpace(result.Stdout)); err == nil {
			status.StayAwake = v > 0
		}
	}

	return status, nil
}
