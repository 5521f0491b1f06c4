package macro

// DeviceSettings 设备级调优参数
type DeviceSettings struct {
	// MatchThreshold 屏幕匹配阈值覆盖
	MatchThreshold float64 `json:"match_threshold"`
	// KeystrokeDelayMs 文本输入的逐字符间隔，慢设备连发会丢键
	KeystrokeDelayMs int `json:"keystroke_delay_ms"`
	// PostLoginWaitSeconds 登录宏执行后的等待秒数
	PostLoginWaitSeconds int `json:"post_login_wait_seconds"`
}

// DefaultSettings 默认设备参数
func DefaultSettings() DeviceSettings {
	return DeviceSettings{
		MatchThreshold:       0.7,
		KeystrokeDelayMs:     150,
		PostLoginWaitSeconds: 4,
	}
}

// SettingsSource 设备参数来源
// 查不到或出错时实现方返回默认参数，调用方无需区分
type SettingsSource interface {
	GetDeviceSettings(address string) DeviceSettings
}

// StaticSettings 固定参数的 SettingsSource，所有设备共用一份
type StaticSettings struct {
	Settings DeviceSettings
}

// GetDeviceSettings 返回固定参数
func (s StaticSettings) GetDeviceSettings(string) DeviceSettings {
	return s.Settings
}
