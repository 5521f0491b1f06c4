package store

import (
	"fmt"

	"github.com/droidauto/screenworker/internal/logger"
	"github.com/droidauto/screenworker/pkg/macro"
)

// GetDeviceSettings 查询设备参数
// 无记录或查询出错都返回默认参数，实现 macro.SettingsSource
func (s *Store) GetDeviceSettings(address string) macro.DeviceSettings {
	settings := macro.DefaultSettings()

	rows, err := s.db.Query(`
SELECT match_threshold, keystroke_delay_ms, post_login_wait_seconds
FROM device_settings
WHERE device_address = ?`, address)
	if err != nil {
		logger.Warn("查询设备参数失败，使用默认值: %v", err)
		return settings
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&settings.MatchThreshold, &settings.KeystrokeDelayMs,
			&settings.PostLoginWaitSeconds); err != nil {
			logger.Warn("读取设备参数失败，使用默认值: %v", err)
			return macro.DefaultSettings()
		}
	}
	return settings
}

// SaveDeviceSettings 保存设备参数 (管理口径的写入路径)
func (s *Store) SaveDeviceSettings(address string, settings macro.DeviceSettings) error {
	_, err := s.db.Exec(`
INSERT INTO device_settings (device_address, match_threshold, keystroke_delay_ms, post_login_wait_seconds, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(device_address) DO UPDATE SET
	match_threshold=excluded.match_threshold,
	keystroke_delay_ms=excluded.keystroke_delay_ms,
	post_login_wait_seconds=excluded.post_login_wait_seconds,
	updated_at=CURRENT_TIMESTAMP`,
		address, settings.MatchThreshold, settings.KeystrokeDelayMs, settings.PostLoginWaitSeconds)
	if err != nil {
		return fmt.Errorf("保存设备参数失败: %w", err)
	}
	return nil
}
