package adb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 设备端临时截图路径
const remoteScreenshotPath = "/sdcard/screenshot.png"

// Screenshot 截取设备屏幕并保存到本地
// 流程: 设备端 screencap → adb pull → 清理设备端文件
// saveDir 为截图根目录，按设备地址分子目录；返回本地文件路径
func (d *Device) Screenshot(saveDir string) (string, error) {
	deviceDir := filepath.Join(saveDir, strings.ReplaceAll(d.Address, ":", "_"))
	if err := os.MkdirAll(deviceDir, 0755); err != nil {
		return "", fmt.Errorf("创建截图目录失败: %w", err)
	}

	savePath := filepath.Join(deviceDir, fmt.Sprintf("screenshot_%s.png", uuid.NewString()))
	return d.ScreenshotTo(savePath)
}

// ScreenshotTo 截取设备屏幕并保存到指定路径
func (d *Device) ScreenshotTo(savePath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return "", fmt.Errorf("创建截图目录失败: %w", err)
	}

	// 设备端截屏
	result, err := d.Shell(DefaultTimeout, "screencap", "-p", remoteScreenshotPath)
	if err != nil {
		return "", err
	}
	if !result.Success() {
		if result.PermissionDenied() {
			return "", fmt.Errorf("截屏失败: %w", ErrPermissionDenied)
		}
		return "", fmt.Errorf("截屏失败: %s", strings.TrimSpace(result.Stderr))
	}

	// 拉取到本地
	result, err = d.Run([]string{"pull", remoteScreenshotPath, savePath}, PullTimeout)
	if err != nil {
		return "", err
	}
	if !result.Success() {
		return "", fmt.Errorf("拉取截图失败: %s", strings.TrimSpace(result.Stderr))
	}

	// 清理设备端文件，失败不影响结果
	if _, err := d.Shell(5*time.Second, "rm", remoteScreenshotPath); err != nil {
		d.log.Warn("清理设备端截图失败: %v", err)
	}

	if _, err := os.Stat(savePath); err != nil {
		return "", fmt.Errorf("截图文件未生成: %w", err)
	}
	return savePath, nil
}
