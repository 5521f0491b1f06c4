package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// WorkerConfig 工作器配置
type WorkerConfig struct {
	AdbPath        string `json:"adb_path"`        // adb 可执行文件路径
	DBPath         string `json:"db_path"`         // 屏幕控制数据库路径
	TemplatesDir   string `json:"templates_dir"`   // 屏幕模板图片目录
	ScreenshotsDir string `json:"screenshots_dir"` // 截图保存目录
	AppPackage     string `json:"app_package"`     // 目标应用包名
	AppActivity    string `json:"app_activity"`    // 目标应用入口 Activity
	LogLevel       string `json:"log_level"`       // 日志级别 (DEBUG/INFO/WARN/ERROR)
	LogFile        string `json:"log_file"`        // 日志文件路径，为空不写文件
}

// DefaultWorkerConfig 默认工作器配置
func DefaultWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		AdbPath:        "adb",
		DBPath:         filepath.Join("data", "screen_control.db"),
		TemplatesDir:   "screen_templates",
		ScreenshotsDir: "screenshots",
		AppPackage:     "",
		AppActivity:    "",
		LogLevel:       "INFO",
		LogFile:        "",
	}
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := filepath.Join(homeDir, ".screenworker")
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// ensureDir 确保配置目录存在
func (m *Manager) ensureDir() error {
	return os.MkdirAll(m.configDir, 0755)
}

// Load 加载配置，文件不存在时返回默认配置
func (m *Manager) Load() (*WorkerConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return DefaultWorkerConfig(), nil
	}

	data, err := os.ReadFile(m.configFile)
	if err != nil {
		return DefaultWorkerConfig(), fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 先填默认值，文件中缺省的字段保持默认
	config := DefaultWorkerConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return DefaultWorkerConfig(), fmt.Errorf("解析配置文件失败: %w", err)
	}

	return config, nil
}

// Save 保存配置
func (m *Manager) Save(config *WorkerConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureDir(); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}

	return os.Remove(m.configFile)
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

// 全局配置管理器
var defaultManager = NewManager()

// GetDefaultManager 获取默认配置管理器
func GetDefaultManager() *Manager {
	return defaultManager
}

// Load 使用默认管理器加载配置
func Load() (*WorkerConfig, error) {
	return defaultManager.Load()
}

// Save 使用默认管理器保存配置
func Save(config *WorkerConfig) error {
	return defaultManager.Save(config)
}

// Clear 使用默认管理器清除配置
func Clear() error {
	return defaultManager.Clear()
}
