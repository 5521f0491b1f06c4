// Package store 提供模板/宏/设备参数的 SQLite 持久化
//
// 识别器和宏运行器只依赖本包实现的窄读接口
// (screen.TemplateSource / macro.SettingsSource)，便于测试替换。
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("记录不存在")
)

// Store SQLite 存储
type Store struct {
	db           *sql.DB
	templatesDir string // 模板参考图目录
}

// Open 打开 (必要时创建) 屏幕控制数据库
// templatesDir 为模板参考图所在目录，列模板时用于拼出完整路径
func Open(path, templatesDir string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	s := &Store{db: db, templatesDir: templatesDir}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrate 建表
func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS screen_templates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE,
			filename TEXT,
			confidence_threshold REAL DEFAULT 0.7,
			priority INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS macros (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE,
			description TEXT,
			actions TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS template_macro_links (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			template_id INTEGER,
			macro_id INTEGER,
			FOREIGN KEY (template_id) REFERENCES screen_templates(id),
			FOREIGN KEY (macro_id) REFERENCES macros(id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_template_macro_pair
			ON template_macro_links(template_id, macro_id)`,
		`CREATE TABLE IF NOT EXISTS device_settings (
			device_address TEXT PRIMARY KEY,
			match_threshold REAL DEFAULT 0.7,
			keystroke_delay_ms INTEGER DEFAULT 150,
			post_login_wait_seconds INTEGER DEFAULT 4,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_address TEXT UNIQUE,
			username TEXT,
			password TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("建表失败: %w", err)
		}
	}
	return nil
}

// defaultTemplateSeed 默认屏幕模板
// 叠放对话框类屏幕优先级高于普通列表页
var defaultTemplateSeed = []struct {
	name      string
	filename  string
	threshold float64
	priority  int
}{
	{"login", "Login.png", 0.7, 5},
	{"bionag", "bionag.png", 0.7, 8},
	{"noload", "noload.png", 0.7, 10},
	{"firstloadnag", "firstloadnag.png", 0.7, 7},
	{"nagload2", "nagload2.png", 0.7, 6},
	{"nagload3", "nagload3.png", 0.7, 6},
	{"loadlist", "loadlist.png", 0.7, 3},
	{"cartoload", "cartoload.png", 0.7, 4},
}

// SeedDefaults 写入默认模板，已存在的名称不覆盖
func (s *Store) SeedDefaults() error {
	for _, t := range defaultTemplateSeed {
		_, err := s.db.Exec(`
INSERT OR IGNORE INTO screen_templates (name, filename, confidence_threshold, priority)
VALUES (?, ?, ?, ?)`, t.name, t.filename, t.threshold, t.priority)
		if err != nil {
			return fmt.Errorf("写入默认模板失败: %w", err)
		}
	}
	return nil
}
