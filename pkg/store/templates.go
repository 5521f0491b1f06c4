package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/droidauto/screenworker/internal/logger"
	"github.com/droidauto/screenworker/pkg/screen"
)

// ListTemplates 按优先级降序列出所有模板
// 参考图文件不存在的模板直接剔除；实现 screen.TemplateSource
func (s *Store) ListTemplates() ([]screen.Template, error) {
	rows, err := s.db.Query(`
SELECT id, name, filename, confidence_threshold, priority
FROM screen_templates
ORDER BY priority DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("查询模板失败: %w", err)
	}
	defer rows.Close()

	var templates []screen.Template
	for rows.Next() {
		var t screen.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Filename, &t.Threshold, &t.Priority); err != nil {
			return nil, fmt.Errorf("读取模板记录失败: %w", err)
		}
		t.Path = filepath.Join(s.templatesDir, t.Filename)
		if _, err := os.Stat(t.Path); err != nil {
			logger.Warn("模板 %s 参考图缺失，跳过: %s", t.Name, t.Path)
			continue
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// GetTemplate 按 ID 查模板
func (s *Store) GetTemplate(id int64) (*screen.Template, error) {
	var t screen.Template
	err := s.db.QueryRow(`
SELECT id, name, filename, confidence_threshold, priority
FROM screen_templates WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Filename, &t.Threshold, &t.Priority)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("模板 %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询模板失败: %w", err)
	}
	t.Path = filepath.Join(s.templatesDir, t.Filename)
	return &t, nil
}

// SaveTemplate 保存模板，按名称幂等覆盖
// 同名模板保持 id 不变，只更新文件名/阈值/优先级
func (s *Store) SaveTemplate(name, filename string, threshold float64, priority int) error {
	_, err := s.db.Exec(`
INSERT INTO screen_templates (name, filename, confidence_threshold, priority)
VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	filename=excluded.filename,
	confidence_threshold=excluded.confidence_threshold,
	priority=excluded.priority`, name, filename, threshold, priority)
	if err != nil {
		return fmt.Errorf("保存模板失败: %w", err)
	}
	return nil
}

// UpdateTemplateTuning 管理口径的模板调整: 只改阈值与优先级
func (s *Store) UpdateTemplateTuning(id int64, threshold float64, priority int) error {
	result, err := s.db.Exec(`
UPDATE screen_templates SET confidence_threshold = ?, priority = ? WHERE id = ?`,
		threshold, priority, id)
	if err != nil {
		return fmt.Errorf("更新模板失败: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新模板失败: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("模板 %d: %w", id, ErrNotFound)
	}
	return nil
}
