package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/droidauto/screenworker/pkg/macro"
)

// Macro 持久化的宏
type Macro struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Actions     []macro.Action `json:"actions"`
	CreatedAt   time.Time      `json:"created_at"`
}

// MacroSummary 不含动作列表的宏摘要
type MacroSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SaveMacro 保存宏，按名称幂等覆盖
func (s *Store) SaveMacro(name, description string, actions []macro.Action) error {
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("序列化动作失败: %w", err)
	}

	_, err = s.db.Exec(`
INSERT INTO macros (name, description, actions)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	description=excluded.description,
	actions=excluded.actions,
	created_at=CURRENT_TIMESTAMP`, name, description, string(actionsJSON))
	if err != nil {
		return fmt.Errorf("保存宏失败: %w", err)
	}
	return nil
}

// scanMacro 从单行记录解出 Macro
func scanMacro(row *sql.Row) (*Macro, error) {
	var m Macro
	var actionsJSON string
	var createdAt sql.NullTime
	err := row.Scan(&m.ID, &m.Name, &m.Description, &actionsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取宏记录失败: %w", err)
	}
	if err := json.Unmarshal([]byte(actionsJSON), &m.Actions); err != nil {
		return nil, fmt.Errorf("解析宏动作失败: %w", err)
	}
	if createdAt.Valid {
		m.CreatedAt = createdAt.Time
	}
	return &m, nil
}

// GetMacro 按名称查宏
func (s *Store) GetMacro(name string) (*Macro, error) {
	m, err := scanMacro(s.db.QueryRow(`
SELECT id, name, description, actions, created_at FROM macros WHERE name = ?`, name))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("宏 %q: %w", name, ErrNotFound)
	}
	return m, err
}

// GetMacroByID 按 ID 查宏
func (s *Store) GetMacroByID(id int64) (*Macro, error) {
	m, err := scanMacro(s.db.QueryRow(`
SELECT id, name, description, actions, created_at FROM macros WHERE id = ?`, id))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("宏 %d: %w", id, ErrNotFound)
	}
	return m, err
}

// ListMacros 按名称列出所有宏摘要
func (s *Store) ListMacros() ([]MacroSummary, error) {
	rows, err := s.db.Query(`
SELECT id, name, description FROM macros ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("查询宏列表失败: %w", err)
	}
	defer rows.Close()

	var macros []MacroSummary
	for rows.Next() {
		var m MacroSummary
		if err := rows.Scan(&m.ID, &m.Name, &m.Description); err != nil {
			return nil, fmt.Errorf("读取宏记录失败: %w", err)
		}
		macros = append(macros, m)
	}
	return macros, rows.Err()
}

// DeleteMacro 按名称删除宏
func (s *Store) DeleteMacro(name string) error {
	_, err := s.db.Exec(`DELETE FROM macros WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("删除宏失败: %w", err)
	}
	return nil
}

// LinkTemplateToMacro 建立模板到宏的关联，用于识别后自动执行
// 同一对关联最多一条，重复关联为幂等操作
func (s *Store) LinkTemplateToMacro(templateID, macroID int64) error {
	_, err := s.db.Exec(`
INSERT OR IGNORE INTO template_macro_links (template_id, macro_id)
VALUES (?, ?)`, templateID, macroID)
	if err != nil {
		return fmt.Errorf("关联模板与宏失败: %w", err)
	}
	return nil
}

// UnlinkTemplateFromMacro 解除模板与宏的关联
func (s *Store) UnlinkTemplateFromMacro(templateID, macroID int64) error {
	_, err := s.db.Exec(`
DELETE FROM template_macro_links WHERE template_id = ? AND macro_id = ?`,
		templateID, macroID)
	if err != nil {
		return fmt.Errorf("解除关联失败: %w", err)
	}
	return nil
}

// MacrosForTemplate 列出关联到模板的所有宏 (含动作)
func (s *Store) MacrosForTemplate(templateID int64) ([]Macro, error) {
	rows, err := s.db.Query(`
SELECT m.id, m.name, m.description, m.actions
FROM macros m
JOIN template_macro_links tml ON m.id = tml.macro_id
WHERE tml.template_id = ?
ORDER BY tml.id`, templateID)
	if err != nil {
		return nil, fmt.Errorf("查询关联宏失败: %w", err)
	}
	defer rows.Close()

	var macros []Macro
	for rows.Next() {
		var m Macro
		var actionsJSON string
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &actionsJSON); err != nil {
			return nil, fmt.Errorf("读取宏记录失败: %w", err)
		}
		if err := json.Unmarshal([]byte(actionsJSON), &m.Actions); err != nil {
			return nil, fmt.Errorf("解析宏动作失败: %w", err)
		}
		macros = append(macros, m)
	}
	return macros, rows.Err()
}
