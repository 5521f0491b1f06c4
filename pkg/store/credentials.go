package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Credentials 设备登录凭据
// 密码按不透明字符串存取，加密由外部管理路径负责
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// GetCredentials 查询设备凭据
func (s *Store) GetCredentials(address string) (*Credentials, error) {
	var c Credentials
	err := s.db.QueryRow(`
SELECT username, password FROM credentials WHERE device_address = ?`, address).
		Scan(&c.Username, &c.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("设备 %s 凭据: %w", address, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询凭据失败: %w", err)
	}
	return &c, nil
}

// SaveCredentials 保存设备凭据，按设备地址幂等覆盖
func (s *Store) SaveCredentials(address, username, password string) error {
	_, err := s.db.Exec(`
INSERT INTO credentials (device_address, username, password)
VALUES (?, ?, ?)
ON CONFLICT(device_address) DO UPDATE SET
	username=excluded.username,
	password=excluded.password,
	created_at=CURRENT_TIMESTAMP`, address, username, password)
	if err != nil {
		return fmt.Errorf("保存凭据失败: %w", err)
	}
	return nil
}

// DeleteCredentials 删除设备凭据
func (s *Store) DeleteCredentials(address string) error {
	_, err := s.db.Exec(`DELETE FROM credentials WHERE device_address = ?`, address)
	if err != nil {
		return fmt.Errorf("删除凭据失败: %w", err)
	}
	return nil
}
