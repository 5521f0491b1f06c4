// Package adb 封装 Android 设备命令通道
//
// 所有设备操作 (输入注入、截图、应用管理) 都通过 adb 子进程完成，
// 每次调用带显式超时，超时按普通失败处理。
package adb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/droidauto/screenworker/pkg/cmdutil"
)

// 默认超时
const (
	DefaultTimeout = 10 * time.Second
	ConnectTimeout = 10 * time.Second
	PullTimeout    = 30 * time.Second
)

var (
	// ErrTimeout 命令超时
	ErrTimeout = errors.New("adb 命令超时")
	// ErrPermissionDenied 权限不足 (设备未 root 或 root 授权被拒)
	ErrPermissionDenied = errors.New("权限不足，需要 root 权限")
)

// CommandResult 单次 adb 命令的执行结果
type CommandResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Success 判断命令是否成功
func (r *CommandResult) Success() bool {
	return r != nil && r.ExitCode == 0
}

// PermissionDenied 判断失败是否为权限问题
func (r *CommandResult) PermissionDenied() bool {
	if r == nil || r.ExitCode == 0 {
		return false
	}
	out := strings.ToLower(r.Stdout + r.Stderr)
	return strings.Contains(out, "permission denied")
}

// Runner 设备命令通道
// device 为空时执行全局 adb 命令 (如 connect/devices)
type Runner interface {
	Run(device string, args []string, timeout time.Duration) (*CommandResult, error)
}

// ExecRunner 基于 adb 子进程的 Runner 实现
type ExecRunner struct {
	AdbPath string
}

// NewExecRunner 创建 ExecRunner，adbPath 为空时使用 PATH 中的 adb
func NewExecRunner(adbPath string) *ExecRunner {
	if adbPath == "" {
		adbPath = "adb"
	}
	return &ExecRunner{AdbPath: adbPath}
}

// Run 执行一次 adb 命令
// 返回值约定: err 非空表示命令无法完成 (启动失败/超时)；
// 命令跑完但退出码非零时 err 为空，由 CommandResult.ExitCode 表达失败
func (r *ExecRunner) Run(device string, args []string, timeout time.Duration) (*CommandResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fullArgs := make([]string, 0, len(args)+2)
	if device != "" {
		fullArgs = append(fullArgs, "-s", device)
	}
	fullArgs = append(fullArgs, args...)

	cmd := exec.CommandContext(ctx, r.AdbPath, fullArgs...)
	cmdutil.HideWindow(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w (%.0fs): adb %s", ErrTimeout, timeout.Seconds(), strings.Join(fullArgs, " "))
	}

	result := &CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("执行 adb 失败: %w", err)
	}

	return result, nil
}
