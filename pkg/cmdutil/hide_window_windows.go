package cmdutil

import (
	"os/exec"
	"syscall"
)

// HideWindow 在 Windows 上隐藏 exec.Command 的 cmd 黑色窗口
// 每次调用 adb 都会创建子进程，不隐藏会不停闪黑框
func HideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow: true,
	}
}
