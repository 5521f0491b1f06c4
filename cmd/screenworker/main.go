package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/droidauto/screenworker/internal/logger"
	"github.com/droidauto/screenworker/pkg/adb"
	"github.com/droidauto/screenworker/pkg/config"
	"github.com/droidauto/screenworker/pkg/control"
	"github.com/droidauto/screenworker/pkg/macro"
	"github.com/droidauto/screenworker/pkg/store"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 命令行参数
	var (
		device     = flag.String("device", "", "设备地址 (例: 192.168.1.10:5555)")
		doConnect  = flag.Bool("connect", false, "先执行 adb connect 连接设备")
		doDetect   = flag.Bool("detect", false, "截图并识别当前屏幕")
		runName    = flag.String("run", "", "按名称执行宏")
		runID      = flag.Int64("run-id", 0, "按 ID 执行宏")
		doLogin    = flag.Bool("login", false, "用已存凭据自动登录")
		doWatch    = flag.Bool("watch", false, "循环识别屏幕并执行关联宏")
		interval   = flag.Duration("interval", 5*time.Second, "watch 模式的轮询间隔")
		slaveMode  = flag.String("slave", "", "从机模式控制 (on/off/status)")
		initDB     = flag.Bool("init-db", false, "初始化数据库并写入默认模板")
		adbPath    = flag.String("adb", "", "adb 可执行文件路径")
		dbPath     = flag.String("db", "", "数据库路径")
		templates  = flag.String("templates", "", "屏幕模板图片目录")
		shots      = flag.String("screenshots", "", "截图保存目录")
		logLevel   = flag.String("log-level", "", "日志级别 (DEBUG/INFO/WARN/ERROR)")
		logFile    = flag.String("log-file", "", "日志文件路径")
		saveConfig = flag.Bool("save", false, "保存配置到本地")

		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	// 显示版本
	if *showVersion {
		printVersion()
		return
	}

	// 显示帮助
	if *showHelp {
		printHelp()
		return
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("[WARN] 加载配置失败: %v\n", err)
	}

	// 命令行参数优先级高于配置文件
	if *adbPath != "" {
		cfg.AdbPath = *adbPath
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *templates != "" {
		cfg.TemplatesDir = *templates
	}
	if *shots != "" {
		cfg.ScreenshotsDir = *shots
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	// 初始化日志
	log := logger.Default()
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))
	if cfg.LogFile != "" {
		if err := log.SetFile(true, cfg.LogFile); err != nil {
			fmt.Printf("[WARN] 打开日志文件失败: %v\n", err)
		}
	}
	defer log.Close()

	// 保存配置
	if *saveConfig {
		if err := config.Save(cfg); err != nil {
			fmt.Printf("[WARN] 保存配置失败: %v\n", err)
		} else {
			fmt.Printf("[INFO] 配置已保存到 %s\n", config.GetDefaultManager().GetConfigFile())
		}
	}

	// 打开存储
	st, err := store.Open(cfg.DBPath, cfg.TemplatesDir)
	if err != nil {
		fmt.Printf("[ERROR] 打开数据库失败: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *initDB {
		if err := st.SeedDefaults(); err != nil {
			fmt.Printf("[ERROR] 初始化数据库失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[INFO] 数据库已初始化: %s\n", cfg.DBPath)
	}

	// 无设备操作时到此结束
	hasDeviceOp := *doConnect || *doDetect || *runName != "" || *runID != 0 ||
		*doLogin || *doWatch || *slaveMode != ""
	if !hasDeviceOp {
		if !*initDB && !*saveConfig {
			printHelp()
		}
		return
	}

	if *device == "" {
		fmt.Println("[ERROR] 缺少设备地址，请使用 -device 参数指定")
		printHelp()
		os.Exit(1)
	}

	runner := adb.NewExecRunner(cfg.AdbPath)
	dev := adb.NewDevice(*device, runner)
	ctrl := control.NewFromStore(runner, st, cfg.ScreenshotsDir)

	// 连接设备
	if *doConnect {
		if err := dev.Connect(); err != nil {
			fmt.Printf("[ERROR] 连接设备失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[INFO] 已连接设备 %s\n", *device)
	}

	// 从机模式
	if *slaveMode != "" {
		if err := runSlaveMode(dev, *slaveMode); err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			os.Exit(1)
		}
	}

	// 识别当前屏幕
	if *doDetect {
		state, err := ctrl.CurrentScreen(*device)
		if err != nil {
			fmt.Printf("[ERROR] 识别失败: %v\n", err)
			os.Exit(1)
		}
		printScreenState(state)
	}

	// 执行宏
	if *runName != "" {
		result, err := ctrl.RunMacro(*device, *runName)
		if err != nil {
			fmt.Printf("[ERROR] 执行宏失败: %v\n", err)
			os.Exit(1)
		}
		printMacroResult(*runName, result)
	}
	if *runID != 0 {
		result, err := ctrl.RunMacroByID(*device, *runID)
		if err != nil {
			fmt.Printf("[ERROR] 执行宏失败: %v\n", err)
			os.Exit(1)
		}
		printMacroResult(fmt.Sprintf("#%d", *runID), result)
	}

	// 自动登录
	if *doLogin {
		result, err := ctrl.AutoLogin(*device)
		if errors.Is(err, store.ErrNotFound) {
			fmt.Printf("[ERROR] 设备 %s 未保存凭据\n", *device)
			os.Exit(1)
		}
		if err != nil {
			fmt.Printf("[ERROR] 自动登录失败: %v\n", err)
			os.Exit(1)
		}
		printMacroResult("auto-login", result)
	}

	// 循环模式
	if *doWatch {
		fmt.Printf("[INFO] 开始监控设备 %s (间隔 %s)\n", *device, *interval)
		fmt.Println("[INFO] 按 Ctrl+C 退出")

		stop := make(chan struct{})
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			close(stop)
		}()

		ctrl.Watch(*device, *interval, stop)
		fmt.Println()
		fmt.Println("[INFO] 已退出")
	}
}

// runSlaveMode 执行从机模式子命令
func runSlaveMode(dev *adb.Device, mode string) error {
	switch mode {
	case "on":
		if err := dev.EnableSlaveMode(); err != nil {
			return fmt.Errorf("开启从机模式失败: %w", err)
		}
		fmt.Println("[INFO] 从机模式已开启")
	case "off":
		if err := dev.DisableSlaveMode(); err != nil {
			return fmt.Errorf("关闭从机模式失败: %w", err)
		}
		fmt.Println("[INFO] 从机模式已关闭")
	case "status":
		status, err := dev.GetSlaveModeStatus()
		if err != nil {
			return fmt.Errorf("查询从机模式失败: %w", err)
		}
		fmt.Printf("[INFO] 从机模式: %v (熄屏超时 %dms, 充电保持亮屏 %v)\n",
			status.Enabled, status.ScreenTimeout, status.StayAwake)
	default:
		return fmt.Errorf("未知的从机模式操作: %s (支持 on/off/status)", mode)
	}
	return nil
}

// printScreenState 打印识别结果
func printScreenState(state *control.ScreenState) {
	d := state.Detection
	if !d.Success {
		fmt.Printf("[ERROR] 识别失败: %s\n", d.Error)
		return
	}
	if !d.Detected() {
		fmt.Printf("[INFO] %s\n", d.Message)
		return
	}

	fmt.Printf("[INFO] 当前屏幕: %s (置信度 %.3f, 缩放 %.1f)\n", d.Screen, d.Confidence, d.Scale)
	if d.Location != nil {
		fmt.Printf("[INFO] 匹配位置: (%d, %d) %dx%d\n",
			d.Location.X, d.Location.Y, d.Location.Width, d.Location.Height)
	}
	for _, m := range state.LinkedMacros {
		fmt.Printf("[INFO] 关联宏: %s (#%d)\n", m.Name, m.ID)
	}
}

// printMacroResult 打印宏执行结果
func printMacroResult(name string, result *macro.Result) {
	status := "成功"
	if !result.Success {
		status = "部分失败"
	}
	fmt.Printf("[INFO] 宏 %s 执行%s: %d/%d 步完成\n",
		name, status, result.ExecutedActions, result.TotalActions)
	for _, f := range result.FailedActions {
		fmt.Printf("[WARN]   第 %d 步 %s: %s\n", f.Step, f.Action, f.Error)
	}
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("Screen Worker v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("Screen Worker - Android 设备屏幕识别与宏执行工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  screenworker [选项]")
	fmt.Println()
	fmt.Println("选项:")
	fmt.Println("  -device string      设备地址 (例: 192.168.1.10:5555)")
	fmt.Println("  -connect            先执行 adb connect 连接设备")
	fmt.Println("  -detect             截图并识别当前屏幕")
	fmt.Println("  -run string         按名称执行宏")
	fmt.Println("  -run-id int         按 ID 执行宏")
	fmt.Println("  -login              用已存凭据自动登录")
	fmt.Println("  -watch              循环识别屏幕并执行关联宏")
	fmt.Println("  -interval duration  watch 模式的轮询间隔 (默认 5s)")
	fmt.Println("  -slave string       从机模式控制 (on/off/status)")
	fmt.Println("  -init-db            初始化数据库并写入默认模板")
	fmt.Println("  -adb string         adb 可执行文件路径")
	fmt.Println("  -db string          数据库路径")
	fmt.Println("  -templates string   屏幕模板图片目录")
	fmt.Println("  -screenshots string 截图保存目录")
	fmt.Println("  -log-level string   日志级别 (DEBUG/INFO/WARN/ERROR)")
	fmt.Println("  -log-file string    日志文件路径")
	fmt.Println("  -save               保存配置到本地")
	fmt.Println("  -version            显示版本信息")
	fmt.Println("  -help               显示帮助信息")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  # 初始化数据库")
	fmt.Println("  screenworker -init-db")
	fmt.Println()
	fmt.Println("  # 识别当前屏幕")
	fmt.Println("  screenworker -device 192.168.1.10:5555 -connect -detect")
	fmt.Println()
	fmt.Println("  # 执行宏")
	fmt.Println("  screenworker -device 192.168.1.10:5555 -run dismiss_nag")
	fmt.Println()
	fmt.Println("  # 持续监控并自动处理屏幕")
	fmt.Println("  screenworker -device 192.168.1.10:5555 -watch -interval 10s")
	fmt.Println()
	fmt.Printf("配置文件位置: %s\n", config.GetDefaultManager().GetConfigFile())
}
