// Package app 提供应用的核心包装器
//
// 该包将初始化逻辑从 main 包提取出来，使其可以被桌面端和移动端共用。
// 桌面端通过 main.go 调用 NewApp()，移动端通过 mobile/mobile.go 调用。
package app

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"

	"github.com/decker502/scenebridge/pkg/config"
	"github.com/decker502/scenebridge/pkg/embedded"
	"github.com/decker502/scenebridge/pkg/host"
	"github.com/decker502/scenebridge/pkg/logging"
	"github.com/decker502/scenebridge/pkg/settings"
	"github.com/decker502/scenebridge/pkg/surface"
)

// DefaultConfigPath 嵌入的默认引擎配置
const DefaultConfigPath = "data/engine.yaml"

// Config 定义应用启动配置
type Config struct {
	// Engine 引擎实例配置
	Engine config.EngineConfig
	// Logger 日志器，为 nil 时不输出
	Logger *zap.Logger
	// Storage 窗口偏好存储，为 nil 时不持久化
	Storage *gdata.Manager
}

// App 是应用的核心包装器，实现 ebiten.Game 接口
type App struct {
	host     *host.Host
	settings *settings.Manager
	cfg      config.EngineConfig
	logger   *zap.Logger

	pendingWindowSizeReset   bool // 延迟设置窗口大小标志
	windowSizeResetCountdown int  // 延迟帧数
	closed                   bool
}

// LoadEngineConfig 读取引擎配置：path 为空时使用嵌入的默认配置
func LoadEngineConfig(path string) (config.EngineConfig, error) {
	if path != "" {
		return config.LoadEngineConfig(path)
	}
	data, err := embedded.ReadFile(DefaultConfigPath)
	if err != nil {
		return config.EngineConfig{}, fmt.Errorf("failed to read embedded config: %w", err)
	}
	return config.ParseEngineConfig(data)
}

// NewApp 创建并挂载宿主组件
//
// 引擎实例构造失败（挂载点无法解析等）直接返回错误。
func NewApp(cfg Config) (*App, error) {
	logger := logging.OrNop(cfg.Logger)

	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	registry := surface.NewRegistry(logger)
	h, err := host.New(registry, cfg.Engine, host.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("宿主创建失败: %w", err)
	}
	if err := h.Mount(); err != nil {
		return nil, fmt.Errorf("宿主挂载失败: %w", err)
	}

	a := &App{
		host:     h,
		settings: settings.NewManager(cfg.Storage, logger),
		cfg:      cfg.Engine,
		logger:   logger.Named("app"),
	}
	a.logger.Info("app initialized",
		zap.String("renderMode", string(cfg.Engine.RenderMode)),
		zap.String("scaleMode", string(cfg.Engine.ScaleMode)))
	return a, nil
}

// ApplyWindow 根据配置与已保存的偏好设置窗口
func (a *App) ApplyWindow() {
	s := a.settings.Settings()
	title := a.cfg.Title
	if title == "" {
		title = "scenebridge"
	}
	ebiten.SetWindowTitle(title)

	if a.cfg.ScaleMode == config.ScaleModeResize {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
		ebiten.SetWindowSize(s.Width, s.Height)
	} else {
		ebiten.SetWindowSize(a.cfg.Width, a.cfg.Height)
	}
	ebiten.SetFullscreen(s.Fullscreen)
	ebiten.SetWindowClosingHandled(true)
}

// RunGameOptions 返回与渲染模式对应的运行选项
func (a *App) RunGameOptions() *ebiten.RunGameOptions {
	return &ebiten.RunGameOptions{
		GraphicsLibrary: a.cfg.RenderMode.GraphicsLibrary(),
	}
}

// Update 更新逻辑
// 每个 tick 调用一次（通常每秒 60 次）
func (a *App) Update() error {
	if ebiten.IsWindowBeingClosed() {
		if err := a.Close(); err != nil {
			a.logger.Error("close failed", zap.Error(err))
		}
		return ebiten.Termination
	}

	// 延迟设置窗口大小（退出全屏后需要等待几帧才能正确设置）
	if a.pendingWindowSizeReset {
		a.windowSizeResetCountdown--
		if a.windowSizeResetCountdown <= 0 {
			s := a.settings.Settings()
			ebiten.SetWindowSize(s.Width, s.Height)
			a.pendingWindowSizeReset = false
		}
	}

	// F11 切换全屏
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		a.toggleFullscreen()
	}

	return a.host.Update()
}

func (a *App) toggleFullscreen() {
	if ebiten.IsFullscreen() {
		ebiten.SetFullscreen(false)
		if ebiten.IsWindowMaximized() || ebiten.IsWindowMinimized() {
			ebiten.RestoreWindow()
		}
		// 延迟几帧后设置窗口大小，让窗口管理器有时间处理
		a.pendingWindowSizeReset = true
		a.windowSizeResetCountdown = 3
		a.settings.SetFullscreen(false)
	} else {
		w, h := ebiten.WindowSize()
		a.settings.SetWindowSize(w, h)
		ebiten.SetFullscreen(true)
		a.settings.SetFullscreen(true)
	}
	if err := a.settings.Save(); err != nil {
		a.logger.Warn("failed to save window settings", zap.Error(err))
	}
}

// Draw 绘制画面
func (a *App) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	a.host.Draw(screen)
}

// DrawFinalScreen 实现 FinalScreenDrawer 接口
func (a *App) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	a.host.DrawFinalScreen(screen, offscreen, geoM)
}

// Layout 返回逻辑屏幕尺寸
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return a.host.Layout(outsideWidth, outsideHeight)
}

// Host 返回宿主组件
func (a *App) Host() *host.Host {
	return a.host
}

// Close 卸载宿主并保存窗口偏好，重复调用无副作用
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	if !ebiten.IsFullscreen() {
		w, h := ebiten.WindowSize()
		a.settings.SetWindowSize(w, h)
	}
	if err := a.settings.Save(); err != nil {
		errs = append(errs, err)
	}
	if err := a.host.Unmount(); err != nil {
		errs = append(errs, err)
	}
	a.logger.Info("app closed")
	return errors.Join(errs...)
}
