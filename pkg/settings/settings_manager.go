// Package settings 持久化窗口偏好（尺寸、全屏）
//
// 只保存宿主窗口的显示偏好，不保存任何场景状态。
package settings

import (
	"fmt"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/decker502/scenebridge/pkg/logging"
)

// WindowSettings 窗口偏好
type WindowSettings struct {
	Width      int  `yaml:"width"`      // 窗口宽度（逻辑像素）
	Height     int  `yaml:"height"`     // 窗口高度
	Fullscreen bool `yaml:"fullscreen"` // 启动时是否全屏
}

// DefaultSettings 返回默认设置
func DefaultSettings() *WindowSettings {
	return &WindowSettings{
		Width:      800,
		Height:     600,
		Fullscreen: false,
	}
}

// 存储路径常量
const (
	settingsObject   = "settings"
	settingsProperty = "window"
)

// Manager 设置管理器
// 负责窗口设置的加载、保存和内存管理
type Manager struct {
	gdataManager *gdata.Manager // gdata 跨平台存储管理器，可为 nil（降级模式）
	settings     *WindowSettings
	logger       *zap.Logger
}

// Open 打开 appName 对应的 gdata 存储
func Open(appName string) (*gdata.Manager, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage for %s: %w", appName, err)
	}
	return m, nil
}

// NewManager 创建新的设置管理器实例
//
// 参数：
//   - gdataManager: gdata 跨平台存储管理器，可为 nil（降级模式，仅内存设置）
//   - logger: 日志器，可为 nil
//
// 加载失败不是致命错误，使用默认设置。
func NewManager(gdataManager *gdata.Manager, logger *zap.Logger) *Manager {
	m := &Manager{
		gdataManager: gdataManager,
		settings:     DefaultSettings(),
		logger:       logging.OrNop(logger).Named("settings"),
	}

	if err := m.Load(); err != nil {
		m.logger.Warn("failed to load settings, using defaults", zap.Error(err))
	}
	return m
}

// Load 从 gdata 加载设置
//
// 如果 gdataManager 为 nil 或文件不存在，使用默认设置
func (m *Manager) Load() error {
	if m.gdataManager == nil {
		m.settings = DefaultSettings()
		return nil
	}

	if !m.gdataManager.ObjectPropExists(settingsObject, settingsProperty) {
		m.settings = DefaultSettings()
		return nil
	}

	data, err := m.gdataManager.LoadObjectProp(settingsObject, settingsProperty)
	if err != nil {
		m.settings = DefaultSettings()
		return fmt.Errorf("failed to load settings: %w", err)
	}

	loaded := *DefaultSettings()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		m.settings = DefaultSettings()
		return fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if loaded.Width <= 0 || loaded.Height <= 0 {
		d := DefaultSettings()
		loaded.Width, loaded.Height = d.Width, d.Height
	}

	m.settings = &loaded
	m.logger.Debug("settings loaded")
	return nil
}

// Save 保存设置到 gdata
//
// 如果 gdataManager 为 nil，返回 nil（降级模式，不报错）
func (m *Manager) Save() error {
	if m.gdataManager == nil {
		return nil
	}

	data, err := yaml.Marshal(m.settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := m.gdataManager.SaveObjectProp(settingsObject, settingsProperty, data); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	m.logger.Debug("settings saved")
	return nil
}

// Settings 获取当前设置
func (m *Manager) Settings() *WindowSettings {
	return m.settings
}

// SetWindowSize 设置窗口尺寸，非正值被忽略
//
// 注意：仅修改内存中的设置，需调用 Save() 方法持久化
func (m *Manager) SetWindowSize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.settings.Width = width
	m.settings.Height = height
}

// SetFullscreen 设置全屏模式
//
// 注意：仅修改内存中的设置，需调用 Save() 方法持久化
func (m *Manager) SetFullscreen(enabled bool) {
	m.settings.Fullscreen = enabled
}
