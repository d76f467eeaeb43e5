package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"gopkg.in/yaml.v3"
)

// DefaultMountPoint 默认挂载点 ID（宿主在启动时注册同名挂载点）
const DefaultMountPoint = "stage"

// RenderMode 渲染后端选择
type RenderMode string

const (
	RenderModeAuto    RenderMode = "auto"
	RenderModeCanvas  RenderMode = "canvas"
	RenderModeWebGL   RenderMode = "webgl"
	RenderModeOpenGL  RenderMode = "opengl"
	RenderModeDirectX RenderMode = "directx"
	RenderModeMetal   RenderMode = "metal"
)

// GraphicsLibrary 将渲染模式映射到 Ebitengine 图形库
//
// Ebitengine 没有 2D canvas 后端，canvas 退化为 Auto（调用方负责记录警告）。
// webgl 在浏览器端即 OpenGL 实现。
func (m RenderMode) GraphicsLibrary() ebiten.GraphicsLibrary {
	switch m {
	case RenderModeWebGL, RenderModeOpenGL:
		return ebiten.GraphicsLibraryOpenGL
	case RenderModeDirectX:
		return ebiten.GraphicsLibraryDirectX
	case RenderModeMetal:
		return ebiten.GraphicsLibraryMetal
	default:
		return ebiten.GraphicsLibraryAuto
	}
}

func (m RenderMode) valid() bool {
	switch m {
	case RenderModeAuto, RenderModeCanvas, RenderModeWebGL,
		RenderModeOpenGL, RenderModeDirectX, RenderModeMetal:
		return true
	}
	return false
}

// ScaleMode 画布缩放策略
type ScaleMode string

const (
	// ScaleModeFixed 画布保持 Width x Height
	ScaleModeFixed ScaleMode = "fixed"
	// ScaleModeResize 画布跟随挂载点尺寸
	ScaleModeResize ScaleMode = "resize"
)

// EngineConfig 渲染引擎实例的配置记录
//
// 结构（data/engine.yaml）：
//
//	mountPoint: stage
//	renderMode: auto
//	scaleMode: resize
//	width: 800
//	height: 600
//	pixelArt: true
//	backgroundColor: "#000000"
//	pointerInputEnabled: true
type EngineConfig struct {
	MountPoint          string     `yaml:"mountPoint"`          // 挂载点 ID，构造时必须能解析
	RenderMode          RenderMode `yaml:"renderMode"`          // auto | canvas | webgl | opengl | directx | metal
	ScaleMode           ScaleMode  `yaml:"scaleMode"`           // fixed | resize
	Width               int        `yaml:"width"`               // 逻辑宽度（fixed 模式下即画布宽度）
	Height              int        `yaml:"height"`              // 逻辑高度
	PixelArt            bool       `yaml:"pixelArt"`            // 关闭平滑与抗锯齿，坐标取整
	BackgroundColor     string     `yaml:"backgroundColor"`     // #rgb / #rrggbb / #rrggbbaa
	PointerInputEnabled bool       `yaml:"pointerInputEnabled"` // 是否采集指针输入
	Title               string     `yaml:"title,omitempty"`     // 窗口标题
}

// DefaultEngineConfig 返回与原型一致的默认配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MountPoint:          DefaultMountPoint,
		RenderMode:          RenderModeAuto,
		ScaleMode:           ScaleModeResize,
		Width:               800,
		Height:              600,
		PixelArt:            true,
		BackgroundColor:     "#000000",
		PointerInputEnabled: true,
		Title:               "scenebridge",
	}
}

// ValidationError 汇总配置中的所有字段错误
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid engine config: " + strings.Join(e.Problems, "; ")
}

// Validate 检查配置字段
func (c EngineConfig) Validate() error {
	var problems []string
	if strings.TrimSpace(c.MountPoint) == "" {
		problems = append(problems, "mountPoint is empty")
	}
	if !c.RenderMode.valid() {
		problems = append(problems, fmt.Sprintf("unknown renderMode %q", c.RenderMode))
	}
	if c.ScaleMode != ScaleModeFixed && c.ScaleMode != ScaleModeResize {
		problems = append(problems, fmt.Sprintf("unknown scaleMode %q", c.ScaleMode))
	}
	if c.Width <= 0 || c.Height <= 0 {
		problems = append(problems, fmt.Sprintf("size must be positive, got %dx%d", c.Width, c.Height))
	}
	if _, err := ParseColor(c.BackgroundColor); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Background 返回解析后的背景色，非法值退化为黑色
func (c EngineConfig) Background() color.NRGBA {
	clr, err := ParseColor(c.BackgroundColor)
	if err != nil {
		return color.NRGBA{A: 0xff}
	}
	return clr
}

// ParseEngineConfig 解析 YAML，缺省字段使用默认值
func ParseEngineConfig(data []byte) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("failed to parse engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

// LoadEngineConfig 从文件系统加载配置
func LoadEngineConfig(path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("failed to read engine config %s: %w", path, err)
	}
	return ParseEngineConfig(data)
}

// ParseColor 解析 #rgb、#rrggbb、#rrggbbaa 格式的颜色
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid backgroundColor %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid backgroundColor %q", s)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
