// Package host 提供宿主组件（HostComponent）
//
// 宿主持有两类状态：
//   - 渲染状态：重新挂载令牌（RemountToken）和帧状态，变化后在下一次渲染生效；
//   - Ref 单元：SharedLogicState，只在场景回调内读写，不参与渲染。
//
// 三个场景回调在 New 中创建一次并在宿主生命周期内保持不变，
// 因此与令牌无关的重新渲染不会导致引擎实例重建。
// Reload 递增令牌，下一次渲染时桥接器按身份键销毁旧实例并构造新实例。
package host

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/decker502/scenebridge/pkg/bridge"
	"github.com/decker502/scenebridge/pkg/config"
	"github.com/decker502/scenebridge/pkg/engine"
	"github.com/decker502/scenebridge/pkg/logging"
	"github.com/decker502/scenebridge/pkg/surface"
)

// InitialMessage onCreate 写入的初始消息
const InitialMessage = "hello!"

// ErrUnmounted 宿主已卸载
var ErrUnmounted = errors.New("host unmounted")

// SharedLogicState 回调之间共享的逻辑状态
type SharedLogicState struct {
	Message string
}

// Frame 每帧由 onUpdate 上报给宿主的状态
type Frame struct {
	Token      bridge.Token
	Instance   string
	Time       float64
	Delta      float64
	Message    string
	HasMessage bool
}

// Option 构造选项
type Option func(*Host)

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.logger = logging.OrNop(l) }
}

// WithoutControls 无窗口模式：不创建 ebitenui 控制面板，引擎实例不分配画布
func WithoutControls() Option {
	return func(h *Host) { h.headless = true }
}

// WithMountPointID 设置宿主注册的挂载点 ID（默认 config.DefaultMountPoint）
func WithMountPointID(id string) Option {
	return func(h *Host) { h.mountID = id }
}

// WithFrameListener 订阅每帧状态
func WithFrameListener(fn func(Frame)) Option {
	return func(h *Host) { h.frameListener = fn }
}

// WithBridgeObserver 订阅桥接器生命周期事件
func WithBridgeObserver(o bridge.Observer) Option {
	return func(h *Host) { h.observer = o }
}

// WithEngineOptions 传递给每个引擎实例的选项
func WithEngineOptions(opts ...engine.Option) Option {
	return func(h *Host) { h.engineOpts = append(h.engineOpts, opts...) }
}

// Host 宿主组件，实现 ebiten.Game
type Host struct {
	cfg      config.EngineConfig
	registry *surface.Registry
	mountID  string
	bridge   *bridge.Bridge
	hooks    bridge.Hooks

	logic *Ref[SharedLogicState]

	token bridge.Token
	frame Frame

	mounted   bool
	unmounted bool
	headless  bool
	controls  *controls

	frameListener func(Frame)
	observer      bridge.Observer
	engineOpts    []engine.Option
	logger        *zap.Logger
}

// New 创建宿主组件
func New(registry *surface.Registry, cfg config.EngineConfig, opts ...Option) (*Host, error) {
	if registry == nil {
		return nil, errors.New("new host: registry is nil")
	}
	h := &Host{
		cfg:      cfg,
		registry: registry,
		mountID:  config.DefaultMountPoint,
		logic:    &Ref[SharedLogicState]{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	baseLogger := h.logger
	h.logger = h.logger.Named("host")
	if h.headless {
		h.engineOpts = append(h.engineOpts, engine.WithoutCanvas())
	}

	h.hooks = h.buildHooks()
	h.bridge = bridge.New(registry, cfg, h.hooks,
		bridge.WithLogger(baseLogger),
		bridge.WithObserver(h.observeBridge),
		bridge.WithEngineOptions(h.engineOpts...))

	if !h.headless {
		face, err := loadControlFont()
		if err != nil {
			return nil, fmt.Errorf("new host: %w", err)
		}
		h.controls = newControls(face, h.Reload)
	}
	return h, nil
}

// buildHooks 创建三个场景回调，宿主生命周期内只调用一次
func (h *Host) buildHooks() bridge.Hooks {
	return bridge.Hooks{
		OnPreload: func(scene *engine.Scene) {
			// 无资源需要加载
			h.logger.Debug("preload", zap.String("scene", scene.Key()))
		},
		OnCreate: func(scene *engine.Scene) {
			h.logic.Store(SharedLogicState{Message: InitialMessage})
			h.logger.Debug("create", zap.String("scene", scene.Key()))
		},
		OnUpdate: func(scene *engine.Scene, time, delta float64) {
			state, ok := h.logic.Load()
			if ok {
				h.logger.Debug(state.Message, zap.Float64("time", time))
			}
			h.setFrame(Frame{
				Token:      h.bridge.Token(),
				Instance:   scene.Game().ID(),
				Time:       time,
				Delta:      delta,
				Message:    state.Message,
				HasMessage: ok,
			})
		},
	}
}

// setFrame 由回调调用的渲染状态 setter
func (h *Host) setFrame(f Frame) {
	h.frame = f
	if h.frameListener != nil {
		h.frameListener(f)
	}
}

func (h *Host) observeBridge(ev bridge.Event) {
	if h.observer != nil {
		h.observer(ev)
	}
}

// Hooks 返回宿主创建的回调（始终是同一组函数）
func (h *Host) Hooks() bridge.Hooks { return h.hooks }

// Bridge 返回宿主持有的桥接器
func (h *Host) Bridge() *bridge.Bridge { return h.bridge }

// Token 返回当前重新挂载令牌
func (h *Host) Token() bridge.Token { return h.token }

// LastFrame 返回最近一帧的状态
func (h *Host) LastFrame() Frame { return h.frame }

// Mounted 宿主是否处于挂载状态
func (h *Host) Mounted() bool { return h.mounted && !h.unmounted }

// Mount 注册挂载点并以初始令牌构造引擎实例
//
// 构造失败（如配置引用了不存在的挂载点）直接返回，宿主不做恢复。
func (h *Host) Mount() error {
	if h.unmounted {
		return ErrUnmounted
	}
	if h.mounted {
		return nil
	}
	if err := h.registry.Register(h.mountID, image.Rect(0, 0, h.cfg.Width, h.cfg.Height)); err != nil {
		return fmt.Errorf("mount host: %w", err)
	}
	h.mounted = true
	h.logger.Info("host mounted", zap.String("mountPoint", h.mountID))
	return h.render()
}

// Reload 递增令牌，下一次渲染时强制重建引擎实例
func (h *Host) Reload() {
	if !h.Mounted() {
		return
	}
	h.token++
	h.logger.Info("reload requested", zap.Int("token", int(h.token)))
}

// render 使桥接器与当前令牌一致
func (h *Host) render() error {
	if err := h.bridge.Reconcile(h.token); err != nil {
		return err
	}
	if h.controls != nil {
		h.controls.setLabel(fmt.Sprintf("instance #%d", h.token+1))
	}
	return nil
}

// Unmount 销毁引擎实例并注销挂载点，之后的节拍不再做任何事
//
// 在场景回调内部调用时返回 bridge.ErrInFrame，宿主保持挂载。
func (h *Host) Unmount() error {
	if !h.Mounted() {
		h.unmounted = true
		return nil
	}

	var errs []error
	if err := h.bridge.Unmount(); errors.Is(err, bridge.ErrInFrame) {
		return fmt.Errorf("unmount host: %w", err)
	} else if err != nil {
		errs = append(errs, err)
	}
	h.unmounted = true

	if err := h.registry.Remove(h.mountID); err != nil {
		errs = append(errs, err)
	}
	h.logger.Info("host unmounted")
	return errors.Join(errs...)
}

// Tick 渲染一次并驱动引擎执行一帧
func (h *Host) Tick() error {
	if !h.Mounted() {
		return nil
	}
	if err := h.render(); err != nil {
		return err
	}
	h.bridge.Step()
	return nil
}

// Update 实现 ebiten.Game
func (h *Host) Update() error {
	if h.controls != nil && h.Mounted() {
		h.controls.Update()
	}
	return h.Tick()
}

// Draw 实现 ebiten.Game
func (h *Host) Draw(screen *ebiten.Image) {
	if !h.Mounted() {
		return
	}
	h.bridge.Draw(screen)
	if h.controls != nil {
		h.controls.Draw(screen)
	}
}

// Layout 实现 ebiten.Game
//
// resize 模式下逻辑尺寸等于窗口尺寸，挂载点随之调整；fixed 模式保持配置尺寸。
func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	if h.cfg.ScaleMode != config.ScaleModeResize || outsideWidth <= 0 || outsideHeight <= 0 {
		return h.cfg.Width, h.cfg.Height
	}
	if h.Mounted() {
		if err := h.registry.SetBounds(h.mountID, image.Rect(0, 0, outsideWidth, outsideHeight)); err != nil {
			h.logger.Warn("failed to resize mount point", zap.Error(err))
		}
	}
	return outsideWidth, outsideHeight
}

// DrawFinalScreen 实现 ebiten.FinalScreenDrawer
//
// pixelArt 时使用最近邻采样并将偏移取整。
func (h *Host) DrawFinalScreen(screen ebiten.FinalScreen, offscreen *ebiten.Image, geoM ebiten.GeoM) {
	screen.Fill(color.Black)

	op := &ebiten.DrawImageOptions{}
	if h.cfg.PixelArt {
		geoM.SetElement(0, 2, math.Floor(geoM.Element(0, 2)))
		geoM.SetElement(1, 2, math.Floor(geoM.Element(1, 2)))
		op.Filter = ebiten.FilterNearest
	} else {
		op.Filter = ebiten.FilterLinear
	}
	op.GeoM = geoM
	screen.DrawImage(offscreen, op)
}
