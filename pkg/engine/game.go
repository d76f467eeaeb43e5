// Package engine 是一个极简的 2D 渲染引擎运行时
//
// 每个 Game 实例独占一个挂载点和一块画布，持有唯一的场景，
// 并按宿主的刷新节拍（Step）驱动场景的 preload → create → update 生命周期。
// 帧调度完全由引擎内部负责，外部只能通过场景回调影响它。
package engine

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/decker502/scenebridge/pkg/config"
	"github.com/decker502/scenebridge/pkg/logging"
	"github.com/decker502/scenebridge/pkg/surface"
)

// State 引擎实例状态
type State int

const (
	// StateBooting 已构造，场景尚未 preload/create
	StateBooting State = iota
	// StateRunning 场景已创建，逐帧 update
	StateRunning
	// StateHalted 回调出错，帧循环停止
	StateHalted
	// StateDestroyed 已销毁，画布与挂载点均已释放
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Option 构造选项
type Option func(*Game)

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(g *Game) { g.logger = logging.OrNop(l) }
}

// WithClock 替换帧时间来源（测试用）
func WithClock(c Clock) Option {
	return func(g *Game) { g.clock = c }
}

// WithoutCanvas 不分配 GPU 画布，只跟踪画布尺寸
//
// 用于不运行 ebiten 主循环的驱动（终端工具、测试）：
// 主循环之外的图像操作会一直排队到下一次 BeginFrame。
func WithoutCanvas() Option {
	return func(g *Game) { g.headless = true }
}

// WithPointerSource 替换指针输入来源
func WithPointerSource(p PointerSource) Option {
	return func(g *Game) { g.pointerSrc = p }
}

// Game 引擎实例（InstanceHandle）
type Game struct {
	id       string
	cfg      config.EngineConfig
	registry *surface.Registry
	mount    *surface.MountPoint
	canvas   *ebiten.Image
	headless bool
	width    int
	height   int

	lifecycle Lifecycle
	scene     *Scene

	clock      Clock
	bootTime   time.Time
	lastTime   float64
	frame      uint64
	pointerSrc PointerSource
	pointer    Pointer

	state          State
	fault          *HookFault
	inFrame        bool
	pendingDestroy bool

	logger *zap.Logger
}

// New 构造引擎实例并独占 cfg.MountPoint 指定的挂载点
//
// 挂载点无法解析或已被占用时返回错误，此时不会调用任何场景回调。
func New(registry *surface.Registry, cfg config.EngineConfig, lifecycle Lifecycle, opts ...Option) (*Game, error) {
	if registry == nil {
		return nil, errors.New("construct engine: registry is nil")
	}
	if lifecycle == nil {
		return nil, errors.New("construct engine: scene lifecycle is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("construct engine: %w", err)
	}

	g := &Game{
		id:         uuid.NewString(),
		cfg:        cfg,
		registry:   registry,
		lifecycle:  lifecycle,
		clock:      SystemClock{},
		pointerSrc: &ebitenPointer{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("engine").With(zap.String("instance", g.id))

	mount, err := registry.Attach(cfg.MountPoint, g.id)
	if err != nil {
		return nil, fmt.Errorf("construct engine: %w", err)
	}
	g.mount = mount

	w, h := g.canvasSize()
	g.width, g.height = w, h
	if !g.headless {
		g.canvas = ebiten.NewImage(w, h)
	}
	g.scene = newScene(MainSceneKey, g)
	g.bootTime = g.clock.Now()

	if cfg.RenderMode == config.RenderModeCanvas {
		g.logger.Warn("canvas render mode has no dedicated backend, using auto")
	}
	g.logger.Info("engine constructed",
		zap.String("mount", cfg.MountPoint),
		zap.Int("width", w),
		zap.Int("height", h),
		zap.String("scaleMode", string(cfg.ScaleMode)),
		zap.Bool("headless", g.headless))
	return g, nil
}

// ID 返回实例唯一标识
func (g *Game) ID() string { return g.id }

// State 返回当前状态
func (g *Game) State() State { return g.state }

// Frame 返回已执行的 update 帧数
func (g *Game) Frame() uint64 { return g.frame }

// Elapsed 返回最近一帧的时间（毫秒）
func (g *Game) Elapsed() float64 { return g.lastTime }

// Fault 返回导致帧循环停止的回调错误
func (g *Game) Fault() error {
	if g.fault == nil {
		return nil
	}
	return g.fault
}

// InFrame 是否正在分发帧回调
func (g *Game) InFrame() bool { return g.inFrame }

// Canvas 返回画布，销毁后或 WithoutCanvas 时为 nil
func (g *Game) Canvas() *ebiten.Image { return g.canvas }

// Scene 返回场景句柄
func (g *Game) Scene() *Scene { return g.scene }

// canvasSize fixed 模式使用配置尺寸，resize 模式跟随挂载点
func (g *Game) canvasSize() (int, int) {
	if g.cfg.ScaleMode == config.ScaleModeResize {
		b := g.mount.Bounds()
		if b.Dx() > 0 && b.Dy() > 0 {
			return b.Dx(), b.Dy()
		}
	}
	return g.cfg.Width, g.cfg.Height
}

// syncCanvasSize 挂载点尺寸变化后重建画布
func (g *Game) syncCanvasSize() {
	w, h := g.canvasSize()
	if g.width == w && g.height == h {
		return
	}
	g.width, g.height = w, h
	if g.canvas != nil {
		g.canvas.Deallocate()
		g.canvas = ebiten.NewImage(w, h)
	}
	g.logger.Debug("canvas resized", zap.Int("width", w), zap.Int("height", h))
}

// Step 执行一次刷新节拍
//
// 第一次节拍依次调用 Preload 与 Create，之后每次节拍推进场景时钟并调用 Update。
// 停止或销毁后的实例不再调度任何帧。
func (g *Game) Step() {
	if g.state == StateHalted || g.state == StateDestroyed {
		return
	}

	now := g.clock.Now().Sub(g.bootTime).Seconds() * 1000
	if now < g.lastTime {
		now = g.lastTime
	}
	delta := now - g.lastTime
	g.lastTime = now

	g.inFrame = true
	defer g.endFrame()

	if g.cfg.ScaleMode == config.ScaleModeResize {
		g.syncCanvasSize()
	}
	if g.cfg.PointerInputEnabled {
		g.pointer = capturePointer(g.pointerSrc, g.pointer, g.mount.Bounds())
	}
	if g.canvas != nil {
		g.canvas.Fill(g.cfg.Background())
	}

	if g.state == StateBooting {
		if !g.invoke("preload", func() { g.lifecycle.Preload(g.scene) }) {
			return
		}
		if !g.invoke("create", func() { g.lifecycle.Create(g.scene) }) {
			return
		}
		g.state = StateRunning
		g.scene.time.now = now
		g.logger.Debug("scene created", zap.String("scene", g.scene.key))
		return
	}

	if !g.invoke("timer", func() { g.scene.time.update(now, delta) }) {
		return
	}
	if g.pendingDestroy {
		return
	}
	g.frame++
	g.invoke("update", func() { g.lifecycle.Update(g.scene, now, delta) })
}

func (g *Game) endFrame() {
	g.inFrame = false
	if g.pendingDestroy {
		if err := g.release(); err != nil {
			g.logger.Error("deferred destroy failed", zap.Error(err))
		}
	}
}

// invoke 调用场景回调并将 panic 转换为 HookFault
func (g *Game) invoke(hook string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.fault = &HookFault{Hook: hook, Frame: g.frame, Value: r}
			g.state = StateHalted
			g.logger.Error("scene hook faulted, frame loop halted",
				zap.String("hook", hook),
				zap.Uint64("frame", g.frame),
				zap.Any("panic", r))
			ok = false
		}
	}()
	fn()
	return true
}

// Draw 将画布绘制到 dst 的挂载点区域
func (g *Game) Draw(dst *ebiten.Image) {
	if g.canvas == nil {
		return
	}
	origin := g.mount.Bounds().Min

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(origin.X), float64(origin.Y))
	if g.cfg.PixelArt {
		op.Filter = ebiten.FilterNearest
	} else {
		op.Filter = ebiten.FilterLinear
	}
	dst.DrawImage(g.canvas, op)
}

// Bounds 返回实例所在挂载点区域
func (g *Game) Bounds() image.Rectangle {
	return g.mount.Bounds()
}

// Destroy 销毁实例：取消定时事件、释放画布与挂载点
//
// 在帧回调内部调用时，当前帧照常完成，销毁在帧结束时执行。
// 重复调用无副作用。
func (g *Game) Destroy() error {
	if g.state == StateDestroyed {
		return nil
	}
	if g.inFrame {
		g.pendingDestroy = true
		return nil
	}
	return g.release()
}

func (g *Game) release() error {
	g.pendingDestroy = false
	g.state = StateDestroyed
	g.scene.time.RemoveAllEvents()
	g.pointer = Pointer{}
	if g.canvas != nil {
		g.canvas.Deallocate()
		g.canvas = nil
	}
	if err := g.registry.Detach(g.mount.ID(), g.id); err != nil {
		return fmt.Errorf("destroy engine %s: %w", g.id, err)
	}
	g.logger.Info("engine destroyed", zap.Uint64("frames", g.frame))
	return nil
}
