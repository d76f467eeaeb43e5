// Package bridge 负责把宿主组件的生命周期桥接到引擎实例的生命周期
//
// Bridge 在任一时刻至多持有一个引擎实例（InstanceHandle），
// 以 Token 作为身份键：Token 变化即视为"另一个资源"，
// 先销毁旧实例再构造新实例，从不原地更新。
//
//	Unmounted → Constructing → Running → Destroying → Unmounted
package bridge

import (
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/decker502/scenebridge/pkg/config"
	"github.com/decker502/scenebridge/pkg/engine"
	"github.com/decker502/scenebridge/pkg/logging"
	"github.com/decker502/scenebridge/pkg/surface"
)

// Token 重新挂载令牌（RemountToken），单调递增
type Token int

// LifecycleState 桥接器生命周期状态
type LifecycleState int

const (
	Unmounted LifecycleState = iota
	Constructing
	Running
	Destroying
)

func (s LifecycleState) String() string {
	switch s {
	case Unmounted:
		return "Unmounted"
	case Constructing:
		return "Constructing"
	case Running:
		return "Running"
	case Destroying:
		return "Destroying"
	}
	return "Unknown"
}

var (
	// ErrAlreadyMounted 在非 Unmounted 状态下调用 Mount
	ErrAlreadyMounted = errors.New("bridge already mounted")
	// ErrStaleToken 令牌未递增（每个令牌值只能构造一次）
	ErrStaleToken = errors.New("remount token already used")
	// ErrInFrame 在场景回调内部请求销毁当前实例
	ErrInFrame = errors.New("engine instance is dispatching a frame")
)

// Event 生命周期迁移事件
type Event struct {
	State    LifecycleState // 迁移后的状态
	Token    Token
	Instance string // 引擎实例 ID，构造前为空
	Err      error  // 构造失败或销毁失败时非空
}

// Observer 接收生命周期事件
type Observer func(Event)

// Hooks 注入到引擎场景的三个回调，构造实例时捕获一次
type Hooks struct {
	OnPreload func(scene *engine.Scene)
	OnCreate  func(scene *engine.Scene)
	OnUpdate  func(scene *engine.Scene, time, delta float64)
}

// hookScene 将引擎生命周期委托给 Hooks
type hookScene struct {
	hooks Hooks
}

func (s hookScene) Preload(scene *engine.Scene) {
	if s.hooks.OnPreload != nil {
		s.hooks.OnPreload(scene)
	}
}

func (s hookScene) Create(scene *engine.Scene) {
	if s.hooks.OnCreate != nil {
		s.hooks.OnCreate(scene)
	}
}

func (s hookScene) Update(scene *engine.Scene, time, delta float64) {
	if s.hooks.OnUpdate != nil {
		s.hooks.OnUpdate(scene, time, delta)
	}
}

// Option 构造选项
type Option func(*Bridge)

// WithLogger 设置日志器（同时传递给引擎实例）
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) { b.logger = logging.OrNop(l) }
}

// WithObserver 订阅生命周期事件
func WithObserver(o Observer) Option {
	return func(b *Bridge) { b.observer = o }
}

// WithEngineOptions 追加每次构造引擎时使用的选项
func WithEngineOptions(opts ...engine.Option) Option {
	return func(b *Bridge) { b.engineOpts = append(b.engineOpts, opts...) }
}

// Stats 构造与销毁计数
//
// Constructed 与 Constructing 事件一一对应，其中 Failed 次构造失败；
// 存活实例数 = Constructed - Failed - Destroyed。
type Stats struct {
	Constructed int
	Failed      int
	Destroyed   int
}

// Bridge RenderingEngineBridge
type Bridge struct {
	registry   *surface.Registry
	cfg        config.EngineConfig
	scene      hookScene
	engineOpts []engine.Option

	state     LifecycleState
	token     Token
	used      bool // 是否已有令牌被构造过
	instance  *engine.Game
	failure   error
	stats     Stats
	observer  Observer
	logger    *zap.Logger
	engineLog *zap.Logger
}

// New 创建处于 Unmounted 状态的桥接器
func New(registry *surface.Registry, cfg config.EngineConfig, hooks Hooks, opts ...Option) *Bridge {
	b := &Bridge{
		registry: registry,
		cfg:      cfg,
		scene:    hookScene{hooks: hooks},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.engineLog = b.logger
	b.logger = b.logger.Named("bridge")
	return b
}

// State 返回当前生命周期状态
func (b *Bridge) State() LifecycleState { return b.state }

// Token 返回最近一次构造使用的令牌
func (b *Bridge) Token() Token { return b.token }

// Instance 返回当前引擎实例，未挂载时为 nil
func (b *Bridge) Instance() *engine.Game { return b.instance }

// Stats 返回累计构造/销毁次数
func (b *Bridge) Stats() Stats { return b.stats }

// Err 返回最近一次构造失败的错误
func (b *Bridge) Err() error { return b.failure }

func (b *Bridge) transition(state LifecycleState, err error) {
	b.state = state
	ev := Event{State: state, Token: b.token, Err: err}
	if b.instance != nil {
		ev.Instance = b.instance.ID()
	}
	b.logger.Debug("lifecycle transition",
		zap.Stringer("state", state),
		zap.Int("token", int(b.token)),
		zap.String("instance", ev.Instance))
	if b.observer != nil {
		b.observer(ev)
	}
}

// Mount 以 token 构造新的引擎实例
//
// 构造失败是致命的：桥接器回到 Unmounted，错误原样返回给宿主，不会重试。
func (b *Bridge) Mount(token Token) error {
	if b.state != Unmounted {
		return fmt.Errorf("mount token %d: %w", token, ErrAlreadyMounted)
	}
	if b.used && token <= b.token {
		return fmt.Errorf("mount token %d (last %d): %w", token, b.token, ErrStaleToken)
	}

	b.token = token
	b.used = true
	b.failure = nil
	b.stats.Constructed++
	b.transition(Constructing, nil)

	opts := append([]engine.Option{engine.WithLogger(b.engineLog)}, b.engineOpts...)
	instance, err := engine.New(b.registry, b.cfg, b.scene, opts...)
	if err != nil {
		b.stats.Failed++
		b.failure = fmt.Errorf("mount token %d: %w", token, err)
		b.logger.Error("engine construction failed", zap.Int("token", int(token)), zap.Error(err))
		b.transition(Unmounted, b.failure)
		return b.failure
	}

	b.instance = instance
	b.transition(Running, nil)
	b.logger.Info("engine mounted", zap.Int("token", int(token)), zap.String("instance", instance.ID()))
	return nil
}

// Reconcile 以身份键语义使桥接器与 token 一致
//
// 令牌未变化时不做任何事；令牌变化时先完整销毁旧实例，再构造新实例。
// 某个令牌构造失败后，以同一令牌再次调用只返回原错误。
func (b *Bridge) Reconcile(token Token) error {
	if b.used && token == b.token {
		if b.state == Running {
			return nil
		}
		if b.failure != nil {
			return b.failure
		}
	}
	if b.state == Running {
		err := b.Unmount()
		if errors.Is(err, ErrInFrame) {
			return fmt.Errorf("reconcile token %d: %w", token, err)
		}
		if err != nil {
			b.logger.Warn("teardown before remount reported error", zap.Error(err))
		}
	}
	return b.Mount(token)
}

// Unmount 销毁当前实例
//
// 实例正在分发帧回调时拒绝执行并返回 ErrInFrame，状态保持不变；
// 回调内应改为请求重新加载，由下一次渲染完成重建。
func (b *Bridge) Unmount() error {
	if b.state != Running {
		return nil
	}
	if b.instance.InFrame() {
		return fmt.Errorf("unmount token %d: %w", b.token, ErrInFrame)
	}

	b.transition(Destroying, nil)
	instance := b.instance
	err := instance.Destroy()
	b.stats.Destroyed++
	b.logger.Info("engine unmounted",
		zap.Int("token", int(b.token)),
		zap.String("instance", instance.ID()),
		zap.Uint64("frames", instance.Frame()))
	b.instance = nil
	b.transition(Unmounted, err)
	return err
}

// Step 将宿主刷新节拍转发给当前实例
func (b *Bridge) Step() {
	if b.instance != nil {
		b.instance.Step()
	}
}

// Draw 绘制当前实例的画布
func (b *Bridge) Draw(dst *ebiten.Image) {
	if b.instance != nil {
		b.instance.Draw(dst)
	}
}
