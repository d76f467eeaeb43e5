package bridge

import (
	"errors"
	"image"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/decker502/scenebridge/pkg/config"
	"github.com/decker502/scenebridge/pkg/engine"
	"github.com/decker502/scenebridge/pkg/surface"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

// recorder 记录事件与回调
type recorder struct {
	events []Event
	calls  []string
	times  []float64
}

func (r *recorder) observe(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnPreload: func(*engine.Scene) { r.calls = append(r.calls, "preload") },
		OnCreate:  func(*engine.Scene) { r.calls = append(r.calls, "create") },
		OnUpdate: func(_ *engine.Scene, t, _ float64) {
			r.calls = append(r.calls, "update")
			r.times = append(r.times, t)
		},
	}
}

func (r *recorder) count(state LifecycleState) int {
	n := 0
	for _, ev := range r.events {
		if ev.State == state {
			n++
		}
	}
	return n
}

func (r *recorder) states() []LifecycleState {
	out := make([]LifecycleState, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.State
	}
	return out
}

type fixture struct {
	registry *surface.Registry
	clock    *stepClock
	rec      *recorder
	bridge   *Bridge
}

func newFixture(t *testing.T, cfg config.EngineConfig) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	f := &fixture{
		registry: surface.NewRegistry(logger),
		clock:    &stepClock{now: time.Unix(0, 0)},
		rec:      &recorder{},
	}
	if err := f.registry.Register(config.DefaultMountPoint, image.Rect(0, 0, 160, 90)); err != nil {
		t.Fatal(err)
	}
	f.bridge = New(f.registry, cfg, f.rec.hooks(),
		WithLogger(logger),
		WithObserver(f.rec.observe),
		WithEngineOptions(engine.WithClock(f.clock), engine.WithoutCanvas()))
	return f
}

func (f *fixture) frames(n int) {
	for i := 0; i < n; i++ {
		f.clock.now = f.clock.now.Add(16 * time.Millisecond)
		f.bridge.Step()
	}
}

func equalStates(a, b []LifecycleState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMountRunsHooksInOrder(t *testing.T) {
	f := newFixture(t, config.DefaultEngineConfig())

	if err := f.bridge.Mount(0); err != nil {
		t.Fatalf("Mount() error: %v", err)
	}
	if f.bridge.State() != Running {
		t.Fatalf("state: got %v, want Running", f.bridge.State())
	}
	if !equalStates(f.rec.states(), []LifecycleState{Constructing, Running}) {
		t.Fatalf("events: got %v", f.rec.states())
	}

	f.frames(4)

	want := []string{"preload", "create", "update", "update", "update"}
	if len(f.rec.calls) != len(want) {
		t.Fatalf("calls: got %v, want %v", f.rec.calls, want)
	}
	for i := range want {
		if f.rec.calls[i] != want[i] {
			t.Fatalf("calls: got %v, want %v", f.rec.calls, want)
		}
	}
	for i := 1; i < len(f.rec.times); i++ {
		if f.rec.times[i] < f.rec.times[i-1] {
			t.Errorf("elapsed went backwards: %v", f.rec.times)
		}
	}
}

func TestReconcileSameTokenIsNoop(t *testing.T) {
	f := newFixture(t, config.DefaultEngineConfig())
	if err := f.bridge.Reconcile(0); err != nil {
		t.Fatal(err)
	}
	first := f.bridge.Instance()

	for i := 0; i < 3; i++ {
		if err := f.bridge.Reconcile(0); err != nil {
			t.Fatalf("Reconcile() error: %v", err)
		}
	}

	if f.bridge.Instance() != first {
		t.Error("same token must keep the live instance")
	}
	if f.rec.count(Constructing) != 1 {
		t.Errorf("Constructing events: got %d, want 1", f.rec.count(Constructing))
	}
}

func TestReconcileNewTokenRebuilds(t *testing.T) {
	f := newFixture(t, config.DefaultEngineConfig())
	if err := f.bridge.Reconcile(0); err != nil {
		t.Fatal(err)
	}
	f.frames(3)
	old := f.bridge.Instance()

	if err := f.bridge.Reconcile(1); err != nil {
		t.Fatalf("Reconcile(1) error: %v", err)
	}

	want := []LifecycleState{Constructing, Running, Destroying, Unmounted, Constructing, Running}
	if !equalStates(f.rec.states(), want) {
		t.Fatalf("events: got %v, want %v", f.rec.states(), want)
	}
	if f.rec.events[2].Token != 0 || f.rec.events[4].Token != 1 {
		t.Errorf("Destroying should carry token 0 and Constructing token 1, got %+v", f.rec.events)
	}
	if old.State() != engine.StateDestroyed {
		t.Errorf("old instance state: got %v, want destroyed", old.State())
	}
	if f.bridge.Instance() == old || f.bridge.Instance().ID() == old.ID() {
		t.Error("new token must yield a new instance identity")
	}

	// 新实例重新执行 preload/create
	f.rec.calls = nil
	f.frames(2)
	if len(f.rec.calls) != 3 || f.rec.calls[0] != "preload" || f.rec.calls[1] != "create" {
		t.Errorf("new instance calls: got %v", f.rec.calls)
	}
}

func TestConstructDestroyBalance(t *testing.T) {
	f := newFixture(t, config.DefaultEngineConfig())

	tokens := []Token{0, 0, 1, 1, 2, 5, 5, 6}
	for _, tok := range tokens {
		if err := f.bridge.Reconcile(tok); err != nil {
			t.Fatalf("Reconcile(%d) error: %v", tok, err)
		}
		f.frames(1)

		c, d := f.rec.count(Constructing), f.rec.count(Destroying)
		if c-d != 1 {
			t.Fatalf("after token %d: constructing=%d destroying=%d", tok, c, d)
		}
	}

	if err := f.bridge.Unmount(); err != nil {
		t.Fatal(err)
	}
	if c, d := f.rec.count(Constructing), f.rec.count(Destroying); c != d {
		t.Errorf("after unmount: constructing=%d destroying=%d", c, d)
	}
	if s := f.bridge.Stats(); s != (Stats{Constructed: 5, Destroyed: 5}) {
		t.Errorf("Stats(): got %+v, want 5/0/5", s)
	}
}

func TestUnmountStopsUpdates(t *testing.T) {
	f := newFixture(t, config.DefaultEngineConfig())
	if err := f.bridge.Mount(0); err != nil {
		t.Fatal(err)
	}
	f.frames(3)

	if err := f.bridge.Unmount(); err != nil {
		t.Fatalf("Unmount() error: %v", err)
	}
	updates := len(f.rec.times)
	f.frames(5)

	if len(f.rec.times) != updates {
		t.Errorf("updates after unmount: got %d more", len(f.rec.times)-updates)
	}
	if f.rec.count(Destroying) != 1 {
		t.Errorf("Destroying events: got %d, want 1", f.rec.count(Destroying))
	}

	// 重复卸载无副作用
	if err := f.bridge.Unmount(); err != nil {
		t.Fatal(err)
	}
	if f.rec.count(Destroying) != 1 {
		t.Errorf("second Unmount emitted Destroying")
	}
}

func TestMountUnresolvableMountPoint(t *testing.T) {
	cfg := config.DefaultEngineConfig()
	cfg.MountPoint = "phaser"
	f := newFixture(t, cfg)

	err := f.bridge.Mount(0)
	if !errors.Is(err, surface.ErrMountPointNotFound) {
		t.Fatalf("expected ErrMountPointNotFound, got %v", err)
	}
	if f.bridge.State() != Unmounted {
		t.Errorf("state: got %v, want Unmounted", f.bridge.State())
	}
	last := f.rec.events[len(f.rec.events)-1]
	if last.State != Unmounted || last.Err == nil {
		t.Errorf("last event should report the construction fault, got %+v", last)
	}

	f.frames(3)
	if len(f.rec.calls) != 0 {
		t.Errorf("no hook should run, got %v", f.rec.calls)
	}

	// 不重试：同一令牌只返回原错误
	if err := f.bridge.Reconcile(0); !errors.Is(err, surface.ErrMountPointNotFound) {
		t.Errorf("Reconcile on failed token: got %v", err)
	}
	if f.rec.count(Constructing) != 1 {
		t.Errorf("Constructing events: got %d, want 1", f.rec.count(Constructing))
	}

	// 计数与事件一致，失败的构造单独统计
	if s := f.bridge.Stats(); s != (Stats{Constructed: 1, Failed: 1}) {
		t.Errorf("Stats(): got %+v, want constructed=1 failed=1", s)
	}
	if !errors.Is(f.bridge.Err(), surface.ErrMountPointNotFound) {
		t.Errorf("Err(): got %v", f.bridge.Err())
	}
}

func TestMountGuards(t *testing.T) {
	f := newFixture(t, config.DefaultEngineConfig())
	if err := f.bridge.Mount(3); err != nil {
		t.Fatal(err)
	}
	if err := f.bridge.Mount(4); !errors.Is(err, ErrAlreadyMounted) {
		t.Errorf("expected ErrAlreadyMounted, got %v", err)
	}
	if err := f.bridge.Unmount(); err != nil {
		t.Fatal(err)
	}
	if err := f.bridge.Mount(3); !errors.Is(err, ErrStaleToken) {
		t.Errorf("expected ErrStaleToken, got %v", err)
	}
	if err := f.bridge.Mount(2); !errors.Is(err, ErrStaleToken) {
		t.Errorf("expected ErrStaleToken, got %v", err)
	}
}

func TestNilHooksAreIgnored(t *testing.T) {
	logger := zaptest.NewLogger(t)
	registry := surface.NewRegistry(logger)
	if err := registry.Register(config.DefaultMountPoint, image.Rect(0, 0, 10, 10)); err != nil {
		t.Fatal(err)
	}
	b := New(registry, config.DefaultEngineConfig(), Hooks{},
		WithLogger(logger),
		WithEngineOptions(engine.WithoutCanvas()))
	if err := b.Mount(0); err != nil {
		t.Fatal(err)
	}
	b.Step()
	b.Step()

	if b.Instance().State() != engine.StateRunning {
		t.Errorf("instance state: got %v, want running", b.Instance().State())
	}
}

// TestFaultedInstanceRecoversOnReload 回调出错只停止当前实例，新令牌得到正常运行的实例
func TestFaultedInstanceRecoversOnReload(t *testing.T) {
	f := newFixture(t, config.DefaultEngineConfig())
	updates := 0
	faulty := true
	f.bridge = New(f.registry, config.DefaultEngineConfig(), Hooks{
		OnUpdate: func(*engine.Scene, float64, float64) {
			if faulty {
				panic("boom")
			}
			updates++
		},
	}, WithObserver(f.rec.observe), WithEngineOptions(engine.WithClock(f.clock), engine.WithoutCanvas()))

	if err := f.bridge.Mount(0); err != nil {
		t.Fatal(err)
	}
	f.frames(3)

	halted := f.bridge.Instance()
	if halted.State() != engine.StateHalted {
		t.Fatalf("instance state: got %v, want halted", halted.State())
	}
	var fault *engine.HookFault
	if !errors.As(halted.Fault(), &fault) || fault.Hook != "update" {
		t.Fatalf("Fault(): got %v", halted.Fault())
	}
	if f.bridge.State() != Running {
		t.Errorf("bridge state: got %v, want Running", f.bridge.State())
	}

	faulty = false
	if err := f.bridge.Reconcile(1); err != nil {
		t.Fatalf("Reconcile(1) error: %v", err)
	}
	f.frames(3)

	if f.bridge.Instance().State() != engine.StateRunning {
		t.Errorf("new instance state: got %v, want running", f.bridge.Instance().State())
	}
	if updates != 2 {
		t.Errorf("updates after reload: got %d, want 2", updates)
	}
	if halted.State() != engine.StateDestroyed {
		t.Errorf("halted instance should be destroyed, got %v", halted.State())
	}
}

// TestTeardownInsideHookIsRejected 回调内卸载或以新令牌调和会被拒绝，实例保持运行
func TestTeardownInsideHookIsRejected(t *testing.T) {
	f := newFixture(t, config.DefaultEngineConfig())
	var unmountErr, reconcileErr error
	f.bridge = New(f.registry, config.DefaultEngineConfig(), Hooks{
		OnUpdate: func(*engine.Scene, float64, float64) {
			unmountErr = f.bridge.Unmount()
			reconcileErr = f.bridge.Reconcile(1)
		},
	}, WithObserver(f.rec.observe), WithEngineOptions(engine.WithClock(f.clock), engine.WithoutCanvas()))

	if err := f.bridge.Mount(0); err != nil {
		t.Fatal(err)
	}
	live := f.bridge.Instance()
	f.frames(2)

	if !errors.Is(unmountErr, ErrInFrame) {
		t.Errorf("Unmount() inside hook: got %v, want ErrInFrame", unmountErr)
	}
	if !errors.Is(reconcileErr, ErrInFrame) {
		t.Errorf("Reconcile() inside hook: got %v, want ErrInFrame", reconcileErr)
	}
	if f.bridge.State() != Running || f.bridge.Instance() != live {
		t.Fatalf("bridge should keep the live instance, state=%v", f.bridge.State())
	}
	if live.State() != engine.StateRunning {
		t.Errorf("instance state: got %v, want running", live.State())
	}
	if f.rec.count(Destroying) != 0 {
		t.Errorf("Destroying events: got %d, want 0", f.rec.count(Destroying))
	}

	// 帧外的重建正常进行，挂载点已被旧实例释放
	if err := f.bridge.Reconcile(1); err != nil {
		t.Fatalf("Reconcile(1) outside frame: %v", err)
	}
	if live.State() != engine.StateDestroyed {
		t.Errorf("old instance state: got %v, want destroyed", live.State())
	}
	if f.bridge.Instance() == live || f.bridge.Token() != 1 {
		t.Error("expected a new instance for token 1")
	}
}
