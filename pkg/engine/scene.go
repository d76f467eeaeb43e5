package engine

import (
	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/decker502/scenebridge/pkg/config"
)

// MainSceneKey 引擎唯一场景的键名
const MainSceneKey = "Main"

// Lifecycle 引擎驱动的场景生命周期
//
// Preload 与 Create 在每个实例生命周期内各调用一次（Preload 在前），
// 之后每帧调用一次 Update。time 为实例启动以来的毫秒数（单调不减），
// delta 为与上一帧的间隔毫秒数（非负）。
type Lifecycle interface {
	Preload(scene *Scene)
	Create(scene *Scene)
	Update(scene *Scene, time, delta float64)
}

// Scene 传递给生命周期方法的场景句柄
type Scene struct {
	key  string
	game *Game
	time *SceneClock
}

func newScene(key string, g *Game) *Scene {
	return &Scene{
		key:  key,
		game: g,
		time: newSceneClock(),
	}
}

// Key 返回场景键名
func (s *Scene) Key() string { return s.key }

// Game 返回所属引擎实例
func (s *Scene) Game() *Game { return s.game }

// Canvas 返回当前帧的绘制目标，每帧开始时以背景色清空（WithoutCanvas 时为 nil）
func (s *Scene) Canvas() *ebiten.Image { return s.game.canvas }

// Size 返回画布尺寸，实例销毁后为 0
func (s *Scene) Size() (int, int) {
	if s.game.state == StateDestroyed {
		return 0, 0
	}
	return s.game.width, s.game.height
}

// Time 返回场景时钟（定时事件）
func (s *Scene) Time() *SceneClock { return s.time }

// Input 返回本帧的指针状态
func (s *Scene) Input() Pointer { return s.game.pointer }

// Config 返回实例配置
func (s *Scene) Config() config.EngineConfig { return s.game.cfg }

// Logger 返回带场景标注的日志器
func (s *Scene) Logger() *zap.Logger {
	return s.game.logger.With(zap.String("scene", s.key))
}
