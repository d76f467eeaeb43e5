package engine

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// PointerSource 提供原始指针输入（宿主坐标系）
type PointerSource interface {
	Position() (x, y int)
	Pressed() bool
}

// ebitenPointer 读取鼠标左键与第一个触点
type ebitenPointer struct {
	touches []ebiten.TouchID
}

func (p *ebitenPointer) Position() (int, int) {
	p.touches = ebiten.AppendTouchIDs(p.touches[:0])
	if len(p.touches) > 0 {
		return ebiten.TouchPosition(p.touches[0])
	}
	return ebiten.CursorPosition()
}

func (p *ebitenPointer) Pressed() bool {
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		return true
	}
	p.touches = ebiten.AppendTouchIDs(p.touches[:0])
	return len(p.touches) > 0
}

// Pointer 本帧指针状态，坐标相对于画布左上角
type Pointer struct {
	Enabled  bool
	X, Y     int
	Inside   bool // 指针位于挂载点区域内
	Down     bool
	JustDown bool
	JustUp   bool
}

// capturePointer 根据上一帧状态与挂载点区域计算本帧指针
func capturePointer(src PointerSource, prev Pointer, bounds image.Rectangle) Pointer {
	x, y := src.Position()
	down := src.Pressed()
	inside := image.Pt(x, y).In(bounds)

	return Pointer{
		Enabled:  true,
		X:        x - bounds.Min.X,
		Y:        y - bounds.Min.Y,
		Inside:   inside,
		Down:     down,
		JustDown: down && !prev.Down && inside,
		JustUp:   !down && prev.Down,
	}
}
