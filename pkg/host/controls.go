package host

import (
	"image/color"

	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/font"
)

// controls 宿主的控制面板：左上角的 RELOAD 按钮与实例标签
type controls struct {
	ui    *ebitenui.UI
	label *widget.Text
}

func newControls(face font.Face, onReload func()) *controls {
	buttonImage := &widget.ButtonImage{
		Idle:    image.NewNineSliceColor(color.NRGBA{R: 170, G: 170, B: 180, A: 255}),
		Hover:   image.NewNineSliceColor(color.NRGBA{R: 135, G: 135, B: 150, A: 255}),
		Pressed: image.NewNineSliceColor(color.NRGBA{R: 100, G: 100, B: 120, A: 255}),
	}

	root := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	)

	bar := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionHorizontal),
			widget.RowLayoutOpts.Spacing(8),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionStart,
				VerticalPosition:   widget.AnchorLayoutPositionStart,
			}),
		),
	)
	root.AddChild(bar)

	button := widget.NewButton(
		widget.ButtonOpts.Image(buttonImage),
		widget.ButtonOpts.Text("RELOAD", face, &widget.ButtonTextColor{
			Idle:     color.NRGBA{R: 254, G: 255, B: 255, A: 255},
			Disabled: color.NRGBA{R: 200, G: 200, B: 200, A: 255},
		}),
		widget.ButtonOpts.TextPadding(widget.Insets{
			Left:   12,
			Right:  12,
			Top:    4,
			Bottom: 4,
		}),
		widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
			onReload()
		}),
	)
	bar.AddChild(button)

	label := widget.NewText(
		widget.TextOpts.Text("", face, color.NRGBA{R: 230, G: 230, B: 230, A: 255}),
		widget.TextOpts.Position(widget.TextPositionStart, widget.TextPositionCenter),
		widget.TextOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.RowLayoutData{
				Position: widget.RowLayoutPositionCenter,
			}),
		),
	)
	bar.AddChild(label)

	return &controls{
		ui:    &ebitenui.UI{Container: root},
		label: label,
	}
}

func (c *controls) setLabel(s string) {
	c.label.Label = s
}

func (c *controls) Update() {
	c.ui.Update()
}

func (c *controls) Draw(screen *ebiten.Image) {
	c.ui.Draw(screen)
}
