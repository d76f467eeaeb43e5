package host

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const controlFontSize = 16

// loadControlFont 加载控件使用的字体
func loadControlFont() (font.Face, error) {
	tt, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return truetype.NewFace(tt, &truetype.Options{
		Size:    controlFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
