//go:build mobile

// Package mobile 提供 ebitenmobile 绑定入口
//
// 此包用于构建 Android (.aar) 和 iOS (.xcframework) 包。
// 使用 ebitenmobile 工具构建时会自动调用 init() 函数。
//
// 此文件仅在使用 -tags mobile 构建时编译：
//
//	# Android
//	ebitenmobile bind -target android -tags mobile -androidapi 23 -javapkg com.decker.scenebridge -o build/android/scenebridge.aar -v ./mobile
//
//	# iOS (仅 macOS)
//	ebitenmobile bind -target ios -tags mobile -o build/ios/SceneBridge.xcframework -v ./mobile
package mobile

import (
	"log"

	"github.com/hajimehoshi/ebiten/v2/mobile"

	"github.com/decker502/scenebridge/pkg/app"
	"github.com/decker502/scenebridge/pkg/embedded"
	"github.com/decker502/scenebridge/pkg/logging"
)

func init() {
	// dataFS 在 embed.go 中声明
	embedded.Init(dataFS)

	logger, err := logging.New(logging.Options{Verbose: true})
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}

	engineCfg, err := app.LoadEngineConfig("")
	if err != nil {
		logger.Sugar().Fatalf("引擎配置加载失败: %v", err)
	}

	// 移动端不持久化窗口偏好
	gameApp, err := app.NewApp(app.Config{Engine: engineCfg, Logger: logger})
	if err != nil {
		logger.Sugar().Fatalf("应用初始化失败: %v", err)
	}

	mobile.SetGame(gameApp)
}

// Dummy 是一个空导出函数，确保包被 ebitenmobile 正确识别
func Dummy() {}
