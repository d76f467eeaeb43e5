// Command scenebridge 打开一个窗口，把引擎实例挂载到宿主组件上。
//
// Usage:
//
//	go run . [flags]
//
// Flags:
//
//	--config <path>      引擎配置文件（默认使用内嵌 data/engine.yaml）
//	--verbose            开发模式日志
//	--log-level <level>  debug / info / warn / error
//	--no-persist         不读写窗口偏好
//
// Controls:
//
//	RELOAD  销毁并重建引擎实例
//	F11     切换全屏
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/decker502/scenebridge/pkg/app"
	"github.com/decker502/scenebridge/pkg/embedded"
	"github.com/decker502/scenebridge/pkg/logging"
	"github.com/decker502/scenebridge/pkg/settings"
)

const appName = "scenebridge"

var (
	configFlag    = flag.String("config", "", "Engine config file (defaults to embedded data/engine.yaml)")
	verboseFlag   = flag.Bool("verbose", false, "Enable development logging")
	logLevelFlag  = flag.String("log-level", "", "Log level: debug, info, warn, error")
	noPersistFlag = flag.Bool("no-persist", false, "Do not load or save window settings")
)

func main() {
	flag.Parse()

	logger, err := logging.New(logging.Options{Verbose: *verboseFlag, Level: *logLevelFlag})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	// 初始化嵌入资源（必须在任何资源加载之前）
	embedded.Init(dataFS)

	engineCfg, err := app.LoadEngineConfig(*configFlag)
	if err != nil {
		logger.Fatal("engine config", zap.Error(err))
	}

	appCfg := app.Config{Engine: engineCfg, Logger: logger}
	if !*noPersistFlag {
		storage, err := settings.Open(appName)
		if err != nil {
			logger.Warn("window settings will not persist", zap.Error(err))
		} else {
			appCfg.Storage = storage
		}
	}

	gameApp, err := app.NewApp(appCfg)
	if err != nil {
		logger.Fatal("init failed", zap.Error(err))
	}
	gameApp.ApplyWindow()

	if err := ebiten.RunGameWithOptions(gameApp, gameApp.RunGameOptions()); err != nil && !errors.Is(err, ebiten.Termination) {
		_ = gameApp.Close()
		logger.Fatal("game loop stopped", zap.Error(err))
	}
}
