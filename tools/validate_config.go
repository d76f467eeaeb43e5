// validate_config 检查引擎配置文件
//
// 用法：
//
//	go run ./tools [path ...]
//
// 未指定路径时检查 data/engine.yaml。
package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/decker502/scenebridge/pkg/config"
)

func main() {
	paths := os.Args[1:]
	if len(paths) == 0 {
		paths = []string{"data/engine.yaml"}
	}

	failed := 0
	for _, path := range paths {
		if !validate(path) {
			failed++
		}
	}
	if failed > 0 {
		fmt.Printf("❌ %d 个文件未通过检查\n", failed)
		os.Exit(1)
	}
}

func validate(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("❌ 读取文件失败: %v\n", err)
		return false
	}

	// 未知字段单独提示，拼写错误的键会被 ParseEngineConfig 静默忽略
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		fmt.Printf("❌ %s: YAML 解析失败: %v\n", path, err)
		return false
	}
	for k := range raw {
		if !knownKeys[k] {
			fmt.Printf("⚠️  %s: 未知字段 %q\n", path, k)
		}
	}

	cfg, err := config.ParseEngineConfig(data)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				fmt.Printf("❌ %s: %s\n", path, p)
			}
		} else {
			fmt.Printf("❌ %s: %v\n", path, err)
		}
		return false
	}

	if cfg.RenderMode == config.RenderModeCanvas {
		fmt.Printf("⚠️  %s: renderMode canvas 将退化为 auto\n", path)
	}
	fmt.Printf("✅ %s: mountPoint=%s renderMode=%s scaleMode=%s %dx%d\n",
		path, cfg.MountPoint, cfg.RenderMode, cfg.ScaleMode, cfg.Width, cfg.Height)
	return true
}

var knownKeys = map[string]bool{
	"mountPoint":          true,
	"renderMode":          true,
	"scaleMode":           true,
	"width":               true,
	"height":              true,
	"pixelArt":            true,
	"backgroundColor":     true,
	"pointerInputEnabled": true,
	"title":               true,
}
