//go:build mobile

// embed.go - 移动端资源嵌入声明
//
// 此文件仅在使用 -tags mobile 构建时编译。
// mobile/data/engine.yaml 是根目录 data/engine.yaml 的副本，
// go:embed 不能引用包目录之外的文件。
package mobile

import "embed"

//go:embed data/engine.yaml
var dataFS embed.FS
