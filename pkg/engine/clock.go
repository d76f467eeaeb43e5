package engine

import "time"

// Clock 帧时间来源
type Clock interface {
	Now() time.Time
}

// SystemClock 使用系统单调时钟
type SystemClock struct{}

// Now 返回当前时间
func (SystemClock) Now() time.Time { return time.Now() }
