package engine

// TimerConfig 定时事件参数
type TimerConfig struct {
	Name     string  // 事件名称，仅用于日志
	Delay    float64 // 触发间隔（毫秒）
	Repeat   int     // 首次触发后再重复的次数
	Loop     bool    // 无限循环（忽略 Repeat）
	Callback func()
}

// TimerEvent 场景时钟上的定时事件
type TimerEvent struct {
	Name        string
	Delay       float64 // 目标时间（毫秒）
	Elapsed     float64 // 当前周期已过时间（毫秒）
	RepeatCount int     // 剩余重复次数
	Loop        bool

	callback func()
	removed  bool
}

// Remove 取消事件，已取消的事件不会再触发
func (e *TimerEvent) Remove() {
	e.removed = true
}

// Done 事件是否已结束（触发完毕或被取消）
func (e *TimerEvent) Done() bool {
	return e.removed
}

// SceneClock 场景时钟，跟随引擎帧推进
type SceneClock struct {
	now    float64
	events []*TimerEvent
}

func newSceneClock() *SceneClock {
	return &SceneClock{}
}

// Now 返回最近一帧的时间（毫秒）
func (c *SceneClock) Now() float64 {
	return c.now
}

// AddEvent 注册定时事件
func (c *SceneClock) AddEvent(cfg TimerConfig) *TimerEvent {
	ev := &TimerEvent{
		Name:        cfg.Name,
		Delay:       cfg.Delay,
		RepeatCount: cfg.Repeat,
		Loop:        cfg.Loop,
		callback:    cfg.Callback,
	}
	c.events = append(c.events, ev)
	return ev
}

// DelayedCall 在 delay 毫秒后调用一次 fn
func (c *SceneClock) DelayedCall(delay float64, fn func()) *TimerEvent {
	return c.AddEvent(TimerConfig{Delay: delay, Callback: fn})
}

// Pending 返回尚未结束的事件数量
func (c *SceneClock) Pending() int {
	n := 0
	for _, ev := range c.events {
		if !ev.removed {
			n++
		}
	}
	return n
}

// RemoveAllEvents 取消全部事件
func (c *SceneClock) RemoveAllEvents() {
	for _, ev := range c.events {
		ev.removed = true
	}
	c.events = nil
}

// update 推进时钟并触发到期事件
//
// 回调中可能 panic，由调用方负责恢复。
func (c *SceneClock) update(time, delta float64) {
	c.now = time

	// 回调中新增的事件从下一帧开始计时
	events := c.events
	for _, ev := range events {
		if ev.removed {
			continue
		}
		ev.Elapsed += delta
		for !ev.removed && ev.Elapsed >= ev.Delay {
			ev.Elapsed -= ev.Delay
			switch {
			case ev.Loop:
			case ev.RepeatCount > 0:
				ev.RepeatCount--
			default:
				ev.removed = true
			}
			if ev.callback != nil {
				ev.callback()
			}
			if ev.Delay <= 0 {
				// 零间隔事件每帧最多触发一次
				ev.Elapsed = 0
				break
			}
		}
	}

	live := c.events[:0]
	for _, ev := range c.events {
		if !ev.removed {
			live = append(live, ev)
		}
	}
	for i := len(live); i < len(c.events); i++ {
		c.events[i] = nil
	}
	c.events = live
}
