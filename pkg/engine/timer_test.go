package engine

import "testing"

func TestDelayedCall(t *testing.T) {
	c := newSceneClock()
	fired := 0
	c.DelayedCall(50, func() { fired++ })

	c.update(16, 16)
	c.update(32, 16)
	c.update(48, 16)
	if fired != 0 {
		t.Fatalf("fired before delay: %d", fired)
	}

	c.update(64, 16)
	if fired != 1 {
		t.Fatalf("fired: got %d, want 1", fired)
	}

	c.update(200, 136)
	if fired != 1 {
		t.Errorf("one-shot event fired again: %d", fired)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending(): got %d, want 0", c.Pending())
	}
	if c.Now() != 200 {
		t.Errorf("Now(): got %v, want 200", c.Now())
	}
}

func TestRepeatAndLoop(t *testing.T) {
	tests := []struct {
		name   string
		cfg    TimerConfig
		frames int
		want   int
	}{
		{"重复两次", TimerConfig{Delay: 10, Repeat: 2}, 10, 3},
		{"无限循环", TimerConfig{Delay: 10, Loop: true}, 10, 10},
		{"单帧补触发", TimerConfig{Delay: 5, Loop: true}, 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newSceneClock()
			fired := 0
			cfg := tt.cfg
			cfg.Callback = func() { fired++ }
			c.AddEvent(cfg)

			now := 0.0
			for i := 0; i < tt.frames; i++ {
				now += 10
				c.update(now, 10)
			}
			if fired != tt.want {
				t.Errorf("fired: got %d, want %d", fired, tt.want)
			}
		})
	}
}

func TestZeroDelayLoopFiresOncePerFrame(t *testing.T) {
	c := newSceneClock()
	fired := 0
	c.AddEvent(TimerConfig{Delay: 0, Loop: true, Callback: func() { fired++ }})

	c.update(16, 16)
	c.update(32, 16)
	if fired != 2 {
		t.Errorf("fired: got %d, want 2", fired)
	}
}

func TestRemoveEvent(t *testing.T) {
	c := newSceneClock()
	fired := false
	ev := c.DelayedCall(10, func() { fired = true })

	ev.Remove()
	c.update(20, 20)

	if fired {
		t.Error("removed event fired")
	}
	if !ev.Done() {
		t.Error("Done() should be true after Remove")
	}
}

func TestEventAddedInCallbackStartsNextFrame(t *testing.T) {
	c := newSceneClock()
	inner := 0
	c.DelayedCall(10, func() {
		c.DelayedCall(10, func() { inner++ })
	})

	c.update(10, 10)
	if inner != 0 {
		t.Fatalf("inner event fired in the frame it was added")
	}
	c.update(20, 10)
	if inner != 1 {
		t.Errorf("inner: got %d, want 1", inner)
	}
}

func TestRemoveAllEventsInsideCallback(t *testing.T) {
	c := newSceneClock()
	second := false
	c.DelayedCall(10, func() { c.RemoveAllEvents() })
	c.DelayedCall(10, func() { second = true })

	c.update(10, 10)
	if second {
		t.Error("event removed by earlier callback still fired")
	}
	if c.Pending() != 0 {
		t.Errorf("Pending(): got %d", c.Pending())
	}
}
