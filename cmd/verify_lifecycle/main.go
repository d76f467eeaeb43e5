// Package main provides a terminal tool for watching the host/engine lifecycle
// without opening a window.
//
// Usage:
//
//	go run ./cmd/verify_lifecycle [flags]
//
// Flags:
//
//	--config <path>    Engine config file (default: built-in defaults); the host
//	                   always registers the "stage" mount point, so a config
//	                   naming another one reproduces the construction fault
//	--fps <n>          Host tick rate (default: 60)
//	--log-file <path>  Write engine logs to a file (the terminal is owned by the UI)
//
// Controls:
//
//	R  - Reload (bump the remount token)
//	U  - Unmount the host
//	Q  - Quit
//
// Purpose:
//   - Verify that a reload destroys the old instance before constructing the new one
//   - Verify that onUpdate sees the state written by onCreate after every reload
//   - Verify that unmounting stops all updates
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/decker502/scenebridge/pkg/bridge"
	"github.com/decker502/scenebridge/pkg/config"
	"github.com/decker502/scenebridge/pkg/host"
	"github.com/decker502/scenebridge/pkg/surface"
)

const (
	maxEvents = 12
	// minTickInterval 过大的 --fps 不能让 tea.Tick 退化为忙循环
	minTickInterval = time.Millisecond
)

var (
	configFlag  = flag.String("config", "", "Engine config file (default: built-in defaults)")
	fpsFlag     = flag.Int("fps", 60, "Host tick rate")
	logFileFlag = flag.String("log-file", "", "Write engine logs to this file")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	stateStyles = map[bridge.LifecycleState]lipgloss.Style{
		bridge.Unmounted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		bridge.Constructing: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		bridge.Running:      lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		bridge.Destroying:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA07A")),
	}

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

type keyMap struct {
	Reload  key.Binding
	Unmount key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reload, k.Unmount, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Unmount: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "unmount"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type tickMsg time.Time

// tickInterval 将帧率换算为节拍间隔
func tickInterval(fps int) time.Duration {
	interval := time.Second / time.Duration(fps)
	if interval < minTickInterval {
		return minTickInterval
	}
	return interval
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// lifecycleModel 驱动一个无窗口的宿主并展示其生命周期
type lifecycleModel struct {
	host     *host.Host
	interval time.Duration
	help     help.Model

	events []bridge.Event
	frames uint64
	err    error
}

func newLifecycleModel(cfg config.EngineConfig, logger *zap.Logger, interval time.Duration) (*lifecycleModel, error) {
	m := &lifecycleModel{
		interval: interval,
		help:     help.New(),
	}
	h, err := host.New(surface.NewRegistry(logger), cfg,
		host.WithLogger(logger),
		host.WithoutControls(),
		host.WithBridgeObserver(m.observe),
		host.WithFrameListener(func(host.Frame) { m.frames++ }))
	if err != nil {
		return nil, err
	}
	m.host = h
	return m, nil
}

func (m *lifecycleModel) observe(ev bridge.Event) {
	m.events = append(m.events, ev)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

func (m *lifecycleModel) Init() tea.Cmd {
	if err := m.host.Mount(); err != nil {
		m.err = err
	}
	return tickCmd(m.interval)
}

func (m *lifecycleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if err := m.host.Unmount(); err != nil {
				m.err = err
			}
			return m, tea.Quit
		case key.Matches(msg, keys.Reload):
			m.host.Reload()
		case key.Matches(msg, keys.Unmount):
			if err := m.host.Unmount(); err != nil {
				m.err = err
			}
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tickMsg:
		if err := m.host.Tick(); err != nil {
			m.err = err
		}
		return m, tickCmd(m.interval)
	}
	return m, nil
}

func (m *lifecycleModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Lifecycle Verifier"))
	b.WriteString("\n\n")

	br := m.host.Bridge()
	state := br.State()
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("state:   "), stateStyles[state].Render(state.String()))
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("token:   "), m.host.Token())
	fmt.Fprintf(&b, "%s %v\n", labelStyle.Render("mounted: "), m.host.Mounted())
	stats := br.Stats()
	fmt.Fprintf(&b, "%s constructed=%d failed=%d destroyed=%d\n",
		labelStyle.Render("stats:   "), stats.Constructed, stats.Failed, stats.Destroyed)
	fmt.Fprintf(&b, "%s %d\n", labelStyle.Render("updates: "), m.frames)

	f := m.host.LastFrame()
	msg := "<unset>"
	if f.HasMessage {
		msg = f.Message
	}
	fmt.Fprintf(&b, "%s token=%d time=%.0fms delta=%.1fms message=%q\n",
		labelStyle.Render("last:    "), f.Token, f.Time, f.Delta, msg)

	if inst := br.Instance(); inst != nil {
		fmt.Fprintf(&b, "%s %.0fms (%s)\n", labelStyle.Render("elapsed: "), inst.Elapsed(), inst.State())
		if inst.Fault() != nil {
			b.WriteString(errorStyle.Render("halted: " + inst.Fault().Error()))
			b.WriteString("\n")
		}
	}
	if err := br.Err(); err != nil {
		b.WriteString(errorStyle.Render("construction failed: " + err.Error()))
		b.WriteString("\n")
	} else if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	var log strings.Builder
	for i, ev := range m.events {
		if i > 0 {
			log.WriteString("\n")
		}
		line := fmt.Sprintf("%-12s token=%d", ev.State, ev.Token)
		if ev.Instance != "" {
			line += " " + ev.Instance[:8]
		}
		if ev.Err != nil {
			line += " " + errorStyle.Render(ev.Err.Error())
		}
		log.WriteString(stateStyles[ev.State].Render(line))
	}
	if len(m.events) == 0 {
		log.WriteString("no events")
	}
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(log.String()))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

func main() {
	flag.Parse()

	cfg := config.DefaultEngineConfig()
	if *configFlag != "" {
		loaded, err := config.LoadEngineConfig(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *fpsFlag <= 0 {
		fmt.Fprintln(os.Stderr, "❌ --fps must be positive")
		os.Exit(2)
	}

	logger, err := newLogger(*logFileFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	m, err := newLifecycleModel(cfg, logger, tickInterval(*fpsFlag))
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	if _, err := tea.NewProgram(m).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
