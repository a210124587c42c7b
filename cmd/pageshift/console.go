package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/John-Robertt/pageshift/internal/app/run"
	"github.com/John-Robertt/pageshift/internal/config"
	"github.com/John-Robertt/pageshift/internal/domain"
)

var _ run.Observer = (*consoleUI)(nil)

// consoleUI 把 run 层的事件渲染为终端输出。
//
// - 逐条改名写到 w（默认 stdout；--json 时为 stderr）
// - 失败行始终写到 diag（stderr）
// - 配置/阶段信息只在交互终端输出到 diag，非交互时保持安静
type consoleUI struct {
	w           io.Writer
	diag        io.Writer
	interactive bool

	ok   *color.Color
	plan *color.Color
	fail *color.Color

	mu sync.Mutex
}

func newConsoleUI(w, diag io.Writer, interactive, colorize bool) *consoleUI {
	c := &consoleUI{
		w:           w,
		diag:        diag,
		interactive: interactive,
		ok:          color.New(color.FgGreen),
		plan:        color.New(color.FgCyan),
		fail:        color.New(color.FgRed, color.Bold),
	}
	for _, col := range []*color.Color{c.ok, c.plan, c.fail} {
		if colorize {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

func (c *consoleUI) OnStart(eff config.EffectiveConfig) {
	if !c.interactive {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	mode := "apply"
	if eff.DryRun {
		mode = "dry-run (不改名)"
	}
	fmt.Fprintf(c.diag, "[%s] pageshift run (%s)\n", time.Now().Format("15:04:05"), mode)
	fmt.Fprintf(c.diag, "  folder: %s (来源: %s)\n", eff.Folder, eff.Source)
	if eff.Doc != "" {
		fmt.Fprintf(c.diag, "  doc: %s kind: %s\n", eff.Doc, eff.Kind)
	}
	if eff.ConfigFile != "" {
		fmt.Fprintf(c.diag, "  config: %s\n", eff.ConfigFile)
	}
}

func (c *consoleUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	if !c.interactive {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case "scan":
		fmt.Fprintf(c.diag, "扫描: entries=%d pages=%d ignored=%d (%s)\n",
			intField(fields, "entries"), intField(fields, "pages"), intField(fields, "ignored"), formatShortDuration(dur),
		)
	case "plan":
		fmt.Fprintf(c.diag, "规划: renames=%d conflicts=%d (%s)\n",
			intField(fields, "renames"), intField(fields, "conflicts"), formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(c.diag, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (c *consoleUI) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch res.Status {
	case domain.StatusRenamed:
		fmt.Fprintf(c.w, "%s %s -> %s\n", c.ok.Sprint("Renamed:"), res.Src, res.Dst)
	case domain.StatusPlanned:
		fmt.Fprintf(c.w, "%s %s -> %s\n", c.plan.Sprint("Would rename:"), res.Src, res.Dst)
	case domain.StatusFailed:
		fmt.Fprintf(c.diag, "%s [%d/%d] %s: %s: %s\n",
			c.fail.Sprint("FAIL"), idx, total, formatMove(res), res.ErrorCode, truncate(res.ErrorMsg, 200),
		)
	}
}

func formatMove(res domain.ItemResult) string {
	if res.Dst == "" {
		return res.Src
	}
	return res.Src + " -> " + res.Dst
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
