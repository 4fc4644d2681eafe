// Command kmconsole is an interactive terminal demo: it reads real
// keystrokes, runs them through the matcher/executor, and renders the
// composing buffer live alongside a small dashboard of engine state.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"

	"github.com/thandwin/kmcore/internal/config"
	"github.com/thandwin/kmcore/internal/engine"
	"github.com/thandwin/kmcore/internal/match"
	"github.com/thandwin/kmcore/internal/vkey"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path (default: platform config dir)")
		layoutPath = flag.String("layout", "", "layout file to load at startup (overrides config)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kmconsole: %v\n", err)
		os.Exit(1)
	}

	path := *layoutPath
	if path == "" {
		path = cfg.Console.DefaultLayout
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.Engine.LogLevel),
	}))

	eng := engine.New(
		engine.WithLogger(logger),
		engine.WithComposingCap(cfg.Engine.ComposingCap),
		engine.WithRematchBudget(cfg.Engine.RematchBudget),
	)

	c := newConsole(cfg, eng, path)
	if path != "" {
		c.loadLayout(path)
	}

	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "kmconsole: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// console is the terminal UI: a composing view, a dashboard of engine
// state, a scrollback log, and a command line for layout/switch commands.
type console struct {
	cfg        *config.Config
	engine     *engine.Engine
	layoutPath string

	reloadHotkey vkey.Hotkey
	haveReload   bool
	toggleHotkey vkey.Hotkey
	haveToggle   bool
	toggleIndex  uint16

	App        *tview.Application
	Pages      *tview.Pages
	MainLayout *tview.Flex

	ComposingView *tview.TextView
	DashboardView *tview.TextView
	LogView       *tview.TextView
	CommandInput  *tview.InputField
}

func newConsole(cfg *config.Config, eng *engine.Engine, layoutPath string) *console {
	c := &console{
		cfg:         cfg,
		engine:      eng,
		layoutPath:  layoutPath,
		toggleIndex: cfg.Console.ToggleSwitchIndex,
		App:         tview.NewApplication(),
	}
	if hk, ok := vkey.ParseHotkey(cfg.Console.ReloadHotkey); ok {
		c.reloadHotkey, c.haveReload = hk, true
	}
	if hk, ok := vkey.ParseHotkey(cfg.Console.ToggleSwitchHotkey); ok {
		c.toggleHotkey, c.haveToggle = hk, true
	}

	c.initializeViews()
	c.buildLayout()
	c.setupKeyBindings()
	return c
}

func (c *console) initializeViews() {
	c.ComposingView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	c.ComposingView.SetBorder(true).SetTitle(" Composing ")

	c.DashboardView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	c.DashboardView.SetBorder(true).SetTitle(" Engine State ")

	c.LogView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	c.LogView.SetBorder(true).SetTitle(" Log ")

	c.CommandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	c.CommandInput.SetBorder(true).SetTitle(" Command (:load PATH, :reset, :quit) ")
	c.CommandInput.SetDoneFunc(c.handleCommand)

	c.refreshComposing()
	c.refreshDashboard()
}

func (c *console) buildLayout() {
	top := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(c.ComposingView, 0, 2, false).
		AddItem(c.DashboardView, 0, 1, false)

	c.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 0, 2, false).
		AddItem(c.LogView, 0, 2, false).
		AddItem(c.CommandInput, 3, 0, true)

	c.Pages = tview.NewPages().AddPage("main", c.MainLayout, true, true)
}

func (c *console) setupKeyBindings() {
	c.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			c.App.Stop()
			return nil
		}

		if c.haveReload && hotkeyMatches(c.reloadHotkey, event) {
			if c.layoutPath != "" {
				c.loadLayout(c.layoutPath)
			} else {
				c.writeLog("[yellow]no layout path set; use :load PATH first[white]\n")
			}
			return nil
		}
		if c.haveToggle && hotkeyMatches(c.toggleHotkey, event) {
			c.toggleSwitch()
			return nil
		}

		if c.App.GetFocus() == c.CommandInput {
			return event
		}

		ke, ok := keyEventFromTcell(event)
		if !ok {
			return event
		}
		c.fireKey(ke)
		return nil
	})
}

// hotkeyMatches reports whether a raw tcell key event satisfies a parsed
// Hotkey (same key, same modifier set).
func hotkeyMatches(hk vkey.Hotkey, event *tcell.EventKey) bool {
	vk, ctrlImplied, ok := decodeTcellKey(event)
	if !ok || vk != hk.Key {
		return false
	}
	mods := event.Modifiers()
	ctrl := ctrlImplied || mods&tcell.ModCtrl != 0
	return hk.Shift == (mods&tcell.ModShift != 0) &&
		hk.Ctrl == ctrl &&
		hk.Alt == (mods&tcell.ModAlt != 0) &&
		hk.Meta == (mods&tcell.ModMeta != 0)
}

func (c *console) toggleSwitch() {
	if c.engine.HasSwitch(c.toggleIndex) {
		c.engine.ClearSwitch(c.toggleIndex)
		c.writeLog(fmt.Sprintf("cleared switch %d\n", c.toggleIndex))
	} else {
		c.engine.SetSwitch(c.toggleIndex)
		c.writeLog(fmt.Sprintf("set switch %d\n", c.toggleIndex))
	}
	c.refreshDashboard()
}

func (c *console) fireKey(ke match.KeyEvent) {
	action := c.engine.ProcessKey(ke)
	c.refreshComposing()
	c.refreshDashboard()
	c.writeLog(fmt.Sprintf("key -> %s delete=%d text=%q\n", action.Kind.String(), action.DeleteCount, action.Text))
	c.App.Draw()
}

func (c *console) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := strings.TrimSpace(c.CommandInput.GetText())
	c.CommandInput.SetText("")
	if cmd == "" {
		return
	}

	switch {
	case cmd == ":quit" || cmd == ":q":
		c.App.Stop()
	case cmd == ":reset":
		c.engine.Reset()
		c.refreshComposing()
		c.refreshDashboard()
		c.writeLog("reset\n")
	case strings.HasPrefix(cmd, ":load "):
		path := strings.TrimSpace(strings.TrimPrefix(cmd, ":load "))
		c.loadLayout(path)
	case strings.HasPrefix(cmd, ":toggle "):
		arg := strings.TrimSpace(strings.TrimPrefix(cmd, ":toggle "))
		n, err := strconv.Atoi(arg)
		if err != nil {
			c.writeLog(fmt.Sprintf("[red]bad switch index: %s[white]\n", arg))
			return
		}
		c.toggleIndex = uint16(n)
		c.toggleSwitch()
	default:
		c.writeLog(fmt.Sprintf("[red]unknown command: %s[white]\n", cmd))
	}
}

func (c *console) loadLayout(path string) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied layout path
	if err != nil {
		c.writeLog(fmt.Sprintf("[red]read %s: %v[white]\n", path, err))
		return
	}
	if err := c.engine.LoadLayout(data); err != nil {
		c.writeLog(fmt.Sprintf("[red]load %s: %v[white]\n", path, err))
		return
	}
	c.layoutPath = path
	c.refreshComposing()
	c.refreshDashboard()
	c.writeLog(fmt.Sprintf("loaded %s\n", path))
}

func (c *console) refreshComposing() {
	text := c.engine.GetComposition()
	width := runewidth.StringWidth(text)
	ruler := strings.Repeat("-", width) + "^"
	c.ComposingView.SetText(fmt.Sprintf("%s\n%s", text, ruler))
}

func (c *console) refreshDashboard() {
	var b strings.Builder
	fmt.Fprintf(&b, "layout: %s\n", displayOrNone(c.layoutPath))
	fmt.Fprintf(&b, "last rule: %s\n", ruleLabel(c.engine.LastFiredRule()))
	fmt.Fprintf(&b, "switches:\n")
	active := c.engine.ActiveSwitches()
	if len(active) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, idx := range active {
		fmt.Fprintf(&b, "  [green]%d[white]\n", idx)
	}
	c.DashboardView.SetText(b.String())
}

func displayOrNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func ruleLabel(idx int) string {
	if idx < 0 {
		return "(none)"
	}
	return strconv.Itoa(idx)
}

func (c *console) writeLog(s string) {
	_, _ = c.LogView.Write([]byte(s))
	c.LogView.ScrollToEnd()
}

// Run starts the console's event loop.
func (c *console) Run() error {
	c.writeLog("[green]kmconsole started.[white] Type :load PATH to load a layout.\n")
	return c.App.SetRoot(c.Pages, true).SetFocus(c.CommandInput).Run()
}

// keyEventFromTcell translates a raw terminal key event into the matcher's
// KeyEvent, reporting false for keys this demo doesn't forward to the
// engine (anything vkey has no mapping for).
func keyEventFromTcell(event *tcell.EventKey) (match.KeyEvent, bool) {
	vk, ctrlImplied, ok := decodeTcellKey(event)
	if !ok {
		return match.KeyEvent{}, false
	}

	mods := event.Modifiers()
	ke := match.KeyEvent{
		VK:    vk,
		Shift: mods&tcell.ModShift != 0,
		Ctrl:  ctrlImplied || mods&tcell.ModCtrl != 0,
		Alt:   mods&tcell.ModAlt != 0,
	}
	if event.Key() == tcell.KeyRune {
		r := event.Rune()
		ke.Character = &r
	}
	return ke, true
}

func runeToVK(r rune) (vkey.VK, bool) {
	if r == ' ' {
		return vkey.Space, true
	}
	upper := r
	if upper >= 'a' && upper <= 'z' {
		upper -= 'a' - 'A'
	}
	if upper >= 'A' && upper <= 'Z' {
		return vkey.KeyA + vkey.VK(upper-'A'), true
	}
	if r >= '0' && r <= '9' {
		return vkey.Key0 + vkey.VK(r-'0'), true
	}
	return vkey.FromName(string(r))
}

// decodeTcellKey maps a raw tcell key event to a VK, reporting (via
// ctrlImplied) when the Ctrl modifier is encoded in the key constant itself
// rather than in Modifiers() — true for every terminal's Ctrl+letter
// combination, which tcell delivers as a single control-code key rather
// than KeyRune plus a modifier bit.
func decodeTcellKey(event *tcell.EventKey) (vk vkey.VK, ctrlImplied bool, ok bool) {
	switch event.Key() {
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return vkey.Back, false, true
	case tcell.KeyTab:
		return vkey.Tab, false, true
	case tcell.KeyEnter:
		return vkey.Return, false, true
	case tcell.KeyEscape:
		return vkey.Escape, false, true
	case tcell.KeyDelete:
		return vkey.Delete, false, true
	case tcell.KeyHome:
		return vkey.Home, false, true
	case tcell.KeyEnd:
		return vkey.End, false, true
	case tcell.KeyPgUp:
		return vkey.Prior, false, true
	case tcell.KeyPgDn:
		return vkey.Next, false, true
	case tcell.KeyUp:
		return vkey.Up, false, true
	case tcell.KeyDown:
		return vkey.Down, false, true
	case tcell.KeyLeft:
		return vkey.Left, false, true
	case tcell.KeyRight:
		return vkey.Right, false, true
	case tcell.KeyF1:
		return vkey.F1, false, true
	case tcell.KeyF2:
		return vkey.F2, false, true
	case tcell.KeyF3:
		return vkey.F3, false, true
	case tcell.KeyF4:
		return vkey.F4, false, true
	case tcell.KeyF5:
		return vkey.F5, false, true
	case tcell.KeyF6:
		return vkey.F6, false, true
	case tcell.KeyF7:
		return vkey.F7, false, true
	case tcell.KeyF8:
		return vkey.F8, false, true
	case tcell.KeyF9:
		return vkey.F9, false, true
	case tcell.KeyF10:
		return vkey.F10, false, true
	case tcell.KeyF11:
		return vkey.F11, false, true
	case tcell.KeyF12:
		return vkey.F12, false, true
	case tcell.KeyRune:
		vk, ok := runeToVK(event.Rune())
		return vk, false, ok
	}
	if event.Key() >= tcell.KeyCtrlA && event.Key() <= tcell.KeyCtrlZ {
		return vkey.KeyA + vkey.VK(event.Key()-tcell.KeyCtrlA), true, true
	}
	return vkey.Null, false, false
}
