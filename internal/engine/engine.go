// Package engine is the outward-facing facade: it loads a layout, drives
// the match/execute loop on each keystroke, and converts composing-buffer
// deltas into a host-facing EditAction (spec.md §4.6).
package engine

import (
	"log/slog"
	"unicode/utf16"

	"github.com/thandwin/kmcore/internal/buffer"
	"github.com/thandwin/kmcore/internal/km2"
	"github.com/thandwin/kmcore/internal/match"
	"github.com/thandwin/kmcore/internal/rhsexec"
	"github.com/thandwin/kmcore/internal/vkey"
)

// defaultRematchBudget bounds the re-match loop (spec.md §4.6 step 5, §5
// Timeouts): the only timeout-like guard in an otherwise synchronous core.
const defaultRematchBudget = 16

// ActionKind is the kind of edit a ProcessKey call produces.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionInsert
	ActionDelete
	ActionDeleteThenInsert
)

func (k ActionKind) String() string {
	switch k {
	case ActionInsert:
		return "insert"
	case ActionDelete:
		return "delete"
	case ActionDeleteThenInsert:
		return "delete_then_insert"
	default:
		return "none"
	}
}

// EditAction is what the host must do to the surrounding text after one
// ProcessKey call (spec.md §3).
type EditAction struct {
	Kind           ActionKind
	Text           string
	DeleteCount    int
	ComposingAfter string
	Consumed       bool
}

// Engine is a single loaded layout plus its live composing state. Not
// internally thread-safe (spec.md §5): callers wanting concurrency run one
// Engine per focused input field, serialized externally.
type Engine struct {
	layout        *km2.Layout
	buf           *buffer.Buffer
	logger        *slog.Logger
	rematchBudget int
	bufCap        int
	lastRule      int
}

// Option configures a new Engine.
type Option func(*Engine)

// WithLogger installs l for StateOverflow/RematchBudget diagnostics.
// Passing nil installs a discard handler.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l == nil {
			l = slog.New(slog.NewTextHandler(discardWriter{}, nil))
		}
		e.logger = l
	}
}

// WithRematchBudget overrides the default 16-iteration re-match cap.
func WithRematchBudget(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.rematchBudget = n
		}
	}
}

// WithComposingCap overrides the default 1,024-unit composing-buffer cap.
func WithComposingCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bufCap = n
		}
	}
}

// New returns a ready Engine with no layout loaded; ProcessKey is a no-op
// passthrough until LoadLayout succeeds.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:        slog.Default(),
		rematchBudget: defaultRematchBudget,
		bufCap:        buffer.Cap,
		lastRule:      -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.buf = buffer.NewWithCap(e.bufCap)
	return e
}

// LoadLayout decodes data, installs it as the active layout, and resets
// the composing buffer and switch set (spec.md §4.6).
func (e *Engine) LoadLayout(data []byte) error {
	layout, err := km2.Decode(data)
	if err != nil {
		return err
	}
	e.layout = layout
	e.buf = buffer.NewWithCap(e.bufCap)
	e.lastRule = -1
	return nil
}

// Reset clears the composing buffer and switch set; emits nothing.
func (e *Engine) Reset() {
	e.buf = buffer.NewWithCap(e.bufCap)
	e.lastRule = -1
}

// GetComposition returns the current composing buffer as UTF-8.
func (e *Engine) GetComposition() string {
	return e.buf.Text()
}

// ActiveSwitches returns the indices of every currently active switch, for
// a host that wants to display engine state (e.g. cmd/kmconsole).
func (e *Engine) ActiveSwitches() []uint16 {
	return e.buf.ActiveSwitches()
}

// HasSwitch reports whether switch idx is currently active.
func (e *Engine) HasSwitch(idx uint16) bool {
	return e.buf.HasSwitch(idx)
}

// SetSwitch activates switch idx directly, for a host-bound command (e.g.
// a hotkey) rather than an RHS SWITCH opcode. Like an RHS SWITCH, this
// always activates and never toggles off; only Reset or ClearSwitch clears
// a switch.
func (e *Engine) SetSwitch(idx uint16) {
	e.buf.SetSwitch(idx)
}

// ClearSwitch deactivates switch idx directly, giving a host a way to
// undo a SetSwitch call without a full Reset.
func (e *Engine) ClearSwitch(idx uint16) {
	e.buf.ClearSwitch(idx)
}

// LastFiredRule returns the index of the most recently fired rule (the last
// one of a re-match chain), or -1 if no rule has fired since New,
// LoadLayout or Reset. A ProcessKey call that fires no rule leaves it
// unchanged.
func (e *Engine) LastFiredRule() int {
	return e.lastRule
}

// SetComposition replaces the composing buffer outright (switches are
// untouched), for a host with authoritative context such as a moved caret.
func (e *Engine) SetComposition(text string) {
	if truncated := e.buf.ReplaceAll(utf16.Encode([]rune(text))); truncated {
		e.logOverflow()
	}
}

// ProcessKey runs one keystroke through the matcher/executor and reports
// the edit the host must apply (spec.md §4.6).
func (e *Engine) ProcessKey(event match.KeyEvent) EditAction {
	if e.layout == nil {
		return EditAction{Kind: ActionNone, ComposingAfter: e.buf.Text(), Consumed: false}
	}

	before := append([]uint16(nil), e.buf.Units()...)

	fr, fired := e.fireWithRollback(event)
	if !fired {
		return e.noMatch(event)
	}

	iterations := 0
	cont := e.layout.Options.Eat || fr.switchOnly
	for cont && iterations < e.rematchBudget {
		next, ok := e.fireWithRollback(noKeyEvent)
		if !ok {
			break
		}
		iterations++
		cont = e.layout.Options.Eat || next.switchOnly
	}
	if cont && iterations >= e.rematchBudget {
		e.logRematchBudget()
	}

	return e.mergedAction(before)
}

// noKeyEvent is the synthetic event the re-match loop fires after an RHS
// has mutated the composing buffer: it carries no virtual key and no
// character, so only SWITCH-gated, no-character-needed rules (step 5's
// target) can match it.
var noKeyEvent = match.KeyEvent{VK: vkey.Null}

// fireResult describes what one successful match+execute pass did, enough
// for the caller to decide whether the re-match loop should continue.
type fireResult struct {
	switchOnly bool
}

// fireWithRollback tries one match+execute pass, restoring the prior
// buffer state if Execute reports an internal error (a malformed layout
// the decoder's bounds checks should already have rejected; this is a
// defensive backstop, not the primary error-reporting path).
func (e *Engine) fireWithRollback(event match.KeyEvent) (fireResult, bool) {
	snap := e.buf.Clone()

	m, ok := match.Try(e.layout, e.buf, event)
	if !ok {
		return fireResult{}, false
	}

	res, err := rhsexec.Execute(e.layout, m.RHS, m.Captures)
	if err != nil {
		e.buf.Restore(snap)
		e.logExecError(err)
		return fireResult{}, false
	}
	e.lastRule = m.RuleIndex

	retained := e.buf.Len() - m.ConsumedUnits
	e.buf.Truncate(retained)
	if truncated := e.buf.Append(utf16.Encode([]rune(res.Text))); truncated {
		e.logOverflow()
	}
	for _, idx := range res.Activated {
		e.buf.SetSwitch(idx)
	}

	return fireResult{switchOnly: rhsIsSwitchOnly(m.RHS)}, true
}

func rhsIsSwitchOnly(rhs []km2.RhsOp) bool {
	if len(rhs) == 0 {
		return false
	}
	for _, op := range rhs {
		if _, ok := op.(km2.RhsSwitch); !ok {
			return false
		}
	}
	return true
}

// noMatch implements spec.md §4.6 steps 2-3: default-insertion fallback,
// the auto-backspace exception, or a plain passthrough.
func (e *Engine) noMatch(event match.KeyEvent) EditAction {
	opts := e.layout.Options

	if event.VK == vkey.Back && opts.AutoBksp {
		e.buf.DeleteTrailingCodePoint()
		return EditAction{Kind: ActionDelete, DeleteCount: 1, ComposingAfter: e.buf.Text(), Consumed: true}
	}

	if match.CharacterEventUsable(event, opts) {
		ch := *event.Character
		if truncated := e.buf.Append(utf16.Encode([]rune{ch})); truncated {
			e.logOverflow()
		}
		return EditAction{Kind: ActionInsert, Text: string(ch), ComposingAfter: e.buf.Text(), Consumed: true}
	}

	return EditAction{Kind: ActionNone, ComposingAfter: e.buf.Text(), Consumed: false}
}

// mergedAction compares the composing buffer before this ProcessKey call
// to its state now, collapsing however many re-match iterations ran into
// a single edit relative to the original buffer (spec.md §4.6 step 6).
func (e *Engine) mergedAction(before []uint16) EditAction {
	after := e.buf.Units()
	retained := commonPrefixLen(before, after)

	deleteCount := codePointCount(before[retained:])
	insertText := string(utf16.Decode(after[retained:]))

	kind := ActionDeleteThenInsert
	switch {
	case deleteCount == 0 && insertText == "":
		kind = ActionNone
	case deleteCount == 0:
		kind = ActionInsert
	case insertText == "":
		kind = ActionDelete
	}

	return EditAction{
		Kind:           kind,
		Text:           insertText,
		DeleteCount:    deleteCount,
		ComposingAfter: e.buf.Text(),
		Consumed:       true,
	}
}

func commonPrefixLen(a, b []uint16) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func codePointCount(units []uint16) int {
	return len(utf16.Decode(units))
}

func (e *Engine) logOverflow() {
	if e.logger != nil {
		e.logger.Warn("composing buffer exceeded cap, truncated from head", "cap", e.bufCap)
	}
}

func (e *Engine) logRematchBudget() {
	if e.logger != nil {
		e.logger.Warn("re-match iteration budget exhausted", "budget", e.rematchBudget)
	}
}

func (e *Engine) logExecError(err error) {
	if e.logger != nil {
		e.logger.Error("rhs execution failed, rule ignored", "error", err)
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
