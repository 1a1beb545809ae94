package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"autolav/internal/auth"
	"autolav/internal/backend"
	"autolav/internal/collect"
	"autolav/internal/export"
	"autolav/internal/ux"
)

// Deps wires the orchestration stack into the screen. The model only
// ever reads run state through Runner snapshots and events.
type Deps struct {
	Client *backend.Client
	Gate   *auth.Gate
	Runner *collect.Runner
	Forms  *ux.FormStore
	Sink   export.Sink
}

const (
	fieldUnits = iota
	fieldStart
	fieldEnd
	fieldCount
)

type phase int

const (
	phaseForm phase = iota
	phaseAwaiting
	phaseStreaming
)

// Messages

type bootMsg struct {
	version  string
	state    auth.State
	username string
	err      error
}

type discoverMsg struct {
	units []backend.UnitInfo
	err   error
}

type runEventMsg struct {
	ev collect.Event
	ch <-chan collect.Event
}

type runClosedMsg struct{}

type exportedMsg struct {
	path string
	err  error
}

// Model is the bubbletea model for the collection screen.
type Model struct {
	deps   Deps
	styles Styles

	inputs  [fieldCount]textinput.Model
	focus   int
	phase   phase
	spin    spinner.Model
	prog    progress.Model
	width   int

	// Backend status
	version   string
	gateState auth.State
	username  string

	// Current/last run
	results []backend.UnitResult
	current int
	total   int
	summary collect.Summary

	notice string // transient info line
	errMsg string // sticky error banner
}

// New builds the screen with the saved form values pre-filled.
func New(deps Deps) Model {
	var inputs [fieldCount]textinput.Model

	units := textinput.New()
	units.Placeholder = "101, 102; 103"
	units.CharLimit = 512
	units.Width = 48
	inputs[fieldUnits] = units

	start := textinput.New()
	start.Placeholder = "2025-01-01"
	start.CharLimit = 10
	start.Width = 14
	inputs[fieldStart] = start

	end := textinput.New()
	end.Placeholder = "2025-01-07"
	end.CharLimit = 10
	end.Width = 14
	inputs[fieldEnd] = end

	saved := deps.Forms.Get()
	inputs[fieldUnits].SetValue(saved.Units)
	inputs[fieldStart].SetValue(saved.StartDate)
	inputs[fieldEnd].SetValue(saved.EndDate)

	inputs[fieldUnits].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		deps:      deps,
		styles:    DefaultStyles(),
		inputs:    inputs,
		spin:      sp,
		prog:      progress.New(progress.WithDefaultGradient()),
		width:     80,
		gateState: auth.StateUnknown,
	}
}

// Init kicks off the startup probes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, m.bootCmd())
}

// bootCmd probes health and credentials concurrently.
func (m Model) bootCmd() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		var version string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			h, err := deps.Client.Health(gctx)
			if err != nil {
				return err
			}
			version = h.Version
			return nil
		})
		g.Go(func() error {
			_, err := deps.Gate.Refresh(gctx)
			return err
		})
		err := g.Wait()
		return bootMsg{
			version:  version,
			state:    deps.Gate.State(),
			username: deps.Gate.Username(),
			err:      err,
		}
	}
}

func (m Model) discoverCmd() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		resp, err := deps.Client.DiscoverUnits(ctx)
		if err != nil {
			return discoverMsg{err: err}
		}
		return discoverMsg{units: resp.Units}
	}
}

func waitForEvent(ch <-chan collect.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return runClosedMsg{}
		}
		return runEventMsg{ev: ev, ch: ch}
	}
}

func (m Model) exportCmd() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		snap := deps.Runner.Snapshot()
		if len(snap.Results) == 0 {
			return exportedMsg{err: fmt.Errorf("nothing to export yet")}
		}
		data, err := export.Render(snap.Results)
		if err != nil {
			return exportedMsg{err: err}
		}
		path, err := deps.Sink.Save(export.Filename(snap.Range, time.Now()), data)
		return exportedMsg{path: path, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.prog.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case bootMsg:
		m.version = msg.version
		m.gateState = msg.state
		m.username = msg.username
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		}
		return m, nil

	case discoverMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("discovery failed: %v", msg.err)
			return m, nil
		}
		ids := make([]string, len(msg.units))
		for i, u := range msg.units {
			ids[i] = u.UnitID
		}
		m.inputs[fieldUnits].SetValue(strings.Join(ids, ", "))
		m.notice = fmt.Sprintf("discovered %d units", len(msg.units))
		return m, nil

	case runEventMsg:
		return m.handleRunEvent(msg)

	case runClosedMsg:
		if m.phase != phaseForm {
			m.phase = phaseForm
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("export failed: %v", msg.err)
		} else {
			m.notice = "exported to " + msg.path
		}
		return m, nil
	}

	return m, m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.deps.Runner.Cancel()
		return m, tea.Quit

	case "esc":
		if m.phase != phaseForm {
			m.deps.Runner.Cancel()
			return m, nil
		}
		return m, tea.Quit

	case "tab", "shift+tab":
		if m.phase != phaseForm {
			return m, nil
		}
		if msg.String() == "tab" {
			m.focus = (m.focus + 1) % fieldCount
		} else {
			m.focus = (m.focus + fieldCount - 1) % fieldCount
		}
		cmds := make([]tea.Cmd, 0, 1)
		for i := range m.inputs {
			if i == m.focus {
				cmds = append(cmds, m.inputs[i].Focus())
			} else {
				m.inputs[i].Blur()
			}
		}
		return m, tea.Batch(cmds...)

	case "ctrl+d":
		if m.phase == phaseForm {
			m.notice = "discovering units..."
			return m, m.discoverCmd()
		}
		return m, nil

	case "ctrl+e":
		// Export works mid-stream too: it reads a stable snapshot.
		return m, m.exportCmd()

	case "enter":
		if m.phase != phaseForm {
			return m, nil
		}
		return m.startRun()
	}

	return m, m.updateInputs(msg)
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	m.errMsg = ""
	m.notice = ""

	form := ux.FormState{
		Units:     m.inputs[fieldUnits].Value(),
		StartDate: m.inputs[fieldStart].Value(),
		EndDate:   m.inputs[fieldEnd].Value(),
	}

	dr := collect.DateRange{Start: form.StartDate, End: form.EndDate}
	events, err := m.deps.Runner.Start(context.Background(), form.Units, dr)
	if err != nil {
		m.errMsg = err.Error()
		return m, nil
	}

	// Only a run that actually started is worth remembering.
	if err := m.deps.Forms.Save(form); err != nil {
		m.notice = fmt.Sprintf("form not saved: %v", err)
	}

	m.phase = phaseAwaiting
	m.results = nil
	m.current = 0
	m.total = 0
	m.summary = collect.Summary{}
	return m, tea.Batch(m.spin.Tick, waitForEvent(events))
}

func (m Model) handleRunEvent(msg runEventMsg) (tea.Model, tea.Cmd) {
	ev := msg.ev
	switch ev.Type {
	case collect.EventDelivery:
		m.phase = phaseStreaming
		m.results = append(m.results, ev.Result)
		m.current = ev.Current
		m.total = ev.Total
		// Recomputed from the sequence on every delivery, never
		// cached incrementally.
		m.summary = collect.Summarize(m.results)

	case collect.EventDone:
		m.phase = phaseForm
		if ev.Cancelled {
			m.notice = fmt.Sprintf("run cancelled after %d of %d units", ev.Current, ev.Total)
		} else {
			m.notice = fmt.Sprintf("run complete: %d units", ev.Total)
		}

	case collect.EventFailed:
		m.phase = phaseForm
		m.results = nil
		m.summary = collect.Summary{}
		m.errMsg = ev.Err.Error()
	}

	return m, waitForEvent(msg.ch)
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, fieldCount)
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return tea.Batch(cmds...)
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("AutoLav · weight collection"))
	b.WriteString("\n")
	b.WriteString(m.styles.Status.Render(m.statusLine()))
	b.WriteString("\n\n")

	b.WriteString(m.styles.Label.Render("Units  ") + m.inputs[fieldUnits].View() + "\n")
	b.WriteString(m.styles.Label.Render("Start  ") + m.inputs[fieldStart].View() + "\n")
	b.WriteString(m.styles.Label.Render("End    ") + m.inputs[fieldEnd].View() + "\n\n")

	switch m.phase {
	case phaseAwaiting:
		b.WriteString(m.spin.View() + " waiting for backend...\n\n")
	case phaseStreaming:
		pct := 0.0
		if m.total > 0 {
			pct = float64(m.current) / float64(m.total)
		}
		b.WriteString(fmt.Sprintf("%s %d/%d\n\n", m.prog.ViewAs(pct), m.current, m.total))
	}

	for _, r := range m.results {
		if r.Failed() {
			b.WriteString(m.styles.Error.Render(fmt.Sprintf("  ✗ %s: %s", r.UnitID, r.Error)))
		} else {
			b.WriteString(m.styles.Success.Render(
				fmt.Sprintf("  ✓ %s: %s kg (%d days)", r.UnitID, r.Total.StringFixed(2), len(r.Rows))))
		}
		b.WriteString("\n")
	}

	if m.summary.Units > 0 {
		b.WriteString(m.styles.Summary.Render(fmt.Sprintf(
			"%d units · %d ok · %d failed · total %s kg",
			m.summary.Units, m.summary.Succeeded, m.summary.Failed,
			m.summary.GrandTotal.StringFixed(2))))
		b.WriteString("\n")
	}

	if m.errMsg != "" {
		b.WriteString("\n" + m.styles.Error.Render("error: "+m.errMsg) + "\n")
	}
	if m.notice != "" {
		b.WriteString("\n" + m.styles.Status.Render(m.notice) + "\n")
	}

	b.WriteString("\n" + m.styles.Help.Render(
		"tab: next field · enter: start · ctrl+d: discover · ctrl+e: export · esc: cancel/quit"))
	return b.String()
}

func (m Model) statusLine() string {
	backendPart := "backend: unreachable"
	if m.version != "" {
		backendPart = "backend: v" + m.version
	}
	gatePart := "credentials: " + string(m.gateState)
	if m.gateState == auth.StatePresent && m.username != "" {
		gatePart = "credentials: " + m.username
	}
	return backendPart + " · " + gatePart
}
