package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gmxflow/gmxflow/internal/analysis"
	"github.com/gmxflow/gmxflow/internal/config"
	"github.com/gmxflow/gmxflow/internal/logging"
	"github.com/gmxflow/gmxflow/internal/mdp"
	"github.com/gmxflow/gmxflow/internal/pipeline"
	"github.com/gmxflow/gmxflow/internal/runner"
	"github.com/gmxflow/gmxflow/internal/settings"
	"github.com/gmxflow/gmxflow/internal/state"
	"github.com/gmxflow/gmxflow/internal/step"
	"github.com/gmxflow/gmxflow/internal/tui/styles"
	"github.com/gmxflow/gmxflow/internal/visualize"
)

// screen identifies which view the model is rendering.
type screen int

const (
	screenMenu screen = iota
	screenRun
	screenAnalysis
	screenSettings
	screenFiles
	screenVisualize
	screenHelp
)

// confirmStage tracks the pre-run confirmation flow for one step.
type confirmStage int

const (
	confirmNone confirmStage = iota
	confirmOverwrite
	confirmManual
)

// pendingRun carries a step through its confirmation prompts before
// execution starts.
type pendingRun struct {
	step     step.Step
	existing []string
	stage    confirmStage
}

// Model is the Bubbletea model for the pipeline dashboard.
type Model struct {
	cfg        *config.Config
	registry   *step.Registry
	controller *pipeline.Controller
	store      *state.Store
	detector   *state.Detector
	settings   *settings.Settings
	analysis   *analysis.Runner
	visualize  *visualize.Launcher
	logger     *logging.Logger
	workdir    string
	styles     styles.Styles

	// send delivers messages from execution goroutines into the
	// program loop. Set by App before the program starts.
	send func(tea.Msg)

	width  int
	height int
	ready  bool

	screen  screen
	cursor  int
	pending *pendingRun

	running     bool
	runningStep step.ID
	runningAll  bool
	output      []string
	lastErrors  map[step.ID]string

	editingSetting bool
	settingInput   textinput.Model

	infoMessage  string
	errorMessage string
	quitting     bool
}

// Deps bundles everything the dashboard operates on.
type Deps struct {
	Config     *config.Config
	Registry   *step.Registry
	Controller *pipeline.Controller
	Store      *state.Store
	Detector   *state.Detector
	Settings   *settings.Settings
	Analysis   *analysis.Runner
	Visualize  *visualize.Launcher
	Logger     *logging.Logger
	Workdir    string
}

// NewModel creates the dashboard model.
func NewModel(d Deps) Model {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 30

	logger := d.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	return Model{
		cfg:          d.Config,
		registry:     d.Registry,
		controller:   d.Controller,
		store:        d.Store,
		detector:     d.Detector,
		settings:     d.Settings,
		analysis:     d.Analysis,
		visualize:    d.Visualize,
		logger:       logger,
		workdir:      d.Workdir,
		styles:       styles.New(d.Config.TUI.Theme),
		send:         func(tea.Msg) {},
		lastErrors:   make(map[step.ID]string),
		settingInput: ti,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case stepLineMsg:
		m.appendOutput(string(msg))
		return m, nil

	case stepDoneMsg:
		m.running = false
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
			m.lastErrors[msg.id] = msg.err.Error()
		} else if msg.result != nil {
			if msg.result.Status == runner.StatusComplete {
				delete(m.lastErrors, msg.id)
				m.infoMessage = fmt.Sprintf("Step %d completed", msg.id)
			} else {
				m.lastErrors[msg.id] = fmt.Sprintf("exit code %d", msg.result.ExitCode)
				m.errorMessage = fmt.Sprintf("Step %d failed (exit code %d)", msg.id, msg.result.ExitCode)
			}
		}
		return m, nil

	case batchDoneMsg:
		m.running = false
		m.runningAll = false
		b := msg.batch
		if b.Halted != nil {
			detail := ""
			if b.Err != nil {
				detail = ": " + b.Err.Error()
			} else if b.Failure != nil {
				detail = fmt.Sprintf(" (exit code %d)", b.Failure.ExitCode)
				m.lastErrors[*b.Halted] = detail
			}
			m.errorMessage = fmt.Sprintf("Pipeline halted at step %d%s", *b.Halted, detail)
		} else if len(b.Failed) > 0 || len(b.Blocked) > 0 {
			for _, id := range b.Failed {
				m.lastErrors[id] = "failed"
			}
			m.errorMessage = fmt.Sprintf("Pipeline finished with %d failed, %d blocked step(s)",
				len(b.Failed), len(b.Blocked))
		} else {
			m.infoMessage = fmt.Sprintf("Pipeline finished: %d run, %d skipped", len(b.Ran), len(b.Skipped))
		}
		return m, nil

	case analysisDoneMsg:
		m.running = false
		if msg.result.Run.Status == runner.StatusComplete {
			m.infoMessage = fmt.Sprintf("%s complete: %s", msg.result.Tool.Name, msg.result.OutputFile)
		} else {
			m.errorMessage = fmt.Sprintf("%s failed (exit code %d)", msg.result.Tool.Name, msg.result.Run.ExitCode)
		}
		return m, nil

	case flagEventMsg:
		// Another process touched the completion flags. The step list
		// reads the store on every render, so a redraw is enough.
		if msg.event.Completed {
			delete(m.lastErrors, msg.event.StepID)
		}
		return m, nil
	}

	return m, nil
}

// appendOutput adds a line to the run view, trimming to the configured cap.
func (m *Model) appendOutput(line string) {
	m.output = append(m.output, line)
	if max := m.cfg.TUI.MaxOutputLines; max > 0 && len(m.output) > max {
		m.output = m.output[len(m.output)-max:]
	}
}

// handleKeypress processes keyboard input.
func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Settings edit field swallows everything except esc/enter.
	if m.screen == screenSettings && m.editingSetting {
		return m.handleSettingInput(msg)
	}

	// Confirmation prompts.
	if m.pending != nil {
		return m.handleConfirm(msg)
	}

	key := msg.String()

	// Global keys.
	switch key {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "q":
		if m.screen == screenMenu {
			m.quitting = true
			return m, tea.Quit
		}
		if !m.running {
			m.screen = screenMenu
			m.cursor = 0
			m.clearMessages()
		}
		return m, nil
	case "?":
		if m.screen == screenHelp {
			m.screen = screenMenu
		} else {
			m.screen = screenHelp
		}
		return m, nil
	case "esc":
		if !m.running && m.screen != screenMenu {
			m.screen = screenMenu
			m.cursor = 0
			m.clearMessages()
		}
		return m, nil
	}

	switch m.screen {
	case screenMenu:
		return m.handleMenuKey(key)
	case screenAnalysis:
		return m.handleAnalysisKey(key)
	case screenSettings:
		return m.handleSettingsKey(key)
	case screenVisualize:
		return m.handleVisualizeKey(key)
	}
	return m, nil
}

func (m Model) handleMenuKey(key string) (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}

	count := m.registry.Len()
	switch key {
	case "j", "down":
		if m.cursor < count-1 {
			m.cursor++
		}
		return m, nil
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(key[0] - '1')
		if idx < count {
			m.cursor = idx
			return m.prepareRun(m.registry.All()[idx])
		}
		return m, nil
	case "enter":
		if count > 0 {
			return m.prepareRun(m.registry.All()[m.cursor])
		}
		return m, nil
	case "p":
		return m.startPipeline()
	case "d":
		if count > 0 {
			return m.dryRunStep(m.registry.All()[m.cursor].ID)
		}
		return m, nil
	case "D":
		return m.dryRunAll()
	case "r":
		return m.resetState()
	case "a":
		m.screen = screenAnalysis
		m.cursor = 0
		m.clearMessages()
		return m, nil
	case "s":
		m.screen = screenSettings
		m.cursor = 0
		m.clearMessages()
		return m, nil
	case "f":
		m.screen = screenFiles
		m.clearMessages()
		return m, nil
	case "v":
		m.screen = screenVisualize
		m.cursor = 0
		m.clearMessages()
		return m, nil
	case "o":
		m.screen = screenRun
		return m, nil
	}
	return m, nil
}

// prepareRun walks the selected step through its confirmation prompts
// and launches it when nothing needs asking.
func (m Model) prepareRun(s step.Step) (tea.Model, tea.Cmd) {
	m.clearMessages()

	canRun, missing, err := m.controller.Gate(s.ID)
	if err != nil {
		m.errorMessage = err.Error()
		return m, nil
	}
	if !canRun {
		names := make([]string, len(missing))
		for i, id := range missing {
			dep, _ := m.registry.Lookup(id)
			names[i] = fmt.Sprintf("%d (%s)", id, dep.Name)
		}
		m.errorMessage = fmt.Sprintf("Step %d blocked. Complete first: %s", s.ID, strings.Join(names, ", "))
		return m, nil
	}

	p := &pendingRun{step: s}
	if m.cfg.Run.ConfirmOverwrite {
		if any, existing := m.detector.OutputsExist(s); any {
			p.existing = existing
			p.stage = confirmOverwrite
			m.pending = p
			return m, nil
		}
	}
	if s.Manual != nil {
		p.stage = confirmManual
		m.pending = p
		return m, nil
	}
	return m.launchStep(s)
}

// handleConfirm processes y/n input on the active confirmation prompt.
func (m Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.pending
	switch msg.String() {
	case "y", "Y", "enter":
		if p.stage == confirmOverwrite && p.step.Manual != nil {
			p.stage = confirmManual
			return m, nil
		}
		m.pending = nil
		return m.launchStep(p.step)
	case "n", "N", "esc", "q":
		m.pending = nil
		m.infoMessage = fmt.Sprintf("Step %d not run", p.step.ID)
		return m, nil
	}
	return m, nil
}

// launchStep dispatches the step. Interactive steps cede the terminal;
// captured steps stream their output into the run view.
func (m Model) launchStep(s step.Step) (tea.Model, tea.Cmd) {
	m.running = true
	m.runningStep = s.ID
	m.screen = screenRun
	m.output = nil

	if s.Interactive {
		return m, execStep(m.controller, s.ID)
	}

	send := m.send
	opts := pipeline.RunOptions{
		Sink: func(line string) { send(stepLineMsg(line)) },
	}
	ctrl := m.controller
	id := s.ID
	return m, func() tea.Msg {
		res, err := ctrl.RunStep(context.Background(), id, opts)
		return stepDoneMsg{id: id, result: res, err: err}
	}
}

// startPipeline runs the full catalog with the terminal ceded, so the
// interactive steps can prompt for group selections.
func (m Model) startPipeline() (tea.Model, tea.Cmd) {
	m.clearMessages()
	m.running = true
	m.runningAll = true
	m.screen = screenRun
	m.output = nil
	return m, execPipeline(m.controller, !m.cfg.Run.HaltOnError)
}

// dryRunStep previews a single step inline. Nothing is spawned, so the
// sink runs synchronously.
func (m Model) dryRunStep(id step.ID) (tea.Model, tea.Cmd) {
	m.clearMessages()
	m.output = nil
	var lines []string
	_, err := m.controller.RunStep(context.Background(), id, pipeline.RunOptions{
		DryRun: true,
		Sink:   func(line string) { lines = append(lines, line) },
	})
	if err != nil {
		m.errorMessage = err.Error()
		return m, nil
	}
	m.output = lines
	m.screen = screenRun
	return m, nil
}

func (m Model) dryRunAll() (tea.Model, tea.Cmd) {
	m.clearMessages()
	m.output = nil
	var lines []string
	m.controller.RunAll(context.Background(), pipeline.RunOptions{
		DryRun: true,
		Sink:   func(line string) { lines = append(lines, line) },
	})
	m.output = lines
	m.screen = screenRun
	return m, nil
}

func (m Model) resetState() (tea.Model, tea.Cmd) {
	if err := m.controller.Reset(); err != nil {
		m.errorMessage = fmt.Sprintf("Reset failed: %v", err)
	} else {
		m.lastErrors = make(map[step.ID]string)
		m.infoMessage = "All completion flags cleared"
	}
	return m, nil
}

func (m Model) handleAnalysisKey(key string) (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}
	tools := analysis.Tools()
	switch key {
	case "j", "down":
		if m.cursor < len(tools)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "1", "2", "3", "4":
		idx := int(key[0] - '1')
		if idx < len(tools) {
			m.cursor = idx
			return m.launchAnalysis(idx)
		}
	case "enter":
		return m.launchAnalysis(m.cursor)
	}
	return m, nil
}

// launchAnalysis runs one analysis tool with the terminal ceded, since
// GROMACS analysis commands prompt for group selections.
func (m Model) launchAnalysis(index int) (tea.Model, tea.Cmd) {
	if ready, missing := m.analysis.Ready(); !ready {
		m.errorMessage = "Missing MD output files: " + strings.Join(missing, ", ")
		return m, nil
	}
	m.clearMessages()
	m.running = true
	return m, execAnalysis(m.analysis, index)
}

func (m Model) handleSettingsKey(key string) (tea.Model, tea.Cmd) {
	keys := settings.Keys()
	switch key {
	case "j", "down":
		if m.cursor < len(keys)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter", "e":
		m.editingSetting = true
		m.settingInput.SetValue(fmt.Sprint(m.settings.Get(keys[m.cursor])))
		m.settingInput.CursorEnd()
		m.settingInput.Focus()
	case "g":
		return m.generateMDP()
	}
	return m, nil
}

func (m Model) handleSettingInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editingSetting = false
		m.settingInput.Blur()
		return m, nil
	case tea.KeyEnter:
		key := settings.Keys()[m.cursor]
		m.settings.Set(key, m.settingInput.Value())
		if err := m.settings.Save(); err != nil {
			m.errorMessage = fmt.Sprintf("Failed to save settings: %v", err)
		} else {
			m.infoMessage = fmt.Sprintf("Saved %s", key)
		}
		m.editingSetting = false
		m.settingInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.settingInput, cmd = m.settingInput.Update(msg)
	return m, cmd
}

func (m Model) generateMDP() (tea.Model, tea.Cmd) {
	results := mdp.GenerateAll(m.settings, m.workdir)
	var failed []string
	for file, err := range results {
		if err != nil {
			failed = append(failed, file)
		}
	}
	if len(failed) > 0 {
		m.errorMessage = "Failed to write: " + strings.Join(failed, ", ")
	} else {
		m.infoMessage = fmt.Sprintf("Wrote %d .mdp files", len(results))
	}
	return m, nil
}

func (m Model) handleVisualizeKey(key string) (tea.Model, tea.Cmd) {
	xvg := m.visualize.XVGFiles()
	switch key {
	case "j", "down":
		if m.cursor < len(xvg)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "m":
		if err := m.visualize.LaunchVMD("", ""); err != nil {
			m.errorMessage = err.Error()
		} else {
			m.infoMessage = "VMD launched"
		}
	case "enter":
		if len(xvg) == 0 {
			m.infoMessage = "No .xvg files to plot"
			return m, nil
		}
		if err := m.visualize.LaunchGrace(xvg[m.cursor]); err != nil {
			m.errorMessage = err.Error()
		} else {
			m.infoMessage = "xmgrace launched with " + xvg[m.cursor]
		}
	}
	return m, nil
}

func (m *Model) clearMessages() {
	m.infoMessage = ""
	m.errorMessage = ""
}
