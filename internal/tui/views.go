package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gmxflow/gmxflow/internal/analysis"
	"github.com/gmxflow/gmxflow/internal/fsutil"
	"github.com/gmxflow/gmxflow/internal/settings"
	"github.com/gmxflow/gmxflow/internal/step"
	"github.com/gmxflow/gmxflow/internal/util"
)

const banner = `
  ____ _ __ ___ __  __ ___| | _____      __
 /  _ | '_ ' _ \\ \/ // _ \ |/ _ \ \ /\ / /
|  (_|| | | | | |>  <|  _/| | (_) \ V  V /
 \__, |_| |_| |_/_/\_\\__||_|\___/ \_/\_/
 |___/`

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	var body string
	switch m.screen {
	case screenMenu:
		body = m.viewMenu()
	case screenRun:
		body = m.viewRun()
	case screenAnalysis:
		body = m.viewAnalysis()
	case screenSettings:
		body = m.viewSettings()
	case screenFiles:
		body = m.viewFiles()
	case screenVisualize:
		body = m.viewVisualize()
	case screenHelp:
		body = m.viewHelp()
	}

	if m.pending != nil {
		body = m.viewConfirm()
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.viewMessages(), m.viewHelpBar())
}

func (m Model) viewMenu() string {
	var b strings.Builder
	b.WriteString(m.styles.Banner.Render(banner))
	b.WriteString("\n")
	b.WriteString(m.styles.Subtitle.Render("  GROMACS MD pipeline  ·  " + m.workdir))
	b.WriteString("\n\n")

	for i, s := range m.registry.All() {
		glyph, style := m.stepGlyph(s)
		line := fmt.Sprintf(" %s [%d] %s", glyph, s.ID, s.Name)
		if i == m.cursor {
			line = m.styles.Selected.Render(line)
		} else {
			line = style.Render(line)
		}
		b.WriteString(line)
		if msg, failed := m.lastErrors[s.ID]; failed && i == m.cursor {
			b.WriteString(m.styles.Error.Render("  " + msg))
		}
		b.WriteString("\n")
		if m.cfg.TUI.ShowCommandPreview && i == m.cursor {
			preview := util.TruncateString(s.Command, max(m.width-10, 20))
			b.WriteString(m.styles.Muted.Render("      $ " + preview))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// stepGlyph picks the status marker for one step from the store and
// the in-flight run.
func (m Model) stepGlyph(s step.Step) (string, lipgloss.Style) {
	switch {
	case m.running && !m.runningAll && m.runningStep == s.ID:
		return "●", m.styles.StepRunning
	case m.store.IsComplete(s.ID):
		return "✓", m.styles.StepComplete
	default:
		if _, failed := m.lastErrors[s.ID]; failed {
			return "✗", m.styles.StepError
		}
		if canRun, _, err := m.controller.Gate(s.ID); err == nil && !canRun {
			return "·", m.styles.StepBlocked
		}
		return "·", m.styles.StepPending
	}
}

func (m Model) viewRun() string {
	var b strings.Builder
	title := "Output"
	if m.running {
		if m.runningAll {
			title = "Running full pipeline..."
		} else {
			s, err := m.registry.Lookup(m.runningStep)
			if err == nil {
				title = fmt.Sprintf("Running Step %d: %s", s.ID, s.Name)
			}
		}
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n\n")

	lines := m.output
	if max := m.outputViewHeight(); len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

func (m Model) outputViewHeight() int {
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

func (m Model) viewAnalysis() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Analysis Tools"))
	b.WriteString("\n\n")

	if ready, missing := m.analysis.Ready(); !ready {
		b.WriteString(m.styles.Warning.Render("Missing MD output files: " + strings.Join(missing, ", ")))
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render("Analysis may fail until the production MD step has run."))
		b.WriteString("\n\n")
	}

	for i, tool := range analysis.Tools() {
		line := fmt.Sprintf(" [%d] %-26s → %s", i+1, tool.Name, tool.Output)
		if i == m.cursor {
			line = m.styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewSettings() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Simulation Settings"))
	b.WriteString("\n\n")

	for i, key := range settings.Keys() {
		value := fmt.Sprint(m.settings.Get(key))
		line := fmt.Sprintf(" %-16s %s", key, value)
		if i == m.cursor {
			if m.editingSetting {
				line = fmt.Sprintf(" %-16s %s", key, m.settingInput.View())
			} else {
				line = m.styles.Selected.Render(line)
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(fmt.Sprintf(
		"Production MD: %d steps (%.2f ns at %.3f ps/step)",
		m.settings.MDSteps(), m.settings.MDLengthNS(), m.settings.Timestep())))
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewFiles() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Input Files"))
	b.WriteString("\n\n")

	found, missing := fsutil.CheckFiles(m.workdir, step.MandatoryInputs)
	for _, name := range found {
		size := fsutil.HumanSize(filepath.Join(m.workdir, name))
		b.WriteString(m.styles.Success.Render(" ✓ ") + fmt.Sprintf("%-22s %s\n", name, m.styles.Muted.Render(size)))
	}
	for _, name := range missing {
		b.WriteString(m.styles.Error.Render(" ✗ ") + name + "\n")
	}

	if len(missing) > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.Warning.Render("Place the missing files in the working directory before running the pipeline."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewVisualize() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Visualization"))
	b.WriteString("\n\n")

	if ok, path := m.visualize.VMDAvailable(); ok {
		b.WriteString(m.styles.Success.Render(" ✓ ") + "VMD  " + m.styles.Muted.Render(path) + "\n")
	} else {
		b.WriteString(m.styles.Error.Render(" ✗ ") + "VMD not found\n")
	}
	if ok, tool := m.visualize.GraceAvailable(); ok {
		b.WriteString(m.styles.Success.Render(" ✓ ") + tool + "\n")
	} else {
		b.WriteString(m.styles.Error.Render(" ✗ ") + "xmgrace not found\n")
	}
	b.WriteString("\n")

	xvg := m.visualize.XVGFiles()
	if len(xvg) == 0 {
		b.WriteString(m.styles.Muted.Render("No .xvg files yet. Run an analysis first."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.styles.Subtitle.Render("Plots:"))
		b.WriteString("\n")
		for i, name := range xvg {
			line := "   " + name
			if i == m.cursor {
				line = m.styles.Selected.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) viewConfirm() string {
	p := m.pending
	var b strings.Builder

	switch p.stage {
	case confirmOverwrite:
		b.WriteString(m.styles.Warning.Render(fmt.Sprintf("Step %d: %s", p.step.ID, p.step.Name)))
		b.WriteString("\n\n")
		b.WriteString("Output files already exist:\n")
		for _, f := range p.existing {
			b.WriteString("  " + f + "\n")
		}
		b.WriteString("\nRe-run and overwrite them? ")
	case confirmManual:
		mi := p.step.Manual
		b.WriteString(m.styles.Warning.Render("Manual intervention required"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("Before step %d runs, edit %s:\n", p.step.ID, mi.File))
		for _, action := range mi.Actions {
			b.WriteString("  - " + action + "\n")
		}
		b.WriteString("\nDone editing, proceed? ")
	}
	b.WriteString(m.styles.KeyHint.Render("[y/n]"))

	return m.styles.Panel.Render(b.String())
}

func (m Model) viewHelp() string {
	rows := []struct{ key, desc string }{
		{"1-9 / enter", "run the numbered or selected step"},
		{"j/k", "move selection"},
		{"p", "run the full pipeline (halts at the first failure)"},
		{"d / D", "dry-run the selected step / the full pipeline"},
		{"r", "reset all completion flags"},
		{"a", "analysis tools"},
		{"s", "simulation settings (g regenerates .mdp files)"},
		{"f", "input file check"},
		{"v", "visualization (m launches VMD)"},
		{"o", "show last run output"},
		{"q / esc", "back, or quit from the main menu"},
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf(" %s  %s\n", m.styles.KeyHint.Render(fmt.Sprintf("%-12s", r.key)), r.desc))
	}
	return b.String()
}

func (m Model) viewMessages() string {
	width := max(m.width-2, 20)
	switch {
	case m.errorMessage != "":
		return util.TruncateANSI(m.styles.Error.Render(m.errorMessage), width)
	case m.infoMessage != "":
		return util.TruncateANSI(m.styles.Info.Render(m.infoMessage), width)
	}
	return ""
}

func (m Model) viewHelpBar() string {
	var hints string
	switch m.screen {
	case screenMenu:
		hints = "[1-9] run step · [p] pipeline · [d] dry-run · [a]nalysis · [s]ettings · [f]iles · [v]iew · [?] help · [q]uit"
	case screenSettings:
		if m.editingSetting {
			hints = "[enter] save · [esc] cancel"
		} else {
			hints = "[enter] edit · [g] write .mdp files · [q] back"
		}
	case screenAnalysis:
		hints = "[1-4/enter] run analysis · [q] back"
	case screenVisualize:
		hints = "[enter] plot with xmgrace · [m] launch VMD · [q] back"
	default:
		hints = "[q] back · [?] help"
	}
	return m.styles.HelpBar.Render(hints)
}
