package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/metapath/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateInputName
	stateShowResult
)

type action int

const (
	actionFind action = iota
	actionLoad
)

type interactiveModel struct {
	err      error
	env      *environment
	title    string
	result   string
	entries  []registry.Entry
	input    textinput.Model
	selected int
	pending  action
	state    modelState
}

type resultMsg struct {
	err    error
	title  string
	result string
}

func newInteractiveModel(env *environment) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "package.module"
	ti.Prompt = "module: "
	ti.Width = 40

	return &interactiveModel{
		env:     env,
		entries: env.entries(),
		input:   ti,
		state:   stateBrowse,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateInputName {
			return m.updateInput(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateBrowse && m.selected < len(m.entries)-1 {
				m.selected++
			}

		case "f":
			if m.state == stateBrowse && len(m.entries) > 0 {
				return m, m.find(m.entries[m.selected].Name)
			}

		case "enter", "l":
			switch m.state {
			case stateBrowse:
				if len(m.entries) > 0 {
					return m, m.load(m.entries[m.selected].Name)
				}
			case stateShowResult:
				m.reset()
			}

		case "/", "F":
			if m.state == stateBrowse {
				m.pending = actionLoad
				if msg.String() == "F" {
					m.pending = actionFind
				}
				m.input.SetValue("")
				m.input.Focus()
				m.state = stateInputName
				return m, textinput.Blink
			}

		case "esc":
			if m.state == stateShowResult {
				m.reset()
			}
		}

	case resultMsg:
		m.title = msg.title
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	return m, nil
}

func (m *interactiveModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.input.Blur()
		m.state = stateBrowse
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		if name == "" {
			m.state = stateBrowse
			return m, nil
		}
		if m.pending == actionFind {
			return m, m.find(name)
		}
		return m, m.load(name)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) reset() {
	m.state = stateBrowse
	m.title = ""
	m.result = ""
	m.err = nil
}

func (m *interactiveModel) find(name string) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{title: "find " + name, result: m.env.describeFind(name)}
	}
}

func (m *interactiveModel) load(name string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.env.describeLoad(context.Background(), name)
		return resultMsg{title: "import " + name, result: out, err: err}
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("metapath"))
	b.WriteString(" ")
	b.WriteString(m.env.manifest.Path())
	b.WriteString(" ")
	b.WriteString(kindStyle.Render(m.env.manifest.Variant().Name))
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse:
		if len(m.entries) == 0 {
			b.WriteString("Module table is empty.\n")
		}
		for i, e := range m.entries {
			line := m.formatEntry(e)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter import • f find • / import by name • F find by name • q quit"))

	case stateInputName:
		verb := "Import"
		if m.pending == actionFind {
			verb = "Find"
		}
		b.WriteString(verb + " a module by name\n\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter run • esc back"))

	case stateShowResult:
		b.WriteString(nameStyle.Render(m.title))
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatEntry(e registry.Entry) string {
	s := nameStyle.Render(e.Name) + " " + kindStyle.Render(e.Kind().String())
	if e.IsPackage() {
		s += " " + kindStyle.Render("package")
	}
	if _, loaded := m.env.host.Modules().Get(e.Name); loaded {
		s += " " + resultStyle.Render("loaded")
	}
	return s
}

func runInteractive(env *environment) error {
	p := tea.NewProgram(newInteractiveModel(env), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
