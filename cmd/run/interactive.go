package main

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	lua "github.com/yuin/gopher-lua"

	"github.com/DemiDroL/lua-runtime/errors"
	"github.com/DemiDroL/lua-runtime/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type replModel struct {
	err      error
	state    *runtime.State
	filename string
	input    textinput.Model
	history  []replEntry
}

type replEntry struct {
	source string
	output string
	isErr  bool
}

const historyLimit = 20

func newReplModel(filename string) *replModel {
	ti := textinput.New()
	ti.Prompt = "lua> "
	ti.Width = 60
	ti.Focus()
	return &replModel{
		filename: filename,
		input:    ti,
	}
}

type loadedMsg struct {
	err   error
	state *runtime.State
}

type evalResultMsg struct {
	source string
	output string
	isErr  bool
}

func (m *replModel) Init() tea.Cmd {
	return m.loadState
}

func (m *replModel) loadState() tea.Msg {
	s, err := runtime.New(nil)
	if err != nil {
		return loadedMsg{err: err}
	}

	if m.filename != "" {
		if err := s.DoFile(m.filename); err != nil {
			s.Close()
			return loadedMsg{err: err}
		}
	}

	return loadedMsg{state: s}
}

func (m *replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			if m.state != nil {
				m.state.Close()
			}
			return m, tea.Quit

		case "enter":
			source := strings.TrimSpace(m.input.Value())
			if source == "" {
				return m, nil
			}
			m.input.SetValue("")
			return m, m.eval(source)
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.state = msg.state

	case evalResultMsg:
		m.history = append(m.history, replEntry{
			source: msg.source,
			output: msg.output,
			isErr:  msg.isErr,
		})
		if len(m.history) > historyLimit {
			m.history = m.history[len(m.history)-historyLimit:]
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *replModel) eval(source string) tea.Cmd {
	return func() tea.Msg {
		if m.state == nil {
			return evalResultMsg{source: source, output: "state not ready", isErr: true}
		}

		results, err := evalLine(m.state, source)
		if err != nil {
			return evalResultMsg{source: source, output: formatError(err), isErr: true}
		}
		return evalResultMsg{source: source, output: results}
	}
}

// evalLine compiles the line as an expression first, so `1 + 1` prints 2
// without an explicit return, and falls back to statement form.
func evalLine(s *runtime.State, source string) (string, error) {
	fn, err := s.LoadString("return " + source)
	if err != nil {
		if fn, err = s.LoadString(source); err != nil {
			return "", err
		}
	}

	base := s.GetTop()
	s.Push(fn)
	if err := s.Call(0, lua.MultRet, nil); err != nil {
		s.SetTop(base)
		return "", err
	}

	var parts []string
	for i := base + 1; i <= s.GetTop(); i++ {
		str, err := s.ToString(s.Get(i))
		if err != nil {
			str = s.Get(i).String()
		}
		parts = append(parts, str)
	}
	s.SetTop(base)
	return strings.Join(parts, "\t"), nil
}

func formatError(err error) string {
	var be *errors.Error
	if stderrors.As(err, &be) {
		return kindStyle.Render(fmt.Sprintf("[%s/%s]", be.Phase, be.Kind)) + " " + err.Error()
	}
	return err.Error()
}

func (m *replModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress ctrl+c to quit.", m.err))
	}

	if m.state == nil {
		return "Starting interpreter..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Lua REPL"))
	if m.filename != "" {
		b.WriteString(" ")
		b.WriteString(m.filename)
	}
	b.WriteString("\n\n")

	for _, e := range m.history {
		b.WriteString(promptStyle.Render("lua> "))
		b.WriteString(e.source)
		b.WriteString("\n")
		if e.output != "" {
			if e.isErr {
				b.WriteString(errorStyle.Render(e.output))
			} else {
				b.WriteString(resultStyle.Render(e.output))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter eval • ctrl+c quit"))

	return b.String()
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newReplModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
