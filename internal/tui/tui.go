// Package tui provides the Bubble Tea front end for ethwallet sessions.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ethwallet/ethwallet/internal/session"
)

const (
	menuWidth  = 72
	inputWidth = 66
)

// menuItem adapts a session option to the list component.
type menuItem struct {
	opt session.Option
}

func (i menuItem) Title() string       { return i.opt.Title }
func (i menuItem) Description() string { return i.opt.Description }
func (i menuItem) FilterValue() string { return i.opt.Title }

// menuModel lets the user pick one option.
type menuModel struct {
	list   list.Model
	choice string
	err    error
}

func newMenuModel(title string, options []session.Option) menuModel {
	items := make([]list.Item, len(options))
	for i, o := range options {
		items[i] = menuItem{opt: o}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	height := len(options)*(delegate.Height()+delegate.Spacing()) + 4

	l := list.New(items, delegate, menuWidth, height)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Styles.Title = titleStyle

	return menuModel{list: l}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(min(msg.Width, menuWidth))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.err = session.ErrAborted
			return m, tea.Quit
		case "esc":
			m.err = session.ErrCancelled
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(menuItem); ok {
				m.choice = item.opt.Key
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m menuModel) View() string {
	if m.choice != "" || m.err != nil {
		return ""
	}
	help := KeyHints(KeyHint("↑/↓", "move"), KeyHint("enter", "select"), KeyHint("esc", "back"), KeyHint("q", "quit"))
	return m.list.View() + "\n" + helpStyle.Render(help)
}

// inputModel reads one line of text.
type inputModel struct {
	prompt string
	input  textinput.Model
	value  string
	done   bool
	err    error
}

func newInputModel(prompt, placeholder string) inputModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Width = inputWidth
	ti.TextStyle = TextBright
	ti.PlaceholderStyle = TextMuted
	ti.Focus()

	return inputModel{prompt: prompt, input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC:
			m.err = session.ErrAborted
			return m, tea.Quit
		case tea.KeyEsc:
			m.err = session.ErrCancelled
			return m, tea.Quit
		case tea.KeyEnter:
			m.value = strings.TrimSpace(m.input.Value())
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.err != nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(promptStyle.Render(m.prompt))
	b.WriteString("\n  ")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(KeyHints(KeyHint("enter", "confirm"), KeyHint("esc", "back"))))
	return b.String()
}

// confirmModel asks a yes/no question. Enter alone answers no.
type confirmModel struct {
	prompt string
	answer bool
	done   bool
	err    error
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c":
		m.err = session.ErrAborted
	case "esc":
		m.err = session.ErrCancelled
	case "y", "Y":
		m.answer, m.done = true, true
	case "n", "N", "enter":
		m.answer, m.done = false, true
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m confirmModel) View() string {
	if m.done || m.err != nil {
		return ""
	}
	return box(ColorBorder, TextBright, m.prompt, "", 0) + " " + TextWarning.Render("[y/N]") + "\n" +
		helpStyle.Render(KeyHints(KeyHint("y", "yes"), KeyHint("n", "no"), KeyHint("esc", "back")))
}

// Prompter runs each prompt as a short Bubble Tea program on a terminal.
type Prompter struct {
	in   io.Reader
	out  io.Writer
	opts []tea.ProgramOption
}

// New returns a Prompter reading keys from in and drawing on out.
func New(in io.Reader, out io.Writer, opts ...tea.ProgramOption) *Prompter {
	return &Prompter{in: in, out: out, opts: opts}
}

// Choose implements session.Prompter.
func (p *Prompter) Choose(ctx context.Context, title string, options []session.Option) (string, error) {
	if len(options) == 0 {
		return "", errors.New("menu has no options")
	}
	final, err := p.run(ctx, newMenuModel(title, options))
	if err != nil {
		return "", err
	}
	m := final.(menuModel)
	if m.err != nil {
		return "", m.err
	}
	return m.choice, nil
}

// Input implements session.Prompter.
func (p *Prompter) Input(ctx context.Context, prompt, placeholder string) (string, error) {
	final, err := p.run(ctx, newInputModel(prompt, placeholder))
	if err != nil {
		return "", err
	}
	m := final.(inputModel)
	if m.err != nil {
		return "", m.err
	}
	return m.value, nil
}

// Confirm implements session.Prompter.
func (p *Prompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	final, err := p.run(ctx, confirmModel{prompt: prompt})
	if err != nil {
		return false, err
	}
	m := final.(confirmModel)
	if m.err != nil {
		return false, m.err
	}
	return m.answer, nil
}

// Info implements session.Prompter.
func (p *Prompter) Info(text string) {
	title, body := splitTitle(text)
	fmt.Fprintln(p.out, InfoBox(title, body, 0))
}

// Error implements session.Prompter.
func (p *Prompter) Error(text string) {
	title, body := splitTitle(text)
	fmt.Fprintln(p.out, ErrorBox(title, body, 0))
}

func (p *Prompter) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	opts := append([]tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	}, p.opts...)

	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil, fmt.Errorf("%w: %v", session.ErrAborted, err)
		}
		return nil, fmt.Errorf("terminal prompt failed: %w", err)
	}
	return final, nil
}
