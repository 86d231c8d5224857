package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blacktop/go-termimg"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/blacktop/robohashy/internal/opener"
	"github.com/blacktop/robohashy/internal/pipeline"
	"github.com/blacktop/robohashy/internal/robohash"
)

// savedStatusTimeout is how long a save confirmation stays on screen.
const savedStatusTimeout = 2 * time.Second

var protocols = map[string]termimg.Protocol{
	"auto":       termimg.Auto,
	"kitty":      termimg.Kitty,
	"iterm2":     termimg.ITerm2,
	"sixel":      termimg.Sixel,
	"halfblocks": termimg.Halfblocks,
}

var (
	accent       = lipgloss.Color("205")
	enabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	selected     = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(accent)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
)

type display struct {
	protocol termimg.Protocol
	width    int
	height   int
}

type model struct {
	ctx    context.Context
	logger *log.Logger

	keys      keyMap
	help      help.Model
	textInput textinput.Model
	spinner   spinner.Model

	intents   *intents
	listeners *listeners
	display   display

	styles []string
	style  int

	creation        pipeline.Creation
	hasCreation     bool
	preview         string
	generateEnabled bool
	saveEnabled     bool

	status    string
	statusErr bool
	statusID  int

	width  int
	height int
}

func newModel(ctx context.Context, logger *log.Logger, out *pipeline.Output, in *intents, d display, style robohash.StyleSet, seed string) model {
	ti := textinput.New()
	ti.Placeholder = "Enter a seed"
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.SetValue(seed)
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	return model{
		ctx:       ctx,
		logger:    logger,
		keys:      defaultKeyMap(),
		help:      help.New(),
		textInput: ti,
		spinner:   s,
		intents:   in,
		listeners: newListeners(out),
		display:   d,
		style:     style.Index(),
	}
}

func protocolFor(name string) termimg.Protocol {
	if p, ok := protocols[name]; ok {
		return p
	}
	return termimg.Auto
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, m.listeners.all()}
	if seed := m.textInput.Value(); seed != "" {
		m.intents.text.Publish(seed)
		m.intents.generate.Publish(struct{}{})
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.textInput.Width = max(int(float64(m.width)*0.4)-6, 10)
		if m.hasCreation && m.creation.State == pipeline.Loaded {
			return m, m.renderPreview()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case creationMsg:
		return m.creationChanged(pipeline.Creation(msg))

	case previewMsg:
		if !m.hasCreation || msg.generation != m.creation.Generation {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Error("Failed to render preview", "err", msg.err)
			m.setStatus(fmt.Sprintf("Couldn't show the avatar: %v", msg.err), true)
			return m, nil
		}
		m.preview = msg.view
		return m, nil

	case generateEnabledMsg:
		m.generateEnabled = bool(msg)
		return m, m.listeners.nextGenerateEnabled()

	case saveEnabledMsg:
		m.saveEnabled = bool(msg)
		return m, m.listeners.nextSaveEnabled()

	case styleOptionsMsg:
		m.styles = []string(msg)
		if m.style >= len(m.styles) {
			m.style = 0
		}
		return m, m.listeners.nextStyleOptions()

	case errorMsg:
		m.setStatus(string(msg), true)
		return m, m.listeners.nextError()

	case saveOutcomeMsg:
		cmds := []tea.Cmd{m.listeners.nextSaveOutcome()}
		if msg.Saved {
			m.logger.Info("Avatar saved", "location", msg.Location)
			cmds = append(cmds, m.setStatus("Saved to "+msg.Location, false))
		}
		return m, tea.Batch(cmds...)

	case openURLMsg:
		return m, tea.Batch(m.listeners.nextOpenURL(), openURL(m.ctx, string(msg)))

	case openedMsg:
		if msg.err != nil {
			m.logger.Error("Failed to open link", "url", msg.url, "err", msg.err)
			m.setStatus(fmt.Sprintf("Couldn't open %s", msg.url), true)
		}
		return m, nil

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Generate):
		m.intents.generate.Publish(struct{}{})
		return m, nil
	case key.Matches(msg, m.keys.NextStyle):
		m.cycleStyle(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevStyle):
		m.cycleStyle(-1)
		return m, nil
	case key.Matches(msg, m.keys.Save):
		if m.saveEnabled {
			m.intents.save.Publish(struct{}{})
		}
		return m, nil
	case key.Matches(msg, m.keys.About):
		m.intents.about.Publish(struct{}{})
		return m, nil
	case key.Matches(msg, m.keys.Help) && m.textInput.Value() == "":
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	before := m.textInput.Value()
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	if after := m.textInput.Value(); after != before {
		m.intents.text.Publish(after)
	}
	return m, cmd
}

func (m *model) cycleStyle(step int) {
	n := len(m.styles)
	if n == 0 {
		return
	}
	m.style = ((m.style+step)%n + n) % n
	m.intents.style.Publish(m.style)
}

func (m model) creationChanged(c pipeline.Creation) (tea.Model, tea.Cmd) {
	m.creation = c
	m.hasCreation = true
	m.preview = ""
	next := m.listeners.nextCreation()

	switch c.State {
	case pipeline.Loading:
		m.logger.Debug("Fetching avatar", "url", c.URL, "generation", c.Generation)
		if m.statusErr {
			m.status = ""
		}
		return m, next
	case pipeline.Loaded:
		m.logger.Debug("Avatar loaded", "url", c.URL, "format", c.Image.Format, "size", len(c.Image.Data))
		return m, tea.Batch(next, m.renderPreview())
	default:
		m.logger.Warn("Avatar failed", "url", c.URL, "err", c.Err)
		return m, next
	}
}

// setStatus shows text in the status line. Confirmations dismiss
// themselves; errors stay until replaced.
func (m *model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusID++
	m.status = text
	m.statusErr = isErr
	if isErr {
		return nil
	}
	id := m.statusID
	return tea.Tick(savedStatusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

// previewSize fits the configured preview into the right panel.
func (m model) previewSize() (int, int) {
	w, h := m.display.width, m.display.height
	if m.width > 0 {
		w = min(w, m.width-int(float64(m.width)*0.4)-2)
	}
	if m.height > 0 {
		h = min(h, m.height-4)
	}
	return max(w, 1), max(h, 1)
}

func (m model) renderPreview() tea.Cmd {
	c := m.creation
	if c.Image.Decoded == nil {
		return nil
	}
	w, h := m.previewSize()
	protocol := m.display.protocol
	return func() tea.Msg {
		view, err := termimg.New(c.Image.Decoded).
			Width(w).
			Height(h).
			Protocol(protocol).
			Render()
		return previewMsg{generation: c.Generation, view: view, err: err}
	}
}

func openURL(ctx context.Context, u string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{url: u, err: opener.Open(ctx, u)}
	}
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	leftWidth := int(float64(m.width) * 0.4)
	rightWidth := m.width - leftWidth

	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.leftPanelView(leftWidth),
		m.rightPanelView(rightWidth),
	)
}

func (m model) leftPanelView(width int) string {
	style := lipgloss.NewStyle().
		Width(width).
		Height(m.height).
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Robohash"))
	b.WriteString("\n\nSeed:\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\nStyle:\n")
	b.WriteString(m.styleView())
	b.WriteString("\n\n")
	b.WriteString(button("Generate", m.generateEnabled))
	b.WriteString(" ")
	b.WriteString(button("Save", m.saveEnabled))
	b.WriteString("\n\n")
	if m.status != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(okStyle.Render(m.status))
		}
		b.WriteString("\n\n")
	}
	b.WriteString(m.help.View(m.keys))

	return style.Render(b.String())
}

func (m model) styleView() string {
	if len(m.styles) == 0 {
		return mutedStyle.Render("loading styles...")
	}
	names := make([]string, len(m.styles))
	for i, name := range m.styles {
		if i == m.style {
			names[i] = selected.Render(" " + name + " ")
		} else {
			names[i] = mutedStyle.Render(" " + name + " ")
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, names...)
}

func button(label string, enabled bool) string {
	if enabled {
		return enabledStyle.Render("[ " + label + " ]")
	}
	return mutedStyle.Render("[ " + label + " ]")
}

func (m model) rightPanelView(width int) string {
	placeholder := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Align(lipgloss.Center, lipgloss.Center).
		Width(width).
		Height(m.height)

	if !m.hasCreation {
		return placeholder.Render("Avatar will be displayed here")
	}

	var content string
	switch m.creation.State {
	case pipeline.Loading:
		content = m.spinnerPopup()
	case pipeline.Failed:
		content = errorStyle.Render(robohash.Describe(m.creation.Err))
	default:
		content = m.preview
	}
	content = lipgloss.JoinVertical(lipgloss.Center, content, "", mutedStyle.Render(m.creation.URL))

	return lipgloss.Place(width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m model) spinnerPopup() string {
	style := lipgloss.NewStyle().
		Width(30).
		Height(3).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Align(lipgloss.Center, lipgloss.Center)

	return style.Render(fmt.Sprintf("%s Fetching avatar...", m.spinner.View()))
}
