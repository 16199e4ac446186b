package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/leonardotrapani/signcap/internal/camera"
	"github.com/leonardotrapani/signcap/internal/controller"
	"github.com/leonardotrapani/signcap/internal/preview"
)

const triggerTimeout = 5 * time.Second

// TriggerFunc starts a recording; controller.Controller.Trigger satisfies it.
type TriggerFunc func(ctx context.Context) (controller.State, error)

type (
	textMsg     string
	progressMsg float64
	triggerMsg  bool
	liveMsg     camera.Info
	clipMsg     preview.Handle
	resultMsg   controller.Result
	alertMsg    string
	noticeMsg   string

	triggeredMsg struct {
		state controller.State
		err   error
	}
)

// WatchModel is the bubbletea model behind `signcap watch`.
type WatchModel struct {
	trigger TriggerFunc
	bar     progress.Model
	width   int

	text           string
	percent        float64
	triggerEnabled bool
	live           *camera.Info
	clip           preview.Handle
	result         *controller.Result
	alert          string
	notice         string
	lastErr        string
}

func NewWatchModel(trigger TriggerFunc) WatchModel {
	return WatchModel{
		trigger:        trigger,
		bar:            progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		text:           "Waiting for camera…",
		triggerEnabled: true,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return nil
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case textMsg:
		m.text = string(msg)
		m.notice = ""
	case progressMsg:
		m.percent = float64(msg)
	case triggerMsg:
		m.triggerEnabled = bool(msg)
	case liveMsg:
		info := camera.Info(msg)
		m.live = &info
		m.text = "Press r to record"
	case clipMsg:
		m.clip = preview.Handle(msg)
	case resultMsg:
		r := controller.Result(msg)
		m.result = &r
		m.text = "Press r to record again"
	case alertMsg:
		m.alert = string(msg)
	case noticeMsg:
		m.notice = string(msg)
	case triggeredMsg:
		m.lastErr = ""
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
	}
	return m, nil
}

func (m WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// An alert has to be acknowledged before anything else.
	if m.alert != "" {
		switch key {
		case "enter", "esc", " ":
			m.alert = ""
		}
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "r", "R":
		if !m.triggerEnabled || m.trigger == nil {
			return m, nil
		}
		return m, m.triggerCmd()
	}
	return m, nil
}

func (m WatchModel) triggerCmd() tea.Cmd {
	trigger := m.trigger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), triggerTimeout)
		defer cancel()
		state, err := trigger(ctx)
		return triggeredMsg{state: state, err: err}
	}
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(Logo())
	b.WriteString("\n")

	if m.live != nil {
		b.WriteString(StyleMuted.Render("Camera: " + m.live.String()))
	} else {
		b.WriteString(StyleMuted.Render("Camera: not connected"))
	}
	b.WriteString("\n\n")

	if m.alert != "" {
		b.WriteString(StyleAlertBox.Render(StyleError.Render(m.alert) + "\n\n" + StyleSubtle.Render("enter to dismiss")))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(StyleLabel.Render(m.text))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.percent / 100))
	b.WriteString(fmt.Sprintf(" %3.0f%%\n\n", m.percent))

	if m.result != nil {
		b.WriteString(renderResult(*m.result))
		b.WriteString("\n")
	}
	if !m.clip.IsZero() {
		b.WriteString(StyleMuted.Render("Last clip: " + m.clip.Path))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(StyleWarning.Render(m.notice))
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString(StyleError.Render(m.lastErr))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := "r record • q quit"
	if !m.triggerEnabled {
		help = "recording… • q quit"
	}
	b.WriteString(StyleSubtle.Render(help))
	return b.String()
}

func renderResult(r controller.Result) string {
	if r.Failed() {
		return StyleAlertBox.Render(StyleError.Render(r.Text))
	}
	return SeverityStyle(r.Severity).Render(r.Text)
}

// ProgramSurface forwards controller updates into a running tea.Program.
type ProgramSurface struct {
	Program *tea.Program
}

func (s ProgramSurface) SetText(text string)            { s.Program.Send(textMsg(text)) }
func (s ProgramSurface) SetProgress(percent float64)    { s.Program.Send(progressMsg(percent)) }
func (s ProgramSurface) SetTriggerEnabled(enabled bool) { s.Program.Send(triggerMsg(enabled)) }
func (s ProgramSurface) ShowLive(info camera.Info)      { s.Program.Send(liveMsg(info)) }
func (s ProgramSurface) ShowClip(h preview.Handle)      { s.Program.Send(clipMsg(h)) }
func (s ProgramSurface) ShowResult(r controller.Result) { s.Program.Send(resultMsg(r)) }
func (s ProgramSurface) Alert(msg string)               { s.Program.Send(alertMsg(msg)) }
func (s ProgramSurface) Notice(msg string)              { s.Program.Send(noticeMsg(msg)) }
