// Package spinner renders progress narration as an interactive terminal
// spinner. Status text replaces the spinner line; success and failure notices
// are printed above it and stay in the scrollback.
package spinner

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	succeedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

type statusMsg string

type stopMsg struct{}

// Reporter implements progress.Reporter on top of a bubbletea program.
// Calls must come from a single goroutine, and none may follow Stop.
type Reporter struct {
	program *tea.Program
	out     io.Writer
	done    chan struct{}
	err     error
}

// New starts the spinner program writing to out. Input and signal handling
// are left to the caller.
func New(out io.Writer, initial string) *Reporter {
	r := &Reporter{
		out:  out,
		done: make(chan struct{}),
	}
	r.program = tea.NewProgram(
		newModel(initial),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	go func() {
		defer close(r.done)
		if _, err := r.program.Run(); err != nil {
			r.err = fmt.Errorf("run spinner: %w", err)
		}
	}()
	return r
}

// Report replaces the text next to the spinner.
func (r *Reporter) Report(msg string) {
	r.program.Send(statusMsg(msg))
}

// Succeed prints a success line above the spinner.
func (r *Reporter) Succeed(msg string) {
	r.println(succeedLine(msg))
}

// Fail prints a failure line above the spinner.
func (r *Reporter) Fail(msg string) {
	r.println(failLine(msg))
}

func (r *Reporter) println(line string) {
	select {
	case <-r.done:
		fmt.Fprintln(r.out, line)
	default:
		r.program.Println(line)
	}
}

// Stop clears the spinner line and waits for the program to exit.
func (r *Reporter) Stop() error {
	r.program.Send(stopMsg{})
	<-r.done
	return r.err
}

func succeedLine(msg string) string {
	return succeedStyle.Render("✔") + " " + msg
}

func failLine(msg string) string {
	return failStyle.Render("✖") + " " + msg
}

type model struct {
	spinner  spinner.Model
	status   string
	quitting bool
}

func newModel(initial string) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return model{spinner: sp, status: initial}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case stopMsg:
		m.quitting = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	return m.spinner.View() + " " + m.status
}
