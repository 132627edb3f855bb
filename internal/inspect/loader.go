package inspect

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobalert/internal/model"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Lists is what the inspector shows: recent postings on the left and the
// postings the chosen subscriber would receive on the right.
type Lists struct {
	Recent   []model.Posting
	Eligible []model.Posting
}

// LoadFunc reads the lists from the ledger.
type LoadFunc func(ctx context.Context) (Lists, error)

type loadDoneMsg struct {
	lists Lists
	err   error
}

type spinnerTickMsg struct{}

type loaderModel struct {
	label  string
	loadFn LoadFunc
	frame  int
	result Lists
	err    error
	done   bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doLoad(), m.tick())
}

func (m loaderModel) doLoad() tea.Cmd {
	loadFn := m.loadFn
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		lists, err := loadFn(ctx)
		return loadDoneMsg{lists: lists, err: err}
	}
}

func (m loaderModel) tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDoneMsg:
		m.result = msg.lists
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinnerTickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, m.tick()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = fmt.Errorf("cancelled")
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	spinner := lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Render(spinnerFrames[m.frame])
	return fmt.Sprintf("%s Loading postings for %s...\n", spinner, m.label)
}

// RunLoader shows a spinner while loadFn runs. It renders inline (no alt screen).
func RunLoader(label string, loadFn LoadFunc) (Lists, error) {
	m := loaderModel{label: label, loadFn: loadFn}
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return Lists{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
