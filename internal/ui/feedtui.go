package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rsquared-project/witness-manager/internal/progress"
)

var (
	feedTitleStyle = lipgloss.NewStyle().Bold(true)
	feedLineStyle  = lipgloss.NewStyle().PaddingLeft(2)
	feedOKStyle    = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("2"))
	feedFailStyle  = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("1"))
)

type feedEventMsg progress.Event
type feedClosedMsg struct{}

// feedModel renders a live rotation run: spinner while running, the
// trailing progress lines, and a final verdict.
type feedModel struct {
	feed    *progress.Feed
	sub     <-chan progress.Event
	spin    spinner.Model
	lines   []string
	done    bool
	failed  bool
	maxRows int
}

// RunFeedTUI renders the feed on a TTY until the run's sentinel arrives
// or the user interrupts. Returns true when the run succeeded.
func RunFeedTUI(feed *progress.Feed) (bool, error) {
	InitTerminal()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := feedModel{feed: feed, sub: feed.Subscribe(), spin: sp, maxRows: 15}

	out, err := tea.NewProgram(m).Run()
	ResetTerminalAfterTUI()
	if err != nil {
		return false, err
	}
	final := out.(feedModel)
	return final.done && !final.failed, nil
}

func waitForFeedEvent(sub <-chan progress.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return feedClosedMsg{}
		}
		return feedEventMsg(ev)
	}
}

func (m feedModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForFeedEvent(m.sub))
}

func (m feedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			// Detach so the rotation keeps publishing after the view exits.
			m.feed.Unsubscribe(m.sub)
			return m, tea.Quit
		}
		return m, nil
	case feedEventMsg:
		switch msg.Message {
		case progress.SentinelSuccess:
			m.done = true
			return m, tea.Quit
		case progress.SentinelFailure:
			m.done = true
			m.failed = true
			return m, tea.Quit
		}
		m.lines = append(m.lines, msg.Message)
		if len(m.lines) > m.maxRows {
			m.lines = m.lines[len(m.lines)-m.maxRows:]
		}
		return m, waitForFeedEvent(m.sub)
	case feedClosedMsg:
		m.done = true
		return m, tea.Quit
	default:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
}

func (m feedModel) View() string {
	s := feedTitleStyle.Render("Witness key rotation") + "\n"
	for _, line := range m.lines {
		s += feedLineStyle.Render(line) + "\n"
	}
	switch {
	case m.done && m.failed:
		s += feedFailStyle.Render("Rotation failed.") + "\n"
	case m.done:
		s += feedOKStyle.Render("Rotation complete.") + "\n"
	default:
		s += feedLineStyle.Render(m.spin.View()+" working...") + "\n"
	}
	return s
}
