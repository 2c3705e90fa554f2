package badge

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/calsnap/internal/application"
	"github.com/bnema/calsnap/internal/domain"
)

type FetchFunc func(ctx context.Context) (application.Overview, error)

type WatchOptions struct {
	Interval time.Duration
	// UntilSettled quits once nothing is polling any more.
	UntilSettled bool
	Now          func() time.Time
}

type overviewMsg struct {
	overview application.Overview
	err      error
}

type refreshMsg struct{}

type watchModel struct {
	ctx      context.Context
	fetch    FetchFunc
	opts     WatchOptions
	spinner  spinner.Model
	styles   styles
	overview application.Overview
	loaded   bool
	err      error
	quitting bool
}

func newWatchModel(ctx context.Context, fetch FetchFunc, opts WatchOptions) watchModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return watchModel{
		ctx:     ctx,
		fetch:   fetch,
		opts:    opts,
		spinner: s,
		styles:  newStyles(),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load())
}

func (m watchModel) load() tea.Cmd {
	return func() tea.Msg {
		overview, err := m.fetch(m.ctx)
		return overviewMsg{overview: overview, err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case overviewMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.overview = msg.overview
		m.loaded = true
		if m.opts.UntilSettled && m.settled() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, tea.Tick(m.opts.Interval, func(time.Time) tea.Msg { return refreshMsg{} })
	case refreshMsg:
		return m, m.load()
	default:
		return m, nil
	}
}

func (m watchModel) settled() bool {
	return len(m.overview.Active) == 0 && m.overview.Badge.Kind != domain.BadgeSpinner
}

func (m watchModel) View() string {
	if !m.loaded {
		if m.err != nil {
			return ""
		}
		return fmt.Sprintf("%s Loading sessions...", m.spinner.View())
	}

	opts := RenderOptions{Now: m.now(), Spinner: m.spinner.View()}
	view := renderView(m.overview, opts, m.styles)
	if m.quitting {
		return view + "\n"
	}
	return view + "\n\n" + m.styles.empty.Render("q to quit") + "\n"
}

func (m watchModel) now() time.Time {
	if m.opts.Now != nil {
		return m.opts.Now()
	}
	return time.Now()
}

// RunWatch shows a live session overview until the user quits, ctx ends, or
// with UntilSettled, polling is over. It returns the last overview seen.
func RunWatch(ctx context.Context, input io.Reader, output io.Writer, fetch FetchFunc, opts WatchOptions) (application.Overview, error) {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}

	p := tea.NewProgram(
		newWatchModel(ctx, fetch, opts),
		tea.WithInput(input),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return application.Overview{}, err
	}

	result, ok := finalModel.(watchModel)
	if !ok {
		return application.Overview{}, fmt.Errorf("unexpected final watch model type %T", finalModel)
	}

	return result.overview, result.err
}
