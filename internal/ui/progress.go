// Package ui renders build progress in the terminal.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"plcc/internal/buildpipeline"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// stageRow is one line of the checklist.
type stageRow struct {
	stage   buildpipeline.Stage
	status  buildpipeline.Status
	started time.Time
	elapsed time.Duration
}

// progressModel shows the project's way through the pipeline as a
// checklist of stages. The pipeline runs whole-project passes, so per-file
// events only tell which inputs it has picked up.
type progressModel struct {
	title   string
	files   int
	seen    map[string]bool
	events  <-chan buildpipeline.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []stageRow
	failure error
	width   int
	done    bool
	now     func() time.Time
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that follows a build of files
// through stages.
func NewProgressModel(title string, files []string, stages []buildpipeline.Stage, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = workingStyle

	rows := make([]stageRow, len(stages))
	for i, st := range stages {
		rows[i] = stageRow{stage: st, status: buildpipeline.StatusQueued}
	}
	m := &progressModel{
		title:   title,
		files:   len(files),
		seen:    make(map[string]bool, len(files)),
		events:  events,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		rows:    rows,
		now:     time.Now,
	}
	m.resize(80)
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.apply(buildpipeline.Event(msg))
		return m, tea.Batch(m.bar.SetPercent(m.percent()), m.listen())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.resize(msg.Width)
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) resize(width int) {
	if width <= 0 {
		return
	}
	m.width = width
	m.bar.Width = max(width-4, 10)
}

func (m *progressModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

// apply moves the checklist forward. A stage that starts finishes every
// stage before it.
func (m *progressModel) apply(ev buildpipeline.Event) {
	if ev.File != "" {
		m.seen[ev.File] = true
		return
	}
	i := m.row(ev.Stage)
	if i < 0 {
		return
	}
	now := m.now()
	switch ev.Status {
	case buildpipeline.StatusWorking:
		for j := range i {
			m.finish(j, now)
		}
		m.rows[i].status, m.rows[i].started = buildpipeline.StatusWorking, now
	case buildpipeline.StatusDone:
		for j := range i + 1 {
			m.finish(j, now)
		}
	case buildpipeline.StatusError:
		m.finish(i, now)
		m.rows[i].status = buildpipeline.StatusError
		m.failure = ev.Err
	}
}

func (m *progressModel) finish(i int, now time.Time) {
	r := &m.rows[i]
	if r.status == buildpipeline.StatusDone || r.status == buildpipeline.StatusError {
		return
	}
	if r.status == buildpipeline.StatusWorking {
		r.elapsed = now.Sub(r.started)
	}
	r.status = buildpipeline.StatusDone
}

func (m *progressModel) row(stage buildpipeline.Stage) int {
	for i, r := range m.rows {
		if r.stage == stage {
			return i
		}
	}
	return -1
}

// percent counts finished stages, and half of the running one.
func (m *progressModel) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range m.rows {
		switch r.status {
		case buildpipeline.StatusDone, buildpipeline.StatusError:
			total++
		case buildpipeline.StatusWorking:
			total += 0.5
		}
	}
	return total / float64(len(m.rows))
}

func (m *progressModel) View() string {
	var b strings.Builder
	header := fmt.Sprintf("%s (%s)", m.title, plural(m.files, "file"))
	switch {
	case m.failure != nil:
		header = errorStyle.Render("failed: ") + titleStyle.Render(header)
	case m.done:
		header = doneStyle.Render("done: ") + titleStyle.Render(header)
	default:
		header = m.spinner.View() + " " + titleStyle.Render(header)
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, r := range m.rows {
		mark, style := "·", pendingStyle
		switch r.status {
		case buildpipeline.StatusWorking:
			mark, style = "›", workingStyle
		case buildpipeline.StatusDone:
			mark, style = "✓", doneStyle
		case buildpipeline.StatusError:
			mark, style = "✗", errorStyle
		}
		line := fmt.Sprintf("  %s %-10s", mark, stageLabel(r.stage))
		if r.elapsed > 0 {
			line += " " + r.elapsed.Round(time.Millisecond).String()
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	if m.failure != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(truncate(m.failure.Error(), m.width-2)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done && m.failure == nil {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.ViewAs(m.percent()))
	}
	b.WriteString("\n")
	return b.String()
}

func stageLabel(stage buildpipeline.Stage) string {
	switch stage {
	case buildpipeline.StageParse:
		return "parsing"
	case buildpipeline.StageAnalyse:
		return "resolving"
	case buildpipeline.StageLower:
		return "lowering"
	case buildpipeline.StageValidate:
		return "validating"
	case buildpipeline.StageCodegen:
		return "generating"
	case buildpipeline.StageObject:
		return "compiling"
	case buildpipeline.StageLink:
		return "linking"
	}
	return string(stage)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
