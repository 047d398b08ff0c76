package cli

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/camml/pkg/search"
)

const (
	tuiRefresh  = 200 * time.Millisecond
	tuiBarWidth = 40
)

var (
	barFilledStyle = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle  = lipgloss.NewStyle().Foreground(colorDim)
	labelStyle     = lipgloss.NewStyle().Foreground(colorGray)
)

// =============================================================================
// SearchModel - Live progress of a background search
// =============================================================================

type tickMsg time.Time

type jobDoneMsg struct{}

// SearchModel is the bubbletea model that polls a running search job.
// Pressing q asks the job to stop; the view stays up until the chains have
// reached their next epoch boundary and the job is done.
type SearchModel struct {
	Job      *search.Job
	Progress search.Progress
	Started  time.Time
	Elapsed  time.Duration
	Stopped  bool // stop was requested from the keyboard
}

// NewSearchModel creates a model for job.
func NewSearchModel(job *search.Job) SearchModel {
	return SearchModel{Job: job, Progress: job.Progress(), Started: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(tuiRefresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitJob(job *search.Job) tea.Cmd {
	return func() tea.Msg {
		<-job.Done()
		return jobDoneMsg{}
	}
}

func (m SearchModel) Init() tea.Cmd {
	return tea.Batch(tick(), waitJob(m.Job))
}

func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Job.Stop()
			m.Stopped = true
			m.Progress = m.Job.Progress()
		}
	case tickMsg:
		m.Progress = m.Job.Progress()
		m.Elapsed = time.Since(m.Started)
		return m, tick()
	case jobDoneMsg:
		m.Progress = m.Job.Progress()
		m.Elapsed = time.Since(m.Started)
		return m, tea.Quit
	}
	return m, nil
}

func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Searching structures"))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q stop early"))
	b.WriteString("\n\n")

	frac := m.Progress.Fraction()
	b.WriteString(progressBar(frac, tuiBarWidth))
	b.WriteString(fmt.Sprintf(" %s\n\n", StyleNumber.Render(fmt.Sprintf("%3.0f%%", 100*frac))))

	best := "-"
	if !math.IsInf(m.Progress.BestCost, 1) {
		best = fmt.Sprintf("%.2f nats", m.Progress.BestCost)
	}
	status := "running"
	switch {
	case m.Progress.Done:
		status = "done"
	case m.Progress.Stopping:
		status = "stopping"
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Rows(
			[]string{"Epochs", fmt.Sprintf("%d / %d", m.Progress.Epoch, m.Progress.Total)},
			[]string{"Best cost", best},
			[]string{"Elapsed", m.Elapsed.Round(100 * time.Millisecond).String()},
			[]string{"Status", status},
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return labelStyle
			}
			if row == 3 && m.Progress.Stopping {
				return StyleWarning
			}
			return StyleValue
		})
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// progressBar draws frac of width cells filled.
func progressBar(frac float64, width int) string {
	filled := int(math.Round(math.Max(0, math.Min(1, frac)) * float64(width)))
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// runSearchTUI starts s in the background and shows its progress until it
// finishes or the user stops it.
func runSearchTUI(ctx context.Context, s *search.Searcher) (*search.Result, error) {
	job := s.Start(ctx)
	p := tea.NewProgram(NewSearchModel(job), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	if _, err := p.Run(); err != nil {
		job.Stop()
		if _, jerr := job.Wait(); jerr != nil {
			return nil, jerr
		}
		return nil, fmt.Errorf("progress view: %w", err)
	}
	return job.Wait()
}
