package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/chipview/pkg/export"
	"github.com/vanderheijden86/chipview/pkg/model"
)

// Messages the modal sends up to the shell, which delegates to the
// coordinator. The dialog itself never touches executors and never branches
// on strategy beyond labeling.

// ConfirmExportMsg asks the coordinator to start the transfer.
type ConfirmExportMsg struct {
	Range export.RankRange
}

// CancelExportMsg aborts whatever the coordinator is doing.
type CancelExportMsg struct{}

// RetryExportMsg re-runs a failed session from the estimate step.
type RetryExportMsg struct{}

// DismissExportMsg acknowledges a terminal state and closes the dialog.
type DismissExportMsg struct{}

// pathCopiedMsg reports the clipboard write outcome.
type pathCopiedMsg struct{ err error }

// ExportModal renders the export dialog: one of three mutually exclusive
// views, confirmation (rank-range inputs bounded by the estimate),
// in-progress (bar + cancel), or terminal (success/cancelled/error). All logic
// lives in the coordinator; the modal only displays session state and emits
// the messages above.
type ExportModal struct {
	theme  Theme
	width  int
	height int

	session  export.Session
	progress export.Progress

	startInput textinput.Model
	endInput   textinput.Model
	focused    int // 0 = start, 1 = end

	bar    progress.Model
	spin   spinner.Model
	copied bool
}

// NewExportModal creates a dialog for the given session snapshot.
func NewExportModal(theme Theme, session export.Session) ExportModal {
	start := textinput.New()
	start.Placeholder = "1"
	start.CharLimit = 12
	start.Width = 10
	start.Focus()

	end := textinput.New()
	end.Placeholder = "1"
	end.CharLimit = 12
	end.Width = 10

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.InfoText

	m := ExportModal{
		theme:      theme,
		session:    session,
		startInput: start,
		endInput:   end,
		bar:        progress.New(progress.WithDefaultGradient()),
	}
	m.spin = sp
	m.syncInputs()
	return m
}

// Init starts the spinner ticking.
func (m ExportModal) Init() tea.Cmd {
	return m.spin.Tick
}

// SetSize updates layout bounds.
func (m *ExportModal) SetSize(width, height int) {
	m.width = width
	m.height = height
	if w := width - 12; w > 10 && w < 60 {
		m.bar.Width = w
	}
}

// SetSession replaces the rendered session snapshot. Ranks are re-seeded
// only when the estimate first arrives, so typing is not clobbered by
// progress updates.
func (m *ExportModal) SetSession(s export.Session) {
	seed := s.State == export.StateAwaitingConfirmation &&
		m.session.State != export.StateAwaitingConfirmation
	m.session = s
	if seed {
		m.syncInputs()
	}
}

// SetProgress records the latest progress event.
func (m *ExportModal) SetProgress(p export.Progress) {
	m.progress = p
}

// Session returns the snapshot currently rendered.
func (m ExportModal) Session() export.Session {
	return m.session
}

func (m *ExportModal) syncInputs() {
	if m.session.Estimate.Count > 0 {
		m.startInput.SetValue("1")
		m.endInput.SetValue(strconv.FormatInt(m.session.Estimate.Count, 10))
	}
}

// RequestedRange parses the rank inputs. Unparseable input falls back to the
// full range; the coordinator clamps whatever comes through.
func (m ExportModal) RequestedRange() export.RankRange {
	full := export.FullRange(m.session.Estimate.Count)
	start, err := strconv.ParseInt(strings.TrimSpace(m.startInput.Value()), 10, 64)
	if err != nil {
		start = full.Start
	}
	end, err := strconv.ParseInt(strings.TrimSpace(m.endInput.Value()), 10, 64)
	if err != nil {
		end = full.End
	}
	return export.RankRange{Start: start, End: end}
}

// Update handles input for the modal. It returns the updated modal and a
// command (possibly carrying one of the delegation messages).
func (m ExportModal) Update(msg tea.Msg) (ExportModal, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case pathCopiedMsg:
		m.copied = msg.err == nil
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m ExportModal) handleKey(msg tea.KeyMsg) (ExportModal, tea.Cmd) {
	st := m.session.State

	switch st {
	case export.StateEstimating:
		if msg.String() == "esc" || msg.String() == "ctrl+c" {
			return m, send(CancelExportMsg{})
		}

	case export.StateAwaitingConfirmation:
		switch msg.String() {
		case "esc":
			return m, send(CancelExportMsg{})
		case "enter":
			return m, send(ConfirmExportMsg{Range: m.RequestedRange()})
		case "tab", "shift+tab", "up", "down":
			m.toggleFocus()
			return m, nil
		default:
			var cmd tea.Cmd
			if m.focused == 0 {
				m.startInput, cmd = m.startInput.Update(msg)
			} else {
				m.endInput, cmd = m.endInput.Update(msg)
			}
			return m, cmd
		}

	case export.StateExporting:
		switch msg.String() {
		case "esc", "x":
			return m, send(CancelExportMsg{})
		}

	case export.StateFailed:
		switch msg.String() {
		case "r":
			return m, send(RetryExportMsg{})
		case "enter", "esc":
			return m, send(DismissExportMsg{})
		}

	case export.StateCompleted:
		switch msg.String() {
		case "c":
			path := m.session.OutputPath
			return m, func() tea.Msg {
				return pathCopiedMsg{err: clipboard.WriteAll(path)}
			}
		case "enter", "esc":
			return m, send(DismissExportMsg{})
		}

	default: // Cancelled, Empty
		switch msg.String() {
		case "enter", "esc":
			return m, send(DismissExportMsg{})
		}
	}
	return m, nil
}

func (m *ExportModal) toggleFocus() {
	m.focused = 1 - m.focused
	if m.focused == 0 {
		m.startInput.Focus()
		m.endInput.Blur()
	} else {
		m.endInput.Focus()
		m.startInput.Blur()
	}
}

func send(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// View renders the dialog.
func (m ExportModal) View() string {
	var body string
	switch m.session.State {
	case export.StateEstimating:
		body = m.viewEstimating()
	case export.StateAwaitingConfirmation:
		body = m.viewConfirm()
	case export.StateExporting:
		body = m.viewProgress()
	default:
		body = m.viewTerminal()
	}

	title := m.theme.Header.Render(" Export CSV ") + " " + RenderStateBadge(m.session.State)
	content := title + "\n\n" + body
	return ModalStyle.Render(content)
}

func (m ExportModal) viewEstimating() string {
	return fmt.Sprintf("%s Estimating export size for %s…\n\n%s",
		m.spin.View(),
		m.theme.PrimaryBold.Render(m.session.Config.DataSource),
		m.theme.MutedText.Render("esc to cancel"))
}

func (m ExportModal) viewConfirm() string {
	est := m.session.Estimate
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s rows, about %s\n\n",
		m.theme.PrimaryBold.Render(FormatCount(est.Count)),
		FormatBytes(est.Bytes))

	if m.session.Config != nil && m.session.Config.Rows != nil {
		if sum, ok := export.SummarizeResident(m.session.Config.Rows); ok {
			fmt.Fprintf(&sb, "value: total %s  mean %s  median %s  p90 %s\n\n",
				FormatAmount(sum.Total),
				FormatAmount(sum.Mean),
				FormatAmount(sum.Median),
				FormatAmount(sum.P90))
		}
	}

	sb.WriteString("rank range\n")
	sb.WriteString("  from " + m.startInput.View() + "  to " + m.endInput.View() + "\n\n")
	sb.WriteString(m.theme.MutedText.Render("enter to export · tab to switch · esc to cancel"))
	return sb.String()
}

func (m ExportModal) viewProgress() string {
	p := m.progress
	var sb strings.Builder

	if m.session.Estimate.Count > 0 {
		sb.WriteString(m.theme.SecondaryText.Render(estimateLine(m.session.Estimate)))
		sb.WriteString("\n\n")
	}

	if f := p.Fraction(); f >= 0 {
		sb.WriteString(m.bar.ViewAs(f))
		sb.WriteByte('\n')
		if p.Approximate {
			// Never present an estimate-scaled bar as a precise percentage.
			sb.WriteString(m.theme.WarningText.Render("~approximate"))
			sb.WriteByte('\n')
		}
	} else {
		sb.WriteString(m.spin.View() + " transferring…\n")
	}

	fmt.Fprintf(&sb, "\n%s rows · %s",
		FormatCount(p.RowsDone), FormatBytes(p.BytesDone))
	if p.BytesTotal > 0 {
		fmt.Fprintf(&sb, " of %s%s", FormatBytes(p.BytesTotal), approxMark(p.Approximate))
	}
	sb.WriteString("\n\n" + m.theme.MutedText.Render("esc to cancel"))
	return sb.String()
}

func approxMark(approx bool) string {
	if approx {
		return " (est.)"
	}
	return ""
}

func (m ExportModal) viewTerminal() string {
	switch m.session.State {
	case export.StateCompleted:
		line := m.theme.SuccessText.Render("Saved ") +
			truncate(m.session.OutputPath, maxPathWidth(m.width))
		hint := "c to copy path · enter to close"
		if m.copied {
			hint = "copied! · enter to close"
		}
		return line + "\n\n" + m.theme.MutedText.Render(hint)

	case export.StateCancelled:
		// Neutral, not an error.
		return "Export cancelled.\n\n" + m.theme.MutedText.Render("enter to close")

	case export.StateEmpty:
		return "Nothing to export for these filters.\n\n" + m.theme.MutedText.Render("enter to close")

	case export.StateFailed:
		msg := "export failed"
		if m.session.Err != nil {
			msg = m.session.Err.Error()
		}
		return m.theme.DangerText.Render(truncate(msg, maxPathWidth(m.width))) +
			"\n\n" + m.theme.MutedText.Render("r to retry · enter to close")
	}
	return ""
}

func maxPathWidth(w int) int {
	if w <= 0 {
		return 60
	}
	if w-10 < 20 {
		return 20
	}
	return w - 10
}

// estimateLine is a compact one-line summary of what the transfer should
// amount to if the estimate holds.
func estimateLine(est model.Estimate) string {
	return fmt.Sprintf("%s rows · ~%s", FormatCount(est.Count), FormatBytes(est.Bytes))
}
