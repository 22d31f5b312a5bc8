// Package ui implements the chipview terminal interface: a dataset browser
// over the contracts backend with a unified export dialog on top. The shell
// follows the Elm architecture; all export logic lives in pkg/export and
// reaches the UI only as coordinator events.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/chipview/internal/datasource"
	"github.com/vanderheijden86/chipview/pkg/api"
	"github.com/vanderheijden86/chipview/pkg/config"
	"github.com/vanderheijden86/chipview/pkg/debug"
	"github.com/vanderheijden86/chipview/pkg/export"
	"github.com/vanderheijden86/chipview/pkg/model"
	"github.com/vanderheijden86/chipview/pkg/version"
	"github.com/vanderheijden86/chipview/pkg/watcher"
)

// Dataset names shown in the shell. "contracts" browses individual awards;
// "aggregated" browses server-side rollups along the selected dimension.
const (
	DatasetContracts  = "contracts"
	DatasetAggregated = "aggregated"
)

// Shell messages.
type (
	// exportEventMsg wraps one coordinator notification.
	exportEventMsg struct{ ev export.Event }

	// contractsLoadedMsg delivers a materialized contract set (or the error).
	contractsLoadedMsg struct {
		set *datasource.ContractSet
		err error
	}

	// aggregatesLoadedMsg delivers a materialized aggregate set. fromSnapshot
	// marks data restored from the local snapshot rather than the network.
	aggregatesLoadedMsg struct {
		set          *datasource.AggregateSet
		fromSnapshot bool
		err          error
	}

	// snapshotChangedMsg fires when another process rewrites the snapshot db.
	snapshotChangedMsg struct{}

	// snapshotSavedMsg reports the background snapshot write.
	snapshotSavedMsg struct{ err error }

	// optionsLoadedMsg delivers the filter-options payload for the header
	// summary. Failures are ignored; the summary is cosmetic.
	optionsLoadedMsg struct {
		opts model.FilterOptions
		err  error
	}
)

// Deps carries everything the shell needs; cmd/chipview assembles it.
type Deps struct {
	Config  config.Config
	Client  *api.Client
	Coord   *export.Coordinator
	Loader  *datasource.Loader
	Store   *datasource.SnapshotStore // optional
	Watcher *watcher.Watcher          // optional
}

// Model is the root bubbletea model.
type Model struct {
	theme Theme
	deps  Deps

	width  int
	height int

	dataset   string
	dimension model.Dimension
	filters   model.ChipFilters

	contracts  *datasource.ContractSet
	aggregates *datasource.AggregateSet
	options    *model.FilterOptions
	cursor     int
	loading    bool
	stale      bool

	search    textinput.Model
	searching bool

	modal    *ExportModal
	showHelp bool
	helpView string

	status string
	err    error

	quitting bool
}

// NewModel builds the shell. The coordinator's event channel is pumped from
// Init on.
func NewModel(deps Deps) Model {
	search := textinput.New()
	search.Placeholder = "keywords, comma separated"
	search.CharLimit = 200
	search.Width = 40

	dataset := deps.Config.UI.DefaultDataset
	if dataset != DatasetAggregated {
		dataset = DatasetContracts
	}

	return Model{
		theme:     DefaultTheme(lipgloss.DefaultRenderer()),
		deps:      deps,
		dataset:   dataset,
		dimension: model.ByContractor,
		search:    search,
		loading:   true,
	}
}

// Init starts the export event pump, the snapshot watcher pump, and the
// initial dataset load.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.listenExports(),
		m.loadCurrent(),
	}
	if m.deps.Client != nil {
		cmds = append(cmds, m.loadOptions())
	}
	if m.deps.Watcher != nil {
		cmds = append(cmds, m.listenSnapshot())
	}
	return tea.Batch(cmds...)
}

// listenExports blocks on the coordinator channel and re-arms itself from
// Update, so exactly one reader exists at a time.
func (m Model) listenExports() tea.Cmd {
	ch := m.deps.Coord.Events()
	return func() tea.Msg {
		return exportEventMsg{ev: <-ch}
	}
}

func (m Model) listenSnapshot() tea.Cmd {
	ch := m.deps.Watcher.Changed()
	return func() tea.Msg {
		<-ch
		return snapshotChangedMsg{}
	}
}

func (m Model) loadCurrent() tea.Cmd {
	filters := m.filters.Clone()
	switch m.dataset {
	case DatasetAggregated:
		dim := m.dimension
		loader := m.deps.Loader
		store := m.deps.Store
		return func() tea.Msg {
			set, err := loader.LoadAggregates(context.Background(), filters, dim)
			if err != nil && store != nil {
				// Offline fallback: serve the last snapshot if one exists.
				if snap, serr := store.LoadAggregates(dim); serr == nil && snap != nil {
					debug.Log("network load failed (%v), using snapshot of %d rows", err, snap.Len())
					return aggregatesLoadedMsg{set: snap, fromSnapshot: true}
				}
			}
			return aggregatesLoadedMsg{set: set, err: err}
		}
	default:
		loader := m.deps.Loader
		return func() tea.Msg {
			set, err := loader.LoadContracts(context.Background(), filters)
			return contractsLoadedMsg{set: set, err: err}
		}
	}
}

func (m Model) loadOptions() tea.Cmd {
	client := m.deps.Client
	return func() tea.Msg {
		opts, err := client.FilterOptions(context.Background())
		return optionsLoadedMsg{opts: opts, err: err}
	}
}

func (m Model) saveSnapshot(set *datasource.AggregateSet) tea.Cmd {
	store := m.deps.Store
	return func() tea.Msg {
		return snapshotSavedMsg{err: store.SaveAggregates(set)}
	}
}

// Update routes messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.modal != nil {
			m.modal.SetSize(msg.Width, msg.Height)
		}
		return m, nil

	case exportEventMsg:
		return m.handleExportEvent(msg.ev)

	case contractsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.stale = false
		m.contracts = msg.set
		m.cursor = 0
		m.status = fmt.Sprintf("%s contracts loaded", FormatCount(int64(msg.set.Len())))
		return m, nil

	case aggregatesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.stale = false
		m.aggregates = msg.set
		m.cursor = 0
		if msg.fromSnapshot {
			m.status = fmt.Sprintf("%s rows from local snapshot (offline)", FormatCount(int64(msg.set.Len())))
			return m, nil
		}
		m.status = fmt.Sprintf("%s aggregated rows loaded", FormatCount(int64(msg.set.Len())))
		if m.deps.Store != nil {
			return m, m.saveSnapshot(msg.set)
		}
		return m, nil

	case snapshotSavedMsg:
		if msg.err != nil {
			debug.Log("snapshot save failed: %v", msg.err)
		}
		return m, nil

	case optionsLoadedMsg:
		if msg.err != nil {
			debug.Log("filter-options fetch failed: %v", msg.err)
			return m, nil
		}
		opts := msg.opts
		m.options = &opts
		return m, nil

	case snapshotChangedMsg:
		// Another process rewrote the snapshot; resident data may be stale.
		m.stale = true
		m.status = "snapshot changed on disk — press R to reload"
		return m, m.listenSnapshot()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.modal != nil {
		var cmd tea.Cmd
		modal, cmd := m.modal.Update(msg)
		m.modal = &modal
		return m, cmd
	}
	return m, nil
}

func (m Model) handleExportEvent(ev export.Event) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.listenExports()}

	switch ev := ev.(type) {
	case export.ProgressEvent:
		if m.modal != nil {
			m.modal.SetProgress(ev.Progress)
		}

	case export.StateEvent:
		if ev.State == export.StateIdle {
			m.modal = nil
			break
		}
		if snap, ok := m.deps.Coord.Snapshot(); ok {
			if m.modal == nil {
				modal := NewExportModal(m.theme, snap)
				modal.SetSize(m.width, m.height)
				m.modal = &modal
				cmds = append(cmds, modal.Init())
			} else {
				m.modal.SetSession(snap)
			}
			if ev.State == export.StateCompleted {
				m.status = "exported " + snap.OutputPath
			}
		}

	case export.EstimateReadyEvent:
		if snap, ok := m.deps.Coord.Snapshot(); ok && m.modal != nil {
			m.modal.SetSession(snap)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit always works, even mid-export: the deferred cleanup in
	// main tears the coordinator session down.
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	// Modal gets the keyboard while visible.
	if m.modal != nil {
		modal, cmd := m.modal.Update(msg)
		m.modal = &modal
		return m.delegate(cmd)
	}

	if m.searching {
		switch msg.String() {
		case "enter":
			m.searching = false
			m.search.Blur()
			m.filters.Keywords = splitKeywords(m.search.Value())
			m.loading = true
			return m, m.loadCurrent()
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = true
		if m.helpView == "" {
			m.helpView = renderHelp(m.width)
		}
		return m, nil

	case "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink

	case "tab":
		if m.dataset == DatasetContracts {
			m.dataset = DatasetAggregated
		} else {
			m.dataset = DatasetContracts
		}
		m.cursor = 0
		m.loading = true
		return m, m.loadCurrent()

	case "d":
		if m.dataset == DatasetAggregated {
			m.dimension = nextDimension(m.dimension)
			m.loading = true
			return m, m.loadCurrent()
		}
		return m, nil

	case "R":
		m.loading = true
		return m, m.loadCurrent()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.rowCount()-1 {
			m.cursor++
		}
		return m, nil

	case "e":
		// Streaming export of the current dataset under the active filters:
		// the server materializes the full result set.
		return m.startExport(m.streamingConfig())

	case "E":
		// Client-side export of what is resident right now.
		cfg := m.residentConfig()
		if cfg == nil {
			m.status = "no resident data to export"
			return m, nil
		}
		return m.startExport(cfg)
	}

	return m, nil
}

// delegate translates modal messages that came back as commands. The command
// is executed and its message routed through Update; Confirm/Cancel/Retry
// messages act on the coordinator here.
func (m Model) delegate(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if cmd == nil {
		return m, nil
	}
	switch msg := cmd().(type) {
	case ConfirmExportMsg:
		if err := m.deps.Coord.Confirm(msg.Range); err != nil {
			m.status = err.Error()
		}
		return m, nil
	case CancelExportMsg:
		m.deps.Coord.Cancel()
		return m, nil
	case RetryExportMsg:
		if _, err := m.deps.Coord.Retry(); err != nil {
			m.status = err.Error()
		}
		return m, nil
	case DismissExportMsg:
		m.deps.Coord.Acknowledge()
		return m, nil
	default:
		return m, func() tea.Msg { return msg }
	}
}

func (m Model) streamingConfig() *export.Config {
	bpr := m.deps.Config.Export.BytesPerRow
	if m.dataset == DatasetAggregated {
		return export.NewAggregatedExport(m.filters, m.dimension, bpr)
	}
	return export.NewContractsExport(m.filters, bpr)
}

func (m Model) residentConfig() *export.Config {
	bpr := m.deps.Config.Export.BytesPerRow
	if m.dataset == DatasetAggregated {
		if m.aggregates == nil || m.aggregates.Len() == 0 {
			return nil
		}
		return export.NewAnalyticsExport(m.aggregates, m.aggregates.Dimension, bpr)
	}
	if m.contracts == nil || m.contracts.Len() == 0 {
		return nil
	}
	cfg := export.NewDrilldownExport(m.contracts, "search-results", bpr)
	cfg.DataSource = DatasetContracts
	return cfg
}

func (m Model) startExport(cfg *export.Config) (tea.Model, tea.Cmd) {
	if _, err := m.deps.Coord.Initiate(cfg); err != nil {
		m.status = err.Error()
		return m, nil
	}
	// The modal appears when the StateEstimating event arrives.
	return m, nil
}

func (m Model) rowCount() int {
	if m.dataset == DatasetAggregated {
		if m.aggregates == nil {
			return 0
		}
		return m.aggregates.Len()
	}
	if m.contracts == nil {
		return 0
	}
	return m.contracts.Len()
}

// View renders the shell.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading…"
	}
	if m.showHelp {
		return m.helpView
	}

	var sb strings.Builder
	sb.WriteString(m.viewHeader())
	sb.WriteByte('\n')
	sb.WriteString(m.viewTable())
	sb.WriteByte('\n')
	sb.WriteString(m.viewStatus())

	if m.modal != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.modal.View())
	}
	return sb.String()
}

func (m Model) viewHeader() string {
	title := m.theme.Header.Render(" chipview " + version.Version + " ")
	ds := m.theme.PrimaryBold.Render(m.dataset)
	if m.dataset == DatasetAggregated {
		ds += m.theme.SecondaryText.Render(" · " + m.dimension.Scope())
	}
	line := title + "  " + ds
	if m.searching {
		line += "  /" + m.search.View()
	} else if len(m.filters.Keywords) > 0 {
		line += m.theme.MutedText.Render("  filter: " + strings.Join(m.filters.Keywords, ", "))
	}
	if m.stale {
		line += "  " + m.theme.WarningText.Render("[stale]")
	}
	if m.options != nil {
		line += m.theme.MutedText.Render("  " + optionsSummary(*m.options))
	}
	return line
}

// optionsSummary condenses the filter-options payload into the header line.
func optionsSummary(opts model.FilterOptions) string {
	return fmt.Sprintf("%s contractors · %s areas · %s orgs",
		FormatCount(int64(len(opts.Contractors))),
		FormatCount(int64(len(opts.Areas))),
		FormatCount(int64(len(opts.Organizations))))
}

func (m Model) viewTable() string {
	if m.loading {
		return m.theme.MutedText.Render("\n  loading dataset…\n")
	}
	if m.err != nil {
		return m.theme.DangerText.Render("\n  " + truncate(m.err.Error(), m.width-4) + "\n")
	}

	maxRows := m.height - 6
	if maxRows < 3 {
		maxRows = 3
	}

	var sb strings.Builder
	if m.dataset == DatasetAggregated {
		m.renderAggregates(&sb, maxRows)
	} else {
		m.renderContracts(&sb, maxRows)
	}
	return sb.String()
}

func (m Model) renderContracts(sb *strings.Builder, maxRows int) {
	if m.contracts == nil || m.contracts.Len() == 0 {
		sb.WriteString(m.theme.MutedText.Render("\n  no contracts match the filters\n"))
		return
	}
	rows := m.contracts.Rows()
	nameW := m.width / 3
	start := windowStart(m.cursor, len(rows), maxRows)
	for i := start; i < len(rows) && i < start+maxRows; i++ {
		r := rows[i]
		line := fmt.Sprintf("%s  %s  %s  %s",
			padRight(truncate(r.AwardeeName, nameW), nameW),
			padRight(truncate(r.AwardTitle, nameW), nameW),
			padRight(FormatAmount(r.ContractAmount), 12),
			r.AwardDate)
		if i == m.cursor {
			sb.WriteString(m.theme.Selected.Render(truncate(line, m.width-2)))
		} else {
			sb.WriteString("  " + truncate(line, m.width-2))
		}
		sb.WriteByte('\n')
	}
}

func (m Model) renderAggregates(sb *strings.Builder, maxRows int) {
	if m.aggregates == nil || m.aggregates.Len() == 0 {
		sb.WriteString(m.theme.MutedText.Render("\n  no aggregates match the filters\n"))
		return
	}
	rows := m.aggregates.Rows()
	labelW := m.width / 2
	start := windowStart(m.cursor, len(rows), maxRows)
	for i := start; i < len(rows) && i < start+maxRows; i++ {
		r := rows[i]
		line := fmt.Sprintf("%4d  %s  %s  %6d  %s",
			i+1,
			padRight(truncate(r.Label, labelW), labelW),
			padRight(FormatAmount(r.TotalValue), 12),
			r.Count,
			FormatAmount(r.AvgValue))
		if i == m.cursor {
			sb.WriteString(m.theme.Selected.Render(truncate(line, m.width-2)))
		} else {
			sb.WriteString("  " + truncate(line, m.width-2))
		}
		sb.WriteByte('\n')
	}
}

func (m Model) viewStatus() string {
	left := m.status
	if left == "" {
		left = "e export (server) · E export (resident) · tab dataset · d dimension · / filter · ? help · q quit"
	}
	return m.theme.MutedText.Render(truncate(left, m.width))
}

// windowStart keeps the cursor visible inside a maxRows viewport.
func windowStart(cursor, total, maxRows int) int {
	if total <= maxRows {
		return 0
	}
	start := cursor - maxRows/2
	if start < 0 {
		start = 0
	}
	if start > total-maxRows {
		start = total - maxRows
	}
	return start
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func nextDimension(d model.Dimension) model.Dimension {
	order := []model.Dimension{
		model.ByContractor,
		model.ByOrganization,
		model.ByArea,
		model.ByCategory,
	}
	for i, cur := range order {
		if cur == d {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}
