// Package tui provides the interactive Bubble Tea dashboard for cfplan.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cfplan/internal/cli"
	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/pipeline"
	"github.com/theirongolddev/cfplan/internal/rates"
	"github.com/theirongolddev/cfplan/internal/tui/components"
	"github.com/theirongolddev/cfplan/internal/tui/theme"
)

const (
	minTerminalWidth = 60
	compactWidth     = 90
	maxContentWidth  = 160
	minContentHeight = 5
)

// SolveFunc prepares and solves one plan. It must honour ctx cancellation.
type SolveFunc func(ctx context.Context) (*pipeline.Result, error)

// Options describe the plan being shown.
type Options struct {
	Start     civil.Date
	End       civil.Date
	RatesDate civil.Date
	Rates     *rates.Table // sheet shown on the Rates tab; may be nil
	Backend   string
}

// solvedMsg carries a finished solve back to the UI. gen ties it to the
// request that produced it so a stale answer is dropped.
type solvedMsg struct {
	gen     int
	result  *pipeline.Result
	err     error
	elapsed time.Duration
}

// App is the root Bubble Tea model.
type App struct {
	solve SolveFunc
	opts  Options

	result  *pipeline.Result
	err     error
	solving bool
	gen     int
	elapsed time.Duration
	cancel  context.CancelFunc
	pending tea.Cmd

	width     int
	height    int
	activeTab int
	showHelp  bool

	spinner  spinner.Model
	deposits table.Model
	days     table.Model
	sheet    table.Model
}

// NewApp creates the dashboard and queues the first solve for Init.
func NewApp(solve SolveFunc, opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	a := App{
		solve:    solve,
		opts:     opts,
		spinner:  sp,
		deposits: newTable(depositColumns()),
		days:     newTable(dayColumns()),
		sheet:    newTable(sheetColumns()),
	}
	a.sheet.SetRows(sheetRows(opts.Rates, opts.RatesDate))
	a.pending = a.startSolve()
	return a
}

// startSolve cancels any solve in flight and returns the command for a new
// one.
func (a *App) startSolve() tea.Cmd {
	if a.cancel != nil {
		a.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.gen++
	a.solving = true
	return solveCmd(ctx, a.solve, a.gen)
}

func solveCmd(ctx context.Context, solve SolveFunc, gen int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		res, err := solve(ctx)
		return solvedMsg{gen: gen, result: res, err: err, elapsed: time.Since(start)}
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(tea.EnableMouseCellMotion, a.spinner.Tick, a.pending)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resizeTables()
		return a, nil

	case solvedMsg:
		if msg.gen != a.gen {
			return a, nil
		}
		a.solving = false
		a.result, a.err, a.elapsed = msg.result, msg.err, msg.elapsed
		a.fillTables()
		return a, nil

	case spinner.TickMsg:
		if !a.solving {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		if a.cancel != nil {
			a.cancel()
		}
		return a, tea.Quit
	}

	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "?":
		a.showHelp = true
		return a, nil
	case "s":
		if a.solving {
			return a, nil
		}
		cmd := a.startSolve()
		return a, tea.Batch(a.spinner.Tick, cmd)
	case "left", "h":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "l", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
			return a, nil
		}
	}

	// Remaining keys scroll the table on the active tab.
	var cmd tea.Cmd
	switch a.activeTab {
	case 1:
		a.deposits, cmd = a.deposits.Update(msg)
	case 2:
		a.days, cmd = a.days.Update(msg)
	case 3:
		a.sheet, cmd = a.sheet.Update(msg)
	}
	return a, cmd
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return a, nil
	}
	switch msg.Button {
	case tea.MouseButtonLeft:
		if msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
	case tea.MouseButtonWheelUp:
		a.scroll(-1)
	case tea.MouseButtonWheelDown:
		a.scroll(1)
	}
	return a, nil
}

func (a *App) scroll(n int) {
	t := a.activeTable()
	if t == nil {
		return
	}
	if n < 0 {
		t.MoveUp(-n)
	} else {
		t.MoveDown(n)
	}
}

func (a *App) activeTable() *table.Model {
	switch a.activeTab {
	case 1:
		return &a.deposits
	case 2:
		return &a.days
	case 3:
		return &a.sheet
	}
	return nil
}

// ─── Tables ─────────────────────────────────────────────────────

func newTable(cols []table.Column) table.Model {
	t := theme.Active
	tbl := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(10))

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Foreground(t.Accent).
		BorderForeground(t.Border).
		BorderBottom(true).
		Bold(true)
	styles.Cell = styles.Cell.Foreground(t.TextPrimary)
	styles.Selected = styles.Selected.
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(false)
	tbl.SetStyles(styles)
	return tbl
}

func depositColumns() []table.Column {
	return []table.Column{
		{Title: "From", Width: 14},
		{Title: "To", Width: 14},
		{Title: "Days", Width: 5},
		{Title: "Amount", Width: 14},
		{Title: "Factor", Width: 9},
		{Title: "Interest", Width: 12},
	}
}

func dayColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 14},
		{Title: "Net flow", Width: 13},
		{Title: "Liquid", Width: 14},
		{Title: "Invested", Width: 14},
		{Title: "Share", Width: 6},
	}
}

func sheetColumns() []table.Column {
	return []table.Column{
		{Title: "Term", Width: 16},
		{Title: "Days", Width: 11},
		{Title: "Rate", Width: 8},
		{Title: "Effective", Width: 11},
	}
}

func depositRows(positions []model.Position) []table.Row {
	var rows []table.Row
	for _, p := range positions {
		if p.Kind != model.Investment {
			continue
		}
		rows = append(rows, table.Row{
			cli.FormatDate(p.From),
			cli.FormatDate(p.To),
			fmt.Sprintf("%d", p.Days),
			cli.FormatMoney(p.Amount),
			cli.FormatFactor(p.Factor),
			cli.FormatMoney(p.Interest),
		})
	}
	return rows
}

func dayRows(balances []model.DailyBalance) []table.Row {
	rows := make([]table.Row, len(balances))
	for i, b := range balances {
		rows[i] = table.Row{
			cli.FormatDate(b.Date),
			cli.FormatSigned(b.NetFlow),
			cli.FormatMoney(b.Liquid),
			cli.FormatMoney(b.Invested),
			fmt.Sprintf("%.0f%%", investedShare(b)*100),
		}
	}
	return rows
}

// sheetRows lists the buckets of the sheet in effect at date.
func sheetRows(tbl *rates.Table, date civil.Date) []table.Row {
	if tbl == nil {
		return nil
	}
	eff, ok := tbl.EffectiveDate(date)
	if !ok {
		return nil
	}
	var rows []table.Row
	for _, b := range tbl.Buckets() {
		if b.Effective != eff {
			continue
		}
		label := b.Label
		if label == "" {
			label = b.Unit
		}
		rows = append(rows, table.Row{
			label,
			fmt.Sprintf("%d-%d", b.MinDays, b.MaxDays),
			cli.FormatRate(b.Rate),
			b.Effective.String(),
		})
	}
	return rows
}

func (a *App) fillTables() {
	if a.result == nil {
		a.deposits.SetRows(nil)
		a.days.SetRows(nil)
		return
	}
	a.deposits.SetRows(depositRows(a.result.Positions))
	a.deposits.GotoTop()
	a.days.SetRows(dayRows(a.result.Balances))
	a.days.GotoTop()
}

func (a *App) resizeTables() {
	h := max(a.height-6, minContentHeight)
	w := a.contentWidth()
	for _, t := range []*table.Model{&a.deposits, &a.days, &a.sheet} {
		t.SetHeight(h)
		t.SetWidth(w)
	}
}

func investedShare(b model.DailyBalance) float64 {
	total := b.Liquid + b.Invested
	if total <= 0 {
		return 0
	}
	return b.Invested / total
}

// ─── Views ──────────────────────────────────────────────────────

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.solving && a.result == nil && a.err == nil {
		return a.viewLoading()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  cfplan needs at least %d columns.\n",
		a.width, minTerminalWidth)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ cfplan"))
	b.WriteString(subtitleStyle.Render(" · Cash-flow Planner"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(subtitleStyle.Render(fmt.Sprintf(" Solving %s → %s with %s",
		a.opts.Start, a.opts.End, a.opts.Backend)))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	bindings := []struct{ key, desc string }{
		{"o d c r", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k ↑ ↓", "Move through a table"},
		{"s", "Solve again"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	for _, bind := range bindings {
		fmt.Fprintf(&b, "  %s  %s\n",
			keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
			descStyle.Render(bind.desc))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	pill := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	info := pill.Render(" ") + accent.Render(fmt.Sprintf("%s → %s", a.opts.Start, a.opts.End)) +
		pill.Render(" │ rates ") + accent.Render(a.opts.RatesDate.String()) +
		pill.Render(" │ ") + accent.Render(a.opts.Backend)
	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(info)

	status, elapsed := "", ""
	if a.result != nil {
		status = a.result.Summary.Status
		elapsed = cli.FormatDuration(a.elapsed)
	} else if a.err != nil {
		status = "error"
	}
	statusBar := components.RenderStatusBar(w, status, elapsed, a.solving)

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch {
	case a.err != nil:
		content = components.ContentCard("Solve failed", a.err.Error(), cw)
	case a.activeTab == 0:
		content = a.renderOverviewTab(cw, contentH)
	case a.activeTab == 1:
		content = a.renderTableTab(a.deposits, "No deposits in this plan.")
	case a.activeTab == 2:
		content = a.renderTableTab(a.days, "No daily balances: the plan has no feasible point.")
	case a.activeTab == 3:
		content = a.renderTableTab(a.sheet, "No rate sheet in effect at the rates date.")
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderTableTab(tbl table.Model, empty string) string {
	if len(tbl.Rows()) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Active.TextMuted).Render("\n  " + empty)
	}
	return tbl.View()
}

func (a App) renderOverviewTab(cw, h int) string {
	t := theme.Active
	if a.result == nil {
		return ""
	}
	s := a.result.Summary

	metrics := []components.Metric{
		{Label: "Final cash", Value: cli.FormatMoney(s.Objective), Color: t.Positive},
		{Label: "Interest earned", Value: cli.FormatMoney(s.TotalInterest)},
		{Label: "Deposits", Value: fmt.Sprintf("%d", s.Investments), Note: "largest " + cli.FormatMoneyShort(s.LargestDeposit)},
		{Label: "Status", Value: s.Status, Color: t.ForStatus(s.Status)},
	}
	if a.isCompactLayout() {
		metrics = metrics[:2]
	}
	rows := []string{components.MetricCardRow(metrics, cw)}

	planBody := kvLines([][2]string{
		{"Horizon", fmt.Sprintf("%s → %s", s.Start, s.End)},
		{"Rates date", s.RatesDate.String()},
		{"Inflow", cli.FormatMoney(s.TotalInflow)},
		{"Outflow", cli.FormatMoney(s.TotalOutflow)},
		{"Network", fmt.Sprintf("%d nodes, %d carry, %d investable", s.Nodes, s.CarryArcs, s.InvestableArcs)},
	})

	balances := a.result.Balances
	if a.isCompactLayout() {
		rows = append(rows, components.ContentCard("Plan", planBody, cw))
	} else {
		widths := components.LayoutRow(cw, 2)
		shareBody := shareLines(balances, components.CardInnerWidth(widths[1]))
		rows = append(rows, components.CardRow([]string{
			components.ContentCard("Plan", planBody, widths[0]),
			components.ContentCard("Money at work", shareBody, widths[1]),
		}))
	}

	used := 0
	for _, r := range rows {
		used += lipgloss.Height(r)
	}
	if chartH := h - used - 4; len(balances) > 0 && chartH >= 3 {
		values := make([]float64, len(balances))
		labels := make([]string, len(balances))
		for i, b := range balances {
			values[i] = b.Liquid
			labels[i] = b.Date.In(time.UTC).Format("Jan 2")
		}
		chart := components.BarChart(values, labels, t.Invested, components.CardInnerWidth(cw), chartH)
		rows = append(rows, components.ContentCard("Liquid balance", chart, cw))
	}
	return strings.Join(rows, "\n")
}

func kvLines(pairs [][2]string) string {
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	lines := make([]string, len(pairs))
	for i, p := range pairs {
		lines[i] = label.Render(fmt.Sprintf("%-*s", width+2, p[0])) + value.Render(p[1])
	}
	return strings.Join(lines, "\n")
}

// shareLines shows how much of the money sits in deposits on average, at the
// peak and on the last day.
func shareLines(balances []model.DailyBalance, width int) string {
	if len(balances) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Active.TextDim).Render("no feasible plan")
	}
	var sum float64
	peak := 0
	for i, b := range balances {
		sum += investedShare(b)
		if investedShare(b) > investedShare(balances[peak]) {
			peak = i
		}
	}
	last := balances[len(balances)-1]

	barW := max(width-26, 8)
	return strings.Join([]string{
		components.ShareBar("Average", sum/float64(len(balances)), "", 8, barW),
		components.ShareBar("Peak", investedShare(balances[peak]), balances[peak].Date.String(), 8, barW),
		components.ShareBar("Last day", investedShare(last), last.Date.String(), 8, barW),
	}, "\n")
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with the background
// color so gaps between cards are filled.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line, lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes use the same widths as RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}
