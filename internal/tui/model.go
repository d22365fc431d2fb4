// Package tui provides the Bubble Tea interface for suggestions, browsing and the log.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/topicq/internal/app"
	"github.com/verte-zerg/topicq/internal/model"
	"github.com/verte-zerg/topicq/internal/stats"
	"github.com/verte-zerg/topicq/internal/suggest"
)

const (
	tabSuggest = iota
	tabBrowse
	tabLog
)

type mode int

const (
	modeNormal mode = iota
	modeQuery
	modeMemo
	modeGroups
	modePerson
	modeConfirm
)

type confirmAction int

const (
	confirmVisible confirmAction = iota
	confirmAll
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	groupStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	modalStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Model implements the Bubble Tea application UI.
type Model struct {
	app *app.App
	ctx context.Context
	sel model.Selection
	now func() time.Time

	tabs      []string
	activeTab int
	cursors   []int
	viewport  viewport.Model

	width  int
	height int

	mode       mode
	input      textinput.Model
	pickCursor int
	confirm    confirmAction

	suggestions []model.Suggestion
	qstats      stats.QuestionStats
	rows        []browseRow
	logs        []model.Entry

	status string
	errMsg string
}

// NewModel constructs the UI over an initial selection.
func NewModel(a *app.App, sel model.Selection) *Model {
	m := &Model{
		app:      a,
		ctx:      context.Background(),
		sel:      sel,
		now:      time.Now,
		tabs:     []string{"Suggest", "Browse", "Log"},
		cursors:  make([]int, 3),
		viewport: viewport.New(0, 0),
		input:    newInput(),
	}
	m.refresh()
	return m
}

// Selection returns the current selection.
func (m *Model) Selection() model.Selection {
	return m.sel
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderContent()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeQuery, modeMemo:
			return m.updateInput(msg)
		case modeGroups:
			return m.updateGroupPicker(msg)
		case modePerson:
			return m.updatePersonPicker(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateNormal(msg)
		}
	default:
		if m.mode == modeQuery || m.mode == modeMemo {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func newInput() textinput.Model {
	input := textinput.New()
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h", "shift+tab":
		m.moveTab(-1)
	case "right", "l", "tab":
		m.moveTab(1)
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "/":
		return m.startInput(modeQuery, "Search: ", m.sel.Query)
	case "m":
		return m.startInput(modeMemo, "Memo: ", "")
	case "g":
		m.mode = modeGroups
		m.pickCursor = 0
	case "p":
		m.mode = modePerson
		m.pickCursor = 0
	case "a":
		m.logCurrent(app.Asked)
	case "s":
		m.logCurrent(app.Pass)
	case "enter", " ":
		if m.activeTab == tabBrowse {
			m.toggleCurrent()
		}
	case "d":
		if m.activeTab == tabLog {
			m.deleteCurrent()
		}
	case "D":
		if m.activeTab == tabLog {
			m.mode = modeConfirm
			m.confirm = confirmVisible
		}
	case "X":
		if m.activeTab == tabLog {
			m.mode = modeConfirm
			m.confirm = confirmAll
		}
	default:
		return m, nil
	}
	m.renderContent()
	return m, nil
}

func (m *Model) startInput(md mode, prompt, value string) (tea.Model, tea.Cmd) {
	m.mode = md
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.updateLayout()
	return m, m.input.Focus()
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		md := m.mode
		m.mode = modeNormal
		m.input.Blur()
		if md == modeQuery {
			m.sel.Query = strings.TrimSpace(value)
			m.resetCursors()
			m.refresh()
			return m, nil
		}
		m.saveMemo(value)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateGroupPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	groups := m.app.Catalog().Groups()
	switch msg.String() {
	case "up", "k":
		m.pickCursor = clampIndex(m.pickCursor-1, len(groups))
	case "down", "j":
		m.pickCursor = clampIndex(m.pickCursor+1, len(groups))
	case " ", "x":
		if m.pickCursor < len(groups) {
			m.sel.GroupIDs = toggleID(m.sel.GroupIDs, groups[m.pickCursor].ID)
		}
	case "enter", "esc", "g", "q":
		m.mode = modeNormal
		m.resetCursors()
		m.refresh()
	}
	return m, nil
}

func (m *Model) updatePersonPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	options := m.app.PersonOptions(m.sel)
	count := len(options) + 1
	switch msg.String() {
	case "up", "k":
		m.pickCursor = clampIndex(m.pickCursor-1, count)
	case "down", "j":
		m.pickCursor = clampIndex(m.pickCursor+1, count)
	case "enter":
		if m.pickCursor == 0 {
			m.sel.PersonID = ""
		} else if m.pickCursor-1 < len(options) {
			m.sel.PersonID = options[m.pickCursor-1].ID
		}
		m.mode = modeNormal
		m.resetCursors()
		m.refresh()
	case "esc", "p", "q":
		m.mode = modeNormal
	}
	return m, nil
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNormal
	if msg.String() != "y" && msg.String() != "Y" {
		m.setStatus("Cancelled.")
		m.renderContent()
		return m, nil
	}
	switch m.confirm {
	case confirmVisible:
		n, err := m.app.DeleteVisible(m.ctx, m.sel)
		if err != nil {
			m.setError(err)
			break
		}
		m.setStatus(fmt.Sprintf("Deleted %d entries.", n))
	case confirmAll:
		if err := m.app.DeleteAll(m.ctx); err != nil {
			m.setError(err)
			break
		}
		m.setStatus("Deleted all entries.")
	}
	m.refresh()
	return m, nil
}

func (m *Model) logCurrent(md app.Mode) {
	var question string
	var ref app.QuestionRef
	switch m.activeTab {
	case tabSuggest:
		idx := m.cursors[tabSuggest]
		if idx >= len(m.suggestions) {
			return
		}
		s := m.suggestions[idx]
		question = s.Text
		ref = app.QuestionRef{GroupID: s.GroupID, PersonID: s.PersonID}
	case tabBrowse:
		idx := m.cursors[tabBrowse]
		if idx >= len(m.rows) || m.rows[idx].kind != rowQuestion {
			return
		}
		row := m.rows[idx]
		question = row.question
		ref = app.QuestionRef{GroupID: row.groupID, PersonID: row.personID}
	default:
		return
	}
	e, err := m.app.LogQuestion(m.ctx, m.sel, md, question, ref)
	if err != nil {
		m.setError(err)
		return
	}
	m.setStatus(fmt.Sprintf("Logged %s: %s", typeLabel(e), e.Text))
	m.refresh()
}

func (m *Model) saveMemo(text string) {
	e, err := m.app.SaveMemo(m.ctx, m.sel, text)
	if err != nil {
		m.setError(err)
		m.renderContent()
		return
	}
	m.setStatus(fmt.Sprintf("Saved memo for %s.", e.GroupName))
	m.refresh()
}

func (m *Model) toggleCurrent() {
	idx := m.cursors[tabBrowse]
	if idx >= len(m.rows) || m.rows[idx].kind != rowPerson {
		return
	}
	row := m.rows[idx]
	if err := m.app.SetOpen(m.ctx, row.groupID, row.personID, !row.open); err != nil {
		m.setError(err)
		return
	}
	m.refresh()
}

func (m *Model) deleteCurrent() {
	idx := m.cursors[tabLog]
	if idx >= len(m.logs) {
		return
	}
	if err := m.app.DeleteEntry(m.ctx, m.logs[idx].ID); err != nil {
		m.setError(err)
		return
	}
	m.setStatus("Deleted entry.")
	m.refresh()
}

func (m *Model) refresh() {
	m.sel = m.app.ResolveSelection(m.sel)
	m.qstats = m.app.Stats(m.ctx)
	m.suggestions = m.app.Suggest(m.ctx, m.sel)
	m.rows = buildRows(suggest.Candidates(m.app.Catalog(), m.sel), m.app.OpenRows(m.ctx))
	m.logs = m.app.VisibleLogs(m.ctx, m.sel)
	m.clampCursors()
	m.renderContent()
}

func (m *Model) setStatus(msg string) {
	m.status = msg
	m.errMsg = ""
}

func (m *Model) setError(err error) {
	m.status = ""
	m.errMsg = errorText(err)
}

func errorText(err error) string {
	switch {
	case errors.Is(err, app.ErrNoGroupSelected):
		return "Select at least one group first (g)."
	case errors.Is(err, app.ErrNoPerson):
		return "Pick a person first (p)."
	case errors.Is(err, app.ErrEmptyMemo):
		return "Memo is empty."
	case errors.Is(err, app.ErrNothingToDelete):
		return "Nothing to delete."
	default:
		return err.Error()
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	m.viewport.GotoTop()
}

func (m *Model) moveCursor(delta int) {
	m.cursors[m.activeTab] = clampIndex(m.cursors[m.activeTab]+delta, m.itemCount(m.activeTab))
}

func (m *Model) itemCount(tab int) int {
	switch tab {
	case tabSuggest:
		return len(m.suggestions)
	case tabBrowse:
		return len(m.rows)
	default:
		return len(m.logs)
	}
}

func (m *Model) resetCursors() {
	for i := range m.cursors {
		m.cursors[i] = 0
	}
	m.viewport.GotoTop()
}

func (m *Model) clampCursors() {
	for i := range m.cursors {
		m.cursors[i] = clampIndex(m.cursors[i], m.itemCount(i))
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 2
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.viewport.Width = m.width
	m.viewport.Height = bodyHeight
	promptWidth := lipgloss.Width(m.input.Prompt)
	m.input.Width = maxInt(10, m.width-promptWidth-2)
}

func (m *Model) renderContent() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	lines := m.contentLines(width)
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.scrollToCursor()
}

func (m *Model) scrollToCursor() {
	if m.viewport.Height <= 0 {
		return
	}
	cur := m.cursors[m.activeTab]
	switch {
	case cur < m.viewport.YOffset:
		m.viewport.SetYOffset(cur)
	case cur >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(cur - m.viewport.Height + 1)
	}
}

func (m *Model) contentLines(width int) []string {
	if !m.sel.HasGroups() && m.activeTab != tabLog {
		return []string{mutedStyle.Render("No groups selected. Press g to choose groups.")}
	}
	now := m.now()
	cur := m.cursors[m.activeTab]
	var plain []string
	switch m.activeTab {
	case tabSuggest:
		if len(m.suggestions) == 0 {
			return []string{mutedStyle.Render("No suggestions. Everything is cooling down or retired.")}
		}
		for _, s := range m.suggestions {
			plain = append(plain, suggestionLine(s, now))
		}
	case tabBrowse:
		if len(m.rows) == 0 {
			return []string{mutedStyle.Render("No people match.")}
		}
		for _, row := range m.rows {
			plain = append(plain, row.line(m.qstats, now))
		}
	default:
		if len(m.logs) == 0 {
			return []string{mutedStyle.Render("No log entries.")}
		}
		for _, e := range m.logs {
			plain = append(plain, entryLine(e))
		}
	}
	lines := make([]string, len(plain))
	for i, line := range plain {
		line = stats.Truncate(line, width-2)
		switch {
		case i == cur:
			lines[i] = selectedStyle.Render("> " + line)
		case m.activeTab == tabBrowse && m.rows[i].kind == rowGroup:
			lines[i] = "  " + groupStyle.Render(line)
		default:
			lines[i] = "  " + line
		}
	}
	return lines
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	return tabs + "\n" + headerStyle.Render(stats.Truncate(m.selectionSummary(), m.width))
}

func (m *Model) selectionSummary() string {
	catalog := m.app.Catalog()
	names := make([]string, 0, len(m.sel.GroupIDs))
	for _, id := range m.sel.GroupIDs {
		if g, ok := catalog.Group(id); ok {
			names = append(names, g.Name)
		}
	}
	groups := "none"
	if len(names) > 0 {
		groups = strings.Join(names, ", ")
	}
	person := "anyone"
	if p, ok := catalog.FocalPerson(m.sel); ok {
		person = p.Name
	}
	summary := fmt.Sprintf("Groups: %s  Person: %s", groups, person)
	if m.sel.Query != "" {
		summary += fmt.Sprintf("  Search: %s", m.sel.Query)
	}
	return summary
}

func (m *Model) renderHelp() string {
	common := "g: groups  p: person  /: search  m: memo  q: quit"
	switch m.activeTab {
	case tabSuggest:
		return "a: asked  s: pass  " + common
	case tabBrowse:
		return "enter: expand  a: asked  s: pass  " + common
	default:
		return "d: delete  D: delete visible  X: delete all  " + common
	}
}

func (m *Model) renderFooter() string {
	switch m.mode {
	case modeQuery, modeMemo:
		return m.input.View() + "\n" + headerStyle.Render("enter: apply  esc: cancel")
	case modeGroups:
		return headerStyle.Render("space: toggle  enter: done")
	case modePerson:
		return headerStyle.Render("enter: choose  esc: cancel")
	case modeConfirm:
		return headerStyle.Render("y: confirm  any other key: cancel")
	}
	help := headerStyle.Render(stats.Truncate(m.renderHelp(), m.width))
	switch {
	case m.errMsg != "":
		return help + "\n" + errorStyle.Render(m.errMsg)
	case m.status != "":
		return help + "\n" + statusStyle.Render(m.status)
	default:
		return help
	}
}

func (m *Model) renderBody() string {
	switch m.mode {
	case modeGroups:
		return m.renderGroupPicker()
	case modePerson:
		return m.renderPersonPicker()
	case modeConfirm:
		msg := fmt.Sprintf("Delete the %d visible log entries?", len(m.logs))
		if m.confirm == confirmAll {
			msg = "Delete the entire log?"
		}
		return modalStyle.Render(msg + "\n\n(y/n)")
	}
	return m.viewport.View()
}

func (m *Model) renderGroupPicker() string {
	groups := m.app.Catalog().Groups()
	selected := m.sel.GroupSet()
	lines := []string{"Groups"}
	for i, g := range groups {
		mark := "[ ]"
		if _, ok := selected[g.ID]; ok {
			mark = "[x]"
		}
		lines = append(lines, pickerLine(fmt.Sprintf("%s %s (%d)", mark, g.Name, len(g.People)), i == m.pickCursor))
	}
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPersonPicker() string {
	options := m.app.PersonOptions(m.sel)
	lines := []string{"Person", pickerLine("(anyone)", m.pickCursor == 0)}
	for i, p := range options {
		lines = append(lines, pickerLine(p.Name, i+1 == m.pickCursor))
	}
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func pickerLine(text string, active bool) string {
	if active {
		return selectedStyle.Render("> " + text)
	}
	return "  " + text
}

func suggestionLine(s model.Suggestion, now time.Time) string {
	return fmt.Sprintf("%s  · %s @ %s  · %s", s.Text, s.PersonName, s.GroupName, statSummary(s.Stat, now))
}

func statSummary(st model.QuestionStat, now time.Time) string {
	return fmt.Sprintf("asked %d · pass %d · %s", st.Asked, st.Pass, stats.FormatAgo(st.LastAskedAt, now))
}

func entryLine(e model.Entry) string {
	parts := []string{e.CreatedAt.Local().Format("2006/01/02 15:04"), typeLabel(e), e.GroupName}
	if e.PersonName != "" {
		parts = append(parts, e.PersonName)
	}
	parts = append(parts, e.Text)
	return strings.Join(parts, "  ")
}

func typeLabel(e model.Entry) string {
	switch e.Kind {
	case model.KindMemo:
		return "memo"
	case model.KindQuestionAsked:
		return "asked"
	case model.KindQuestionPass:
		return "pass"
	}
	if e.RawType != "" {
		return e.RawType
	}
	return "log"
}

func toggleID(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	found := false
	for _, existing := range ids {
		if existing == id {
			found = true
			continue
		}
		out = append(out, existing)
	}
	if !found {
		out = append(out, id)
	}
	return out
}
