// Package feed is the terminal memo feed: a masonry of memo cards that
// loads further pages as the reader scrolls.
package feed

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/lazypower/memofeed/internal/masonry"
	"github.com/lazypower/memofeed/internal/pager"
	"github.com/lazypower/memofeed/internal/store"
)

// Options configures a feed Model.
type Options struct {
	// Title is shown in the header panel, e.g. the active filter.
	Title string
	// MinColumnWidth is the column width, in cells, that one more column
	// needs before the masonry splits.
	MinColumnWidth int
	// PlaceholderHeight is the row count assumed for a card before it is
	// measured.
	PlaceholderHeight int
	// Style is the glamour style used for memo bodies.
	Style  string
	Pager  pager.Options
	Logger *log.Logger
}

type changedMsg struct{}

type errMsg struct{ err error }

const (
	defaultWidth  = 80
	defaultHeight = 24
	footerHeight  = 1
)

// Model is the bubbletea model of the feed.
type Model struct {
	opts    Options
	keys    KeyMap
	driver  *pager.Driver[store.Memo]
	layout  *masonry.Layout
	scroll  *scrollState
	cards   *cardRenderer
	spinner spinner.Model

	ctx     context.Context
	cancel  context.CancelFunc
	changes chan struct{}

	memos    map[string]store.Memo
	rendered map[string]string
	header   string

	width, height int
	offset        int
	listMode      bool
	err           error
}

// New builds a feed over src. Extra pager options are applied after the
// ones derived from opts.
func New(src pager.Source[store.Memo], opts Options, extra ...pager.Option) *Model {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.MinColumnWidth <= 0 {
		opts.MinColumnWidth = 40
	}
	if opts.PlaceholderHeight <= 0 {
		opts.PlaceholderHeight = 6
	}
	if opts.Pager == (pager.Options{}) {
		opts.Pager = pager.DefaultOptions()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleTitle

	m := &Model{
		opts:     opts,
		keys:     DefaultKeyMap(),
		scroll:   &scrollState{},
		cards:    newCardRenderer(opts.Style),
		spinner:  sp,
		changes:  make(chan struct{}, 1),
		memos:    make(map[string]store.Memo),
		rendered: make(map[string]string),
		width:    defaultWidth,
		height:   defaultHeight,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	options := []pager.Option{
		pager.WithOptions(opts.Pager),
		pager.WithLogger(opts.Logger),
		pager.WithOnChange(m.signal),
	}
	m.driver = pager.New(src, m.scroll, append(options, extra...)...)

	m.layout = masonry.NewLayout(m.columns(), masonry.Options{
		PlaceholderHeight: float64(opts.PlaceholderHeight),
	})
	m.renderHeader()
	m.syncScroll()
	return m
}

// Close stops the driver and waits for in-flight requests to finish.
func (m *Model) Close() {
	m.driver.Close()
	m.cancel()
	m.driver.Wait()
}

// signal is the driver's change callback. Signals coalesce: the model
// re-reads the full driver state on every wake-up.
func (m *Model) signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) start() tea.Cmd {
	return func() tea.Msg {
		if err := m.driver.Start(m.ctx); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.start(), m.waitForChange(), m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.relayout()
		m.driver.Check()
		return m, nil

	case changedMsg:
		m.sync()
		return m, m.waitForChange()

	case errMsg:
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scrollBy(-3)
		case tea.MouseButtonWheelDown:
			m.scrollBy(3)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.scrollBy(-1)
		case key.Matches(msg, m.keys.Down):
			m.scrollBy(1)
		case key.Matches(msg, m.keys.PageUp):
			m.scrollBy(-m.bodyHeight())
		case key.Matches(msg, m.keys.PageDown):
			m.scrollBy(m.bodyHeight())
		case key.Matches(msg, m.keys.Top):
			m.scrollTo(0)
		case key.Matches(msg, m.keys.Bottom):
			m.scrollTo(m.maxOffset())
		case key.Matches(msg, m.keys.ListMode):
			m.listMode = !m.listMode
			m.relayout()
			m.driver.Check()
		case key.Matches(msg, m.keys.Reload):
			m.reload()
		}
		return m, nil
	}
	return m, nil
}

// sync pulls the driver's items into the layout, measuring new cards
// before they are placed.
func (m *Model) sync() {
	items := m.driver.Items()
	ids := make([]string, len(items))
	width := m.columnWidth()
	for i, memo := range items {
		ids[i] = memo.UID
		if _, ok := m.memos[memo.UID]; !ok {
			m.memos[memo.UID] = memo
			m.measure(memo, width)
		}
	}
	m.layout.SetItems(ids)
	m.renderHeader()
	m.syncScroll()
}

func (m *Model) measure(memo store.Memo, width int) {
	card := m.cards.Render(memo, width)
	m.rendered[memo.UID] = card
	m.layout.SetHeight(memo.UID, float64(lipgloss.Height(card)))
}

// relayout re-measures every card for the current width, then updates
// the column count.
func (m *Model) relayout() {
	width := m.columnWidth()
	for _, memo := range m.memos {
		m.measure(memo, width)
	}
	m.layout.SetListMode(m.listMode)
	m.layout.SetColumns(m.columns())
	m.renderHeader()
	m.scrollTo(m.offset)
}

func (m *Model) reload() {
	m.memos = make(map[string]store.Memo)
	m.rendered = make(map[string]string)
	m.layout.SetItems(nil)
	m.offset = 0
	m.err = nil
	m.renderHeader()
	m.syncScroll()
	m.driver.Reset()
}

func (m *Model) renderHeader() {
	m.header = renderHeader(m.opts.Title, m.layout.Len(), m.columnWidth())
	m.layout.SetPrefixHeight(float64(lipgloss.Height(m.header)))
}

func (m *Model) columns() int {
	return masonry.ColumnsForWidth(m.width, m.opts.MinColumnWidth, m.listMode)
}

func (m *Model) columnWidth() int {
	cols := m.columns()
	w := (m.width - columnGap*(cols-1)) / cols
	if w < 1 {
		w = 1
	}
	return w
}

func (m *Model) bodyHeight() int {
	if h := m.height - footerHeight; h > 0 {
		return h
	}
	return 1
}

func (m *Model) contentHeight() int {
	return int(m.layout.Height())
}

func (m *Model) maxOffset() int {
	if d := m.contentHeight() - m.bodyHeight(); d > 0 {
		return d
	}
	return 0
}

func (m *Model) scrollBy(delta int) {
	m.scrollTo(m.offset + delta)
}

// scrollTo clamps and applies the offset, then gives the driver a chance
// to load the next page.
func (m *Model) scrollTo(offset int) {
	m.offset = min(max(offset, 0), m.maxOffset())
	m.syncScroll()
	m.driver.OnScroll()
}

func (m *Model) syncScroll() {
	m.scroll.set(m.offset, m.bodyHeight(), m.contentHeight())
}

func (m *Model) View() string {
	body := m.renderBody()
	lines := strings.Split(body, "\n")

	start := min(m.offset, len(lines))
	end := min(start+m.bodyHeight(), len(lines))
	visible := lines[start:end]
	for len(visible) < m.bodyHeight() {
		visible = append(visible, "")
	}

	return strings.Join(visible, "\n") + "\n" + m.footer()
}

func (m *Model) renderBody() string {
	dist := m.layout.Distribution()
	width := m.columnWidth()
	cols := make([]string, len(dist))
	for c, col := range dist {
		parts := make([]string, 0, len(col)+1)
		if c == 0 {
			parts = append(parts, m.header)
		}
		for _, i := range col {
			parts = append(parts, m.rendered[m.layout.ID(i)])
		}
		style := lipgloss.NewStyle().Width(width)
		if c < len(dist)-1 {
			style = style.MarginRight(columnGap)
		}
		cols[c] = style.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m *Model) footer() string {
	if m.err != nil {
		return styleError.Render("error: " + m.err.Error())
	}
	if err := m.driver.Err(); err != nil {
		return styleError.Render("fetch failed: "+err.Error()) + styleDim.Render(" · scroll to retry, r to reload")
	}
	switch m.driver.State() {
	case pager.Fetching:
		return m.spinner.View() + styleDim.Render(" loading")
	case pager.Exhausted:
		if m.layout.Len() == 0 {
			return styleDim.Render("no memos")
		}
		return styleDim.Render("end of feed · " + m.keys.help())
	}
	return styleDim.Render(m.keys.help())
}

func joinDot(parts []string) string {
	return strings.Join(parts, " · ")
}
