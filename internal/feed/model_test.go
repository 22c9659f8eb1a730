package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lazypower/memofeed/internal/pager"
	"github.com/lazypower/memofeed/internal/store"
)

// heldScheduler never fires, so only scroll signals trigger fetches.
type heldScheduler struct{}

type heldTimer struct{}

func (heldTimer) Stop() bool { return true }

func (heldScheduler) AfterFunc(time.Duration, func()) pager.Timer { return heldTimer{} }

type pagedSource struct {
	mu    sync.Mutex
	pages map[string]pager.Page[store.Memo]
	fail  error
	calls []string
}

func (s *pagedSource) FetchPage(ctx context.Context, cursor string) (pager.Page[store.Memo], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, cursor)
	if s.fail != nil {
		return pager.Page[store.Memo]{}, s.fail
	}
	return s.pages[cursor], nil
}

func (s *pagedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func testMemos(prefix string, n int) []store.Memo {
	out := make([]store.Memo, n)
	for i := range out {
		out[i] = store.Memo{
			UID:         fmt.Sprintf("%s%d", prefix, i),
			Content:     fmt.Sprintf("memo %s%d", prefix, i),
			DisplayTime: time.Now().UnixMilli(),
		}
	}
	return out
}

func twoPages() *pagedSource {
	return &pagedSource{pages: map[string]pager.Page[store.Memo]{
		"":   {Items: testMemos("a", 3), NextCursor: "p2"},
		"p2": {Items: testMemos("b", 2)},
	}}
}

func newTestModel(t *testing.T, src pager.Source[store.Memo]) *Model {
	t.Helper()
	m := New(src, Options{Style: "notty", MinColumnWidth: 40, Pager: pager.DefaultOptions()},
		pager.WithScheduler(heldScheduler{}))
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return m
}

// pump feeds change notifications to the model until cond holds.
func pump(t *testing.T, m *Model, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		ch := make(chan tea.Msg, 1)
		go func() { ch <- m.waitForChange()() }()
		select {
		case msg := <-ch:
			m.Update(msg)
		case <-deadline:
			t.Fatal("timed out waiting for feed update")
		}
	}
}

func press(m *Model, k string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return lines[len(lines)-1]
}

func TestFeedLoadsFirstPage(t *testing.T) {
	src := twoPages()
	m := newTestModel(t, src)

	m.start()()
	pump(t, m, func() bool { return m.layout.Len() == 3 })

	if got := m.layout.Columns(); got != 2 {
		t.Errorf("Columns = %d, want 2 at width 80", got)
	}
	view := m.View()
	for _, want := range []string{"memofeed", "memo a0", "memo a2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if n := src.callCount(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}

func TestFeedScrollLoadsNextPage(t *testing.T) {
	src := twoPages()
	m := newTestModel(t, src)

	m.start()()
	pump(t, m, func() bool { return m.layout.Len() == 3 })

	press(m, "j")
	pump(t, m, func() bool { return m.layout.Len() == 5 && m.driver.State() == pager.Exhausted })

	if !strings.Contains(lastLine(m.View()), "end of feed") {
		t.Errorf("footer = %q, want end of feed", lastLine(m.View()))
	}

	// Exhausted feeds ignore further scrolling.
	press(m, "j")
	if n := src.callCount(); n != 2 {
		t.Errorf("fetches = %d, want 2", n)
	}
}

func TestFeedListMode(t *testing.T) {
	m := newTestModel(t, twoPages())
	m.start()()
	pump(t, m, func() bool { return m.layout.Len() == 3 })

	press(m, "l")
	if got := m.layout.Columns(); got != 1 {
		t.Fatalf("Columns = %d, want 1 in list mode", got)
	}
	dist := m.layout.Distribution()
	if len(dist) != 1 || len(dist[0]) != 3 || dist[0][0] != 0 || dist[0][2] != 2 {
		t.Errorf("list distribution = %v, want [[0 1 2]]", dist)
	}

	press(m, "l")
	if got := m.layout.Columns(); got != 2 {
		t.Errorf("Columns = %d after leaving list mode, want 2", got)
	}
}

func TestFeedResizeChangesColumns(t *testing.T) {
	m := newTestModel(t, twoPages())
	m.start()()
	pump(t, m, func() bool { return m.layout.Len() == 3 })

	m.Update(tea.WindowSizeMsg{Width: 200, Height: 30})
	if got := m.layout.Columns(); got != 5 {
		t.Errorf("Columns = %d at width 200, want 5", got)
	}
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	if got := m.layout.Columns(); got != 1 {
		t.Errorf("Columns = %d at width 60, want 1", got)
	}
}

func TestFeedFetchError(t *testing.T) {
	src := &pagedSource{fail: errors.New("server down")}
	m := newTestModel(t, src)

	m.start()()
	pump(t, m, func() bool { return m.driver.Err() != nil })

	if footer := lastLine(m.View()); !strings.Contains(footer, "server down") {
		t.Errorf("footer = %q, want the error", footer)
	}
}

func TestFeedEmpty(t *testing.T) {
	src := &pagedSource{pages: map[string]pager.Page[store.Memo]{}}
	m := newTestModel(t, src)

	m.start()()
	pump(t, m, func() bool { return m.driver.State() == pager.Exhausted })

	if footer := lastLine(m.View()); !strings.Contains(footer, "no memos") {
		t.Errorf("footer = %q, want no memos", footer)
	}
}

func TestFeedReload(t *testing.T) {
	src := twoPages()
	m := newTestModel(t, src)
	m.start()()
	pump(t, m, func() bool { return m.layout.Len() == 3 })

	press(m, "r")
	if m.layout.Len() != 0 {
		t.Errorf("layout has %d items right after reload, want 0", m.layout.Len())
	}
	pump(t, m, func() bool { return m.layout.Len() == 3 })

	src.mu.Lock()
	calls := append([]string(nil), src.calls...)
	src.mu.Unlock()
	if len(calls) != 2 || calls[0] != "" || calls[1] != "" {
		t.Errorf("calls = %q, want two first-page fetches", calls)
	}
}

func TestFeedScrollClamps(t *testing.T) {
	m := newTestModel(t, twoPages())
	m.start()()
	pump(t, m, func() bool { return m.layout.Len() == 3 })

	press(m, "k")
	if m.offset != 0 {
		t.Errorf("offset = %d after scrolling up at top, want 0", m.offset)
	}
	press(m, "G")
	if m.offset != m.maxOffset() {
		t.Errorf("offset = %d after G, want %d", m.offset, m.maxOffset())
	}
	if got := m.scroll.ScrollTop(); got != m.offset {
		t.Errorf("viewport ScrollTop = %d, want %d", got, m.offset)
	}
}
