package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/lazypower/memofeed/internal/store"
)

// cardRenderer turns memos into bordered cards. Markdown renderers are
// cached per wrap width since glamour fixes the width at construction.
type cardRenderer struct {
	style     string
	renderers map[int]*glamour.TermRenderer
	now       func() time.Time
}

func newCardRenderer(style string) *cardRenderer {
	return &cardRenderer{
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		now:       time.Now,
	}
}

func (r *cardRenderer) markdown(content string, width int) string {
	tr, ok := r.renderers[width]
	if !ok {
		styleOpt := glamour.WithStandardStyle(r.style)
		if r.style == "" || r.style == "auto" {
			styleOpt = glamour.WithAutoStyle()
		}
		var err error
		tr, err = glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
		if err != nil {
			tr = nil
		}
		r.renderers[width] = tr
	}
	if tr == nil {
		return content
	}
	out, err := tr.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// Render draws a card exactly width cells wide.
func (r *cardRenderer) Render(m store.Memo, width int) string {
	inner := width - styleCard.GetHorizontalFrameSize()
	if inner < 8 {
		inner = 8
	}

	meta := relativeTime(m.DisplayTime, r.now())
	if m.Visibility != "" && m.Visibility != store.VisibilityPrivate {
		meta += " · " + strings.ToLower(m.Visibility)
	}
	header := styleMeta.Render(meta)
	if m.Pinned {
		header = stylePin.Render("● ") + header
	}

	parts := []string{header, r.markdown(m.Content, inner)}

	if len(m.Tags) > 0 {
		tags := make([]string, len(m.Tags))
		for i, t := range m.Tags {
			tags[i] = "#" + t
		}
		parts = append(parts, styleTag.Render(strings.Join(tags, " ")))
	}

	body := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return styleCard.Width(width - styleCard.GetHorizontalBorderSize()).Render(body)
}

// renderHeader draws the panel shown above the first column.
func renderHeader(title string, loaded int, width int) string {
	inner := width - styleHeader.GetHorizontalBorderSize()
	lines := []string{styleTitle.Render("memofeed")}
	if title != "" {
		lines = append(lines, styleMeta.Render(title))
	}
	lines = append(lines, styleDim.Render(fmt.Sprintf("%d loaded", loaded)))
	return styleHeader.Width(inner).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func relativeTime(ms int64, now time.Time) string {
	t := time.UnixMilli(ms)
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
