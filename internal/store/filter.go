package store

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Filter narrows a memo listing. The zero Filter matches everything.
//
// Its text form is a comma-separated list of factor:value terms, e.g.
//
//	tagSearch:books,visibility:PUBLIC,property.hasLink
//
// Values are URL path-escaped so they may contain commas and colons.
type Filter struct {
	Tags          []string
	Visibilities  []string
	ContentSearch []string
	DisplayDate   string // YYYY-MM-DD, UTC
	Creator       string
	Pinned        *bool
	HasLink       *bool
	HasTaskList   *bool
	HasCode       *bool
}

const displayDateLayout = "2006-01-02"

// ParseFilter parses the text form of a Filter. Unknown factors and
// malformed values wrap ErrInvalidFilter.
func ParseFilter(s string) (Filter, error) {
	var f Filter
	for _, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		factor, raw, _ := strings.Cut(term, ":")
		value, err := url.PathUnescape(raw)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %q: %v", ErrInvalidFilter, term, err)
		}

		switch factor {
		case "tagSearch":
			if value == "" {
				return Filter{}, fmt.Errorf("%w: tagSearch needs a tag", ErrInvalidFilter)
			}
			f.Tags = append(f.Tags, value)
		case "visibility":
			if !validVisibility(value) {
				return Filter{}, fmt.Errorf("%w: visibility %q", ErrInvalidFilter, value)
			}
			f.Visibilities = append(f.Visibilities, value)
		case "contentSearch":
			if value == "" {
				return Filter{}, fmt.Errorf("%w: contentSearch needs text", ErrInvalidFilter)
			}
			f.ContentSearch = append(f.ContentSearch, value)
		case "displayTime":
			if _, err := time.Parse(displayDateLayout, value); err != nil {
				return Filter{}, fmt.Errorf("%w: displayTime %q", ErrInvalidFilter, value)
			}
			f.DisplayDate = value
		case "creator":
			f.Creator = value
		case "pinned":
			b, err := parseFlag(value)
			if err != nil {
				return Filter{}, fmt.Errorf("%w: pinned %q", ErrInvalidFilter, value)
			}
			f.Pinned = &b
		case "property.hasLink", "property.hasTaskList", "property.hasCode":
			b, err := parseFlag(value)
			if err != nil {
				return Filter{}, fmt.Errorf("%w: %s %q", ErrInvalidFilter, factor, value)
			}
			switch factor {
			case "property.hasLink":
				f.HasLink = &b
			case "property.hasTaskList":
				f.HasTaskList = &b
			default:
				f.HasCode = &b
			}
		default:
			return Filter{}, fmt.Errorf("%w: unknown factor %q", ErrInvalidFilter, factor)
		}
	}
	return f, nil
}

func parseFlag(v string) (bool, error) {
	switch v {
	case "", "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, errors.New("not a boolean")
}

// String returns the text form accepted by ParseFilter.
func (f Filter) String() string {
	var terms []string
	add := func(factor, value string) {
		terms = append(terms, factor+":"+url.PathEscape(value))
	}
	for _, t := range f.Tags {
		add("tagSearch", t)
	}
	for _, v := range f.Visibilities {
		add("visibility", v)
	}
	for _, c := range f.ContentSearch {
		add("contentSearch", c)
	}
	if f.DisplayDate != "" {
		add("displayTime", f.DisplayDate)
	}
	if f.Creator != "" {
		add("creator", f.Creator)
	}
	if f.Pinned != nil {
		add("pinned", fmt.Sprint(*f.Pinned))
	}
	flag := func(factor string, v *bool) {
		switch {
		case v == nil:
		case *v:
			terms = append(terms, factor)
		default:
			terms = append(terms, factor+":false")
		}
	}
	flag("property.hasLink", f.HasLink)
	flag("property.hasTaskList", f.HasTaskList)
	flag("property.hasCode", f.HasCode)
	return strings.Join(terms, ",")
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.String() == ""
}

// where renders the filter as SQL conditions joined by AND. Tags match
// exactly or as a parent of a nested tag: "go" matches "go/generics".
func (f Filter) where() ([]string, []any) {
	var conds []string
	var args []any

	for _, t := range f.Tags {
		conds = append(conds, `EXISTS (SELECT 1 FROM json_each(memos.tags) WHERE value = ? OR value LIKE ? ESCAPE '\')`)
		args = append(args, t, escapeLike(t)+"/%")
	}
	if len(f.Visibilities) > 0 {
		conds = append(conds, "visibility IN ("+placeholders(len(f.Visibilities))+")")
		for _, v := range f.Visibilities {
			args = append(args, v)
		}
	}
	for _, c := range f.ContentSearch {
		conds = append(conds, `content LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(c)+"%")
	}
	if f.DisplayDate != "" {
		day, _ := time.Parse(displayDateLayout, f.DisplayDate)
		conds = append(conds, "display_time >= ? AND display_time < ?")
		args = append(args, day.UnixMilli(), day.Add(24*time.Hour).UnixMilli())
	}
	if f.Creator != "" {
		conds = append(conds, "creator = ?")
		args = append(args, f.Creator)
	}
	if f.Pinned != nil {
		conds = append(conds, "pinned = ?")
		args = append(args, boolInt(*f.Pinned))
	}
	for _, p := range []struct {
		column string
		want   *bool
	}{
		{"has_link", f.HasLink},
		{"has_task_list", f.HasTaskList},
		{"has_code", f.HasCode},
	} {
		if p.want != nil {
			conds = append(conds, p.column+" = ?")
			args = append(args, boolInt(*p.want))
		}
	}
	return conds, args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
