// Package markdown extracts filterable properties from memo content.
package markdown

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Properties are derived from a memo's markdown when it is saved.
type Properties struct {
	Tags        []string
	HasLink     bool
	HasTaskList bool
	HasCode     bool
}

var md = goldmark.New(goldmark.WithExtensions(extension.TaskList, extension.Linkify))

var tagPattern = regexp.MustCompile(`#([\p{L}\p{N}_\-/]+)`)

// Inspect parses content and reports its tags and properties. Tags are
// unique, in order of first appearance; tags inside code are ignored.
func Inspect(content string) Properties {
	src := []byte(content)
	doc := md.Parser().Parse(text.NewReader(src))

	var p Properties
	seen := make(map[string]bool)

	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindLink, ast.KindAutoLink:
			p.HasLink = true
		case ast.KindCodeSpan:
			p.HasCode = true
			return ast.WalkSkipChildren, nil
		case ast.KindCodeBlock, ast.KindFencedCodeBlock:
			p.HasCode = true
			return ast.WalkSkipChildren, nil
		case extast.KindTaskCheckBox:
			p.HasTaskList = true
		case ast.KindText:
			seg := n.(*ast.Text).Segment
			value := seg.Value(src)
			for _, m := range tagPattern.FindAllSubmatchIndex(value, -1) {
				// A tag starts a word: "a#b" is not a tag.
				if pos := seg.Start + m[0]; pos > 0 && !isSpace(src[pos-1]) {
					continue
				}
				tag := strings.Trim(string(value[m[2]:m[3]]), "/")
				if tag != "" && !seen[tag] {
					seen[tag] = true
					p.Tags = append(p.Tags, tag)
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return p
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
