// Package readers summarises document markdown without parsing it into a
// typed record.
package readers

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// Section is one heading and the list items directly beneath it.
type Section struct {
	Level int    `json:"level"`
	Title string `json:"title"`
	Line  int    `json:"line_number"`
	Items int    `json:"item_count"`
}

// Outline is the structural summary of a markdown document.
type Outline struct {
	Hash       string    `json:"hash"`
	Sections   []Section `json:"sections"`
	CodeBlocks int       `json:"code_block_count"`
	Links      int       `json:"link_count"`
	Lines      int       `json:"line_count"`
	Words      int       `json:"word_count"`
}

// Hash is the hex xxhash of text with line endings normalised.
func Hash(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(strings.ReplaceAll(text, "\r\n", "\n")), 16)
}

// ReadMarkdown builds an outline of text.
func ReadMarkdown(text string) Outline {
	src := []byte(strings.ReplaceAll(text, "\r\n", "\n"))
	out := Outline{
		Hash:     Hash(text),
		Sections: []Section{},
		Lines:    strings.Count(string(src), "\n") + 1,
		Words:    len(strings.Fields(string(src))),
	}
	if len(src) == 0 {
		out.Lines = 0
	}

	root := markdown.Parser().Parse(gtext.NewReader(src))
	var current *Section
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			out.Sections = append(out.Sections, Section{
				Level: node.Level,
				Title: headingText(node, src),
				Line:  lineOf(node, src),
			})
			current = &out.Sections[len(out.Sections)-1]
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			// Nested items count toward their parent.
			if current != nil && node.Parent() != nil && node.Parent().Parent() == root {
				current.Items++
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			out.CodeBlocks++
			return ast.WalkSkipChildren, nil
		case *ast.Link, *ast.AutoLink:
			out.Links++
		}
		return ast.WalkContinue, nil
	})
	return out
}

func headingText(n ast.Node, src []byte) string {
	lines := n.Lines()
	if lines == nil {
		return ""
	}
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimSpace(b.String())
}

// lineOf reports the 1-based source line where a block starts.
func lineOf(n ast.Node, src []byte) int {
	lines := n.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0
	}
	start := lines.At(0).Start
	if start > len(src) {
		start = len(src)
	}
	return strings.Count(string(src[:start]), "\n") + 1
}
