package document

import (
	"bytes"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"respec/internal/apperr"
)

var markdown = goldmark.New()

// today stamps documents parsed without a creation date.
var today = func() string {
	return time.Now().UTC().Format("2006-01-02")
}

var (
	boldLabelRe  = regexp.MustCompile(`(?s)^\*\*([^*\n]+?)\*\*[ \t]*:[ \t]*(.*)$`)
	boldColonRe  = regexp.MustCompile(`(?s)^\*\*([^*\n]+?):\*\*[ \t]*(.*)$`)
	plainLabelRe = regexp.MustCompile(`(?s)^([^:*\n]+?):[ \t]*(.*)$`)
	leadingIntRe = regexp.MustCompile(`^-?\d+`)
	anyTitleRe   = regexp.MustCompile(`(?m)^#[ \t]+([^:\n]+):`)
)

// extraction is the raw, untyped result of reading a document's text. It is
// turned into a typed record by hydrate once defaults are known.
type extraction struct {
	name     string
	values   map[string]string
	lists    map[string][]string
	criteria map[string]int
}

func newExtraction() *extraction {
	return &extraction{
		values:   make(map[string]string),
		lists:    make(map[string][]string),
		criteria: make(map[string]int),
	}
}

func (e *extraction) found() bool {
	return len(e.values) > 0 || len(e.lists) > 0 || len(e.criteria) > 0
}

// Parse reads text produced by Build, or by the older heading-per-field
// layout, into a record of the given kind. Missing fields are defaulted; only
// a missing title line is an error.
func Parse(kind Kind, text string) (Document, error) {
	s := schemaFor(kind)
	if s == nil {
		return nil, apperr.Validation("document.Parse", "unknown document kind %q", kind)
	}
	src := strings.ReplaceAll(text, "\r\n", "\n")
	marker := "# " + kind.Title() + ":"
	if !strings.Contains(src, marker) {
		return nil, apperr.InvalidFormat("document.Parse", "missing %q title line", marker)
	}

	ext := newExtraction()
	ext.name = titleName(src, marker)
	parseStructured(s, []byte(src), ext)
	if !ext.found() {
		parseLegacy(s, src, ext)
	}
	return hydrate(s, ext), nil
}

// ParseAny detects the kind from the first recognised title line.
func ParseAny(text string) (Document, error) {
	for _, m := range anyTitleRe.FindAllStringSubmatch(text, -1) {
		title := strings.TrimSpace(m[1])
		for _, k := range Kinds() {
			if k.Title() == title {
				return Parse(k, text)
			}
		}
	}
	return nil, apperr.InvalidFormat("document.ParseAny", "no known document title line")
}

// NewPlaceholder returns a record of kind with every field defaulted.
func NewPlaceholder(kind Kind, name string) (Document, error) {
	s := schemaFor(kind)
	if s == nil {
		return nil, apperr.Validation("document.NewPlaceholder", "unknown document kind %q", kind)
	}
	ext := newExtraction()
	ext.name = name
	return hydrate(s, ext), nil
}

func titleName(src, marker string) string {
	idx := strings.Index(src, marker)
	rest := src[idx+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}

// parseStructured walks the markdown tree and maps list items under known
// section headings onto fields.
func parseStructured(s *schema, src []byte, ext *extraction) {
	root := markdown.Parser().Parse(gtext.NewReader(src))
	var current *section
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			current = nil
			if node.Level > 1 {
				if sec, ok := s.section(linesText(node, src)); ok {
					current = sec
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			if current != nil {
				ext.addItem(s, current, itemText(node, src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}

func (e *extraction) addItem(s *schema, sec *section, raw string) {
	if raw == "" {
		return
	}
	switch {
	case sec.listKey != "":
		e.lists[sec.listKey] = append(e.lists[sec.listKey], raw)
	case sec.criteriaKey != "":
		label, value, ok := splitLabel(raw)
		if !ok {
			return
		}
		if n, ok := leadingInt(value); ok {
			e.criteria[normalizeLabel(label)] = n
		}
	default:
		label, value, ok := splitLabel(raw)
		if !ok {
			return
		}
		if f, ok := s.resolve(label); ok {
			e.values[f.key] = value
		}
	}
}

func splitLabel(raw string) (label, value string, ok bool) {
	for _, re := range []*regexp.Regexp{boldLabelRe, boldColonRe, plainLabelRe} {
		if m := re.FindStringSubmatch(raw); m != nil {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
		}
	}
	return "", "", false
}

func unquote(v string) string {
	if len(v) >= 2 && strings.HasPrefix(v, "`") && strings.HasSuffix(v, "`") && !strings.Contains(v[1:len(v)-1], "`") {
		return v[1 : len(v)-1]
	}
	return v
}

func leadingInt(v string) (int, bool) {
	m := leadingIntRe.FindString(strings.TrimSpace(v))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	return n, err == nil
}

// linesText joins the raw source lines of a leaf block.
func linesText(n ast.Node, src []byte) string {
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

// itemText returns the raw source of a list item's content with continuation
// indentation removed. The span runs from the item's first block to the start
// of whatever block follows the item, so fence lines and blank lines inside
// the item are kept.
func itemText(item *ast.ListItem, src []byte) string {
	start, ok := blockStart(item, src)
	if !ok {
		return ""
	}
	if fence, isFence := firstBlock(item).(*ast.FencedCodeBlock); isFence {
		// A fence opening on the marker line starts after the marker.
		if p := fenceStart(fence, src); p >= 0 {
			start = p + item.Offset
		}
	}

	stop := len(src)
	for n := ast.Node(item); n != nil; n = n.Parent() {
		if p, found := nextBlockStart(n, src); found {
			stop = lineStart(src, p)
			break
		}
	}
	if start >= stop || stop > len(src) {
		return ""
	}

	width := item.Offset
	if width <= 0 || width > 6 {
		width = 2
	}
	lines := strings.Split(string(src[start:stop]), "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = dedent(lines[i], width)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func nextBlockStart(n ast.Node, src []byte) (int, bool) {
	for sib := n.NextSibling(); sib != nil; sib = sib.NextSibling() {
		if p, ok := blockStart(sib, src); ok {
			return p, true
		}
	}
	return 0, false
}

// firstBlock returns the first leaf block under n.
func firstBlock(n ast.Node) ast.Node {
	for c := n.FirstChild(); c != nil && c.Type() == ast.TypeBlock; c = c.FirstChild() {
		if _, ok := c.(*ast.FencedCodeBlock); ok || c.Lines().Len() > 0 {
			return c
		}
	}
	return nil
}

// blockStart reports the source offset where n or its first descendant block
// begins. Fenced code blocks start at their opening fence line.
func blockStart(n ast.Node, src []byte) (int, bool) {
	if fence, ok := n.(*ast.FencedCodeBlock); ok {
		p := fenceStart(fence, src)
		return p, p >= 0
	}
	if n.Type() == ast.TypeBlock {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			return lines.At(0).Start, true
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if p, ok := blockStart(c, src); ok {
			return p, true
		}
	}
	return 0, false
}

// fenceStart returns the offset of the line holding the opening fence, or -1
// when an empty fence without info string leaves no position to anchor on.
func fenceStart(fence *ast.FencedCodeBlock, src []byte) int {
	if fence.Info != nil {
		return lineStart(src, fence.Info.Segment.Start)
	}
	if lines := fence.Lines(); lines.Len() > 0 {
		first := lineStart(src, lines.At(0).Start)
		if first == 0 {
			return 0
		}
		return lineStart(src, first-1)
	}
	return -1
}

func lineStart(src []byte, pos int) int {
	if pos > len(src) {
		pos = len(src)
	}
	return bytes.LastIndexByte(src[:pos], '\n') + 1
}

func dedent(line string, width int) string {
	i := 0
	for i < width && i < len(line) && line[i] == ' ' {
		i++
	}
	if strings.TrimSpace(line) == "" {
		return ""
	}
	return line[i:]
}

// parseLegacy extracts fields from the older layout where each field is a
// backtick-quoted bold line or a heading followed by one paragraph.
func parseLegacy(s *schema, src string, ext *extraction) {
	for key, patterns := range s.legacy {
		for _, re := range patterns {
			m := re.FindStringSubmatch(src)
			if m == nil {
				continue
			}
			value := strings.TrimSpace(m[1])
			if strings.HasPrefix(value, "#") {
				continue
			}
			ext.values[key] = unquote(value)
			break
		}
	}
}

// hydrate applies defaults to ext and builds the typed record.
func hydrate(s *schema, ext *extraction) Document {
	doc := newRecord(s.kind)
	rf := recordFields(doc)

	name := strings.TrimSpace(ext.name)
	if name == "" {
		name = s.nameLabel + " not specified"
	}
	rf["name"].SetString(name)

	for _, sec := range s.sections {
		switch {
		case sec.listKey != "":
			if items := ext.lists[sec.listKey]; len(items) > 0 {
				rf[sec.listKey].Set(reflect.ValueOf(slices.Clone(items)))
			}
		case sec.criteriaKey != "":
			if len(ext.criteria) > 0 {
				rf[sec.criteriaKey].Set(reflect.ValueOf(maps.Clone(ext.criteria)))
			}
		default:
			for _, f := range sec.fields {
				raw, ok := ext.values[f.key]
				setField(rf[f.key], s.kind, f, raw, ok)
			}
		}
	}
	return doc
}

func setField(v reflect.Value, kind Kind, f field, raw string, ok bool) {
	switch f.typ {
	case textField:
		if !ok {
			raw = f.label + " not specified"
		}
		v.SetString(raw)
	case intField:
		n, parsed := leadingInt(raw)
		if !ok || !parsed {
			n = f.defInt
		}
		v.SetInt(int64(n))
	case enumField:
		tok, matched := matchEnum(kind, raw)
		if !ok || !matched {
			tok = enumTokens[kind][0]
		}
		v.SetString(tok)
	case dateField:
		if !ok || strings.TrimSpace(raw) == "" {
			raw = today()
		}
		v.SetString(raw)
	}
}
