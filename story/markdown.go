package story

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// flattenMarkdown 把模型常见的 Markdown 装饰（标题、加粗、各种列表符号）还原成
// 纯文本行，列表项统一改写为 "- " 开头。
func flattenMarkdown(raw string) string {
	src := []byte(raw)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	f := &flattener{src: src}
	f.block(doc)
	f.endLine()
	return strings.Join(f.lines, "\n")
}

type flattener struct {
	src    []byte
	lines  []string
	cur    strings.Builder
	bullet bool
}

func (f *flattener) block(n ast.Node) {
	switch n := n.(type) {
	case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
		f.inlines(n)
		f.endLine()
	case *ast.ListItem:
		f.endLine()
		f.bullet = true
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			f.block(c)
		}
		f.bullet = false
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			f.write(seg.Value(f.src))
			f.endLine()
		}
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			f.block(c)
		}
	}
}

// inlines keeps the visible text only: emphasis markers and link targets are
// dropped, a link keeps its label. Code spans keep their backticks.
func (f *flattener) inlines(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.CodeSpan:
			f.write([]byte("`"))
			f.inlines(c)
			f.write([]byte("`"))
		case *ast.Text:
			f.write(c.Segment.Value(f.src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				f.endLine()
			}
		case *ast.String:
			f.write(c.Value)
		case *ast.AutoLink:
			f.write(c.Label(f.src))
		case *ast.RawHTML:
			for i := 0; i < c.Segments.Len(); i++ {
				seg := c.Segments.At(i)
				f.write(seg.Value(f.src))
			}
		default:
			f.inlines(c)
		}
	}
}

func (f *flattener) write(b []byte) {
	if len(b) == 0 {
		return
	}
	if f.bullet && f.cur.Len() == 0 {
		f.cur.WriteString("- ")
		f.bullet = false
	}
	f.cur.Write(b)
}

func (f *flattener) endLine() {
	line := strings.TrimSpace(f.cur.String())
	f.cur.Reset()
	if line != "" {
		f.lines = append(f.lines, line)
	}
}
