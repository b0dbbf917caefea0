// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// plainExtractor passes text through; form feeds separate pages
type plainExtractor struct{}

func (plainExtractor) Name() string { return "text" }

func (plainExtractor) Extensions() []string {
	return []string{".txt", ".text", ".log", ".csv", ".tsv", ".json", ".yaml", ".yml", ".xml"}
}

func (plainExtractor) Extract(content []byte) ([]Page, error) {
	s := strings.ToValidUTF8(string(content), "\uFFFD")
	return paginate(strings.Split(s, "\f")), nil
}

// markdownExtractor renders Markdown to its visible text
type markdownExtractor struct{}

func (markdownExtractor) Name() string { return "markdown" }

func (markdownExtractor) Extensions() []string { return []string{".md", ".markdown"} }

func (markdownExtractor) Extract(content []byte) ([]Page, error) {
	src := []byte(strings.ToValidUTF8(string(content), "\uFFFD"))
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return paginate([]string{buf.String()}), nil
}

// htmlExtractor collects the visible text of an HTML document
type htmlExtractor struct{}

func (htmlExtractor) Name() string { return "html" }

func (htmlExtractor) Extensions() []string { return []string{".html", ".htm"} }

var htmlBlockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "table": true, "section": true,
	"article": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "ul": true, "ol": true, "dt": true, "dd": true, "form": true,
}

var htmlSkippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "head": true, "template": true,
}

func (htmlExtractor) Extract(content []byte) ([]Page, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if htmlSkippedElements[n.Data] {
				return
			}
		case html.TextNode:
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch {
			case htmlBlockElements[n.Data]:
				buf.WriteByte('\n')
			case n.Data == "td" || n.Data == "th":
				buf.WriteByte('\t')
			}
		}
	}
	walk(doc)

	return paginate([]string{collapseLines(buf.String())}), nil
}

// collapseLines squeezes runs of blanks inside each line and drops empty lines
func collapseLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
