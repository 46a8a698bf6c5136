package jd

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockTags are elements whose boundaries become newlines so the anchor
// scanner can see line structure.
var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "li": {}, "ul": {}, "ol": {}, "br": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"tr": {}, "table": {}, "section": {}, "article": {},
	"header": {}, "footer": {}, "blockquote": {},
}

// HTMLToText renders HTML into plain text. Scripts, styles and other
// non-content subtrees are dropped and block-level boundaries become
// newlines. Entities are decoded by the parser.
func HTMLToText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return CollapseText(rawHTML)
	}
	doc.Find("script, style, noscript, iframe, svg, img, head").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	var b strings.Builder
	for _, n := range root.Nodes {
		writeNodeText(n, &b)
	}
	return CollapseText(b.String())
}

func writeNodeText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		// Whitespace-only nodes are markup indentation. Keep inline
		// separation but never open a blank line with them.
		if strings.TrimSpace(n.Data) == "" {
			if s := b.String(); len(s) > 0 && s[len(s)-1] != '\n' {
				b.WriteByte(' ')
			}
			return
		}
		b.WriteString(n.Data)
		return
	}
	isBlock := false
	if n.Type == html.ElementNode {
		_, isBlock = blockTags[n.Data]
	}
	if isBlock {
		ensureNewline(b)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNodeText(c, b)
	}
	if isBlock {
		ensureNewline(b)
	}
}

func ensureNewline(b *strings.Builder) {
	if s := b.String(); len(s) > 0 && s[len(s)-1] != '\n' {
		b.WriteByte('\n')
	}
}

// EmailContext carries the inbound email fields available to the fallback
// path.
type EmailContext struct {
	Subject string
	From    string
	Text    string
	HTML    string
}

// Empty reports whether the context has no usable content.
func (ec EmailContext) Empty() bool {
	return ec.Subject == "" && ec.From == "" && ec.Text == "" && ec.HTML == ""
}

// FromEmail assembles JD text from inbound email content: subject and sender
// as header lines, the plain-text body, and the HTML body rendered to
// markdown-ish text. The result goes through the same window extraction as
// fetched pages.
func FromEmail(ec EmailContext) string {
	var parts []string
	if ec.Subject != "" {
		parts = append(parts, "Subject: "+ec.Subject)
	}
	if ec.From != "" {
		parts = append(parts, "From: "+ec.From)
	}
	if ec.Text != "" {
		parts = append(parts, ec.Text)
	}
	if ec.HTML != "" {
		if md, err := htmltomarkdown.ConvertString(ec.HTML); err == nil && strings.TrimSpace(md) != "" {
			parts = append(parts, md)
		} else {
			parts = append(parts, HTMLToText(ec.HTML))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return ExtractWindow(strings.Join(parts, "\n"))
}

// CollapseText normalizes line endings, collapses runs of spaces and tabs,
// trims each line, and squeezes blank-line runs down to one blank line.
func CollapseText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, " ", " ")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
