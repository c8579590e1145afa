// Package tgformat converts free text to and from the Telegram HTML subset.
package tgformat

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape makes user or model text safe to embed in an HTML message.
func Escape(text string) string {
	return htmlEscaper.Replace(text)
}

var (
	boldExpr    = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	italicExpr  = regexp.MustCompile(`(^|[^*])\*([^*\n]+?)\*`)
	codeExpr    = regexp.MustCompile("`([^`\n]+?)`")
	headingExpr = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	bulletExpr  = regexp.MustCompile(`^(\s*)[-*+]\s+`)
)

// FromMarkdown renders the markdown dialect chat models produce as Telegram HTML.
// Only bold, italic, inline code, headings and bullets are recognised; the rest is escaped.
func FromMarkdown(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = Escape(line)
		if m := headingExpr.FindStringSubmatch(line); m != nil {
			out = append(out, "<b>"+strings.TrimSpace(m[1])+"</b>")
			continue
		}
		line = bulletExpr.ReplaceAllString(line, "$1• ")
		line = codeExpr.ReplaceAllString(line, "<code>$1</code>")
		line = boldExpr.ReplaceAllStringFunc(line, func(s string) string {
			m := boldExpr.FindStringSubmatch(s)
			inner := m[1]
			if inner == "" {
				inner = m[2]
			}
			return "<b>" + inner + "</b>"
		})
		line = italicExpr.ReplaceAllString(line, "$1<i>$2</i>")
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// PlainText strips markup from a Telegram HTML fragment, keeping line breaks.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + html + "</body>"))
	if err != nil {
		return html
	}
	doc.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(doc.Find("body").Text())
}

// Blockquote wraps already-escaped HTML in an expandable quote.
func Blockquote(html string, expandable bool) string {
	if expandable {
		return "<blockquote expandable>" + html + "</blockquote>"
	}
	return "<blockquote>" + html + "</blockquote>"
}
