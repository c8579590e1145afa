package tgformat

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a &lt;b&gt; &amp; c", Escape("a <b> & c"))
	assert.Equal(t, "plain", Escape("plain"))
}

func TestFromMarkdown(t *testing.T) {
	t.Parallel()

	in := "### Итог\n**Кухня**: медленно\n- пересолен *суп*\n- `латте` <холодный>"
	got := FromMarkdown(in)

	assert.Contains(t, got, "<b>Итог</b>")
	assert.Contains(t, got, "<b>Кухня</b>: медленно")
	assert.Contains(t, got, "• пересолен <i>суп</i>")
	assert.Contains(t, got, "<code>латте</code> &lt;холодный&gt;")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(got))
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Find("b").Length())
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	html := "<b>Советы:</b>\n<blockquote expandable>Быстрее &amp; теплее</blockquote>"
	assert.Equal(t, "Советы:\nБыстрее & теплее", PlainText(html))
}

func TestPlainTextRoundTripsEscapedText(t *testing.T) {
	t.Parallel()

	raw := "5 > 3 & 1 < 2"
	assert.Equal(t, raw, PlainText(Escape(raw)))
}
