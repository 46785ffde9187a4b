package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown_Render(t *testing.T) {
	m := NewMarkdown()

	html, err := m.Render("# Hello World\n\nSome *emphasis* and a [link](https://example.com).")
	require.NoError(t, err)
	assert.Contains(t, html, `<h1 id="hello-world">Hello World</h1>`)
	assert.Contains(t, html, "<em>emphasis</em>")
	assert.Contains(t, html, `<a href="https://example.com">link</a>`)
}

func TestMarkdown_GFM(t *testing.T) {
	m := NewMarkdown()

	html, err := m.Render("| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n\n- [x] done")
	require.NoError(t, err)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<del>gone</del>")
	assert.Contains(t, html, `type="checkbox"`)
}

func TestMarkdown_EscapesRawHTML(t *testing.T) {
	m := NewMarkdown()

	html, err := m.Render("<script>alert(1)</script>\n\ntext")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "<p>text</p>")
}

func TestMarkdown_Empty(t *testing.T) {
	html, err := NewMarkdown().Render("")
	require.NoError(t, err)
	assert.Empty(t, html)
}
