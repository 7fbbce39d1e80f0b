package highlight

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
)

func TestHighlight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		lang string
		code string
	}{
		{name: "go", lang: "go", code: "package main\n\nfunc main() {}\n"},
		{name: "unknown language", lang: "no-such-lang", code: "a < b\n"},
		{name: "no language", code: "plain text\n"},
	}
	h := New("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := h.Highlight(tt.code, tt.lang)
			require.NoError(t, err)
			assert.Contains(t, out, "<pre")
			assert.Contains(t, out, `style="`)
		})
	}
}

func TestHighlightEscapes(t *testing.T) {
	t.Parallel()

	out, err := New("github").Highlight("a < b\n", "")
	require.NoError(t, err)
	assert.Contains(t, out, "&lt;")
	assert.NotContains(t, out, "a < b")
}

func TestFencedCodeRendering(t *testing.T) {
	t.Parallel()

	md := goldmark.New(goldmark.WithExtensions(Extension(New("dracula"))))
	var buf bytes.Buffer
	require.NoError(t, md.Convert([]byte("text\n\n```go\nfunc f() {}\n```\n\n    indented\n"), &buf))
	out := buf.String()

	assert.Contains(t, out, "<p>text</p>")
	assert.Regexp(t, `<pre[^>]*style="`, out)
	assert.Contains(t, out, "func")
	// indented code blocks keep goldmark's renderer
	assert.Contains(t, out, "<pre><code>indented\n</code></pre>")
}
