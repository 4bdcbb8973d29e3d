package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parseTestHTML(t *testing.T, content string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(content))
	require.NoError(t, err)
	return doc
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaces", "Demo Math", "demo-math"},
		{"punctuation dropped", "jax.numpy module!", "jaxnumpy-module"},
		{"underscores", "_autosummary page", "autosummary-page"},
		{"hyphen runs collapse", "a -- b", "a-b"},
		{"blank", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slugify(tt.in))
		})
	}
}

func TestCommonModulePrefix(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"empty", nil, ""},
		{"single", []string{"demo.math.add"}, "demo.math"},
		{"shared", []string{"demo.math.add", "demo.math.mul"}, "demo.math"},
		{"partial", []string{"demo.math.add", "demo.linalg.norm"}, "demo"},
		{"disjoint", []string{"demo.math.add", "other.mul"}, ""},
		{"final segment survives", []string{"demo.math", "demo.math"}, "demo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commonModulePrefix(tt.ids))
		})
	}
}

func TestCollectDottedIdentifiers(t *testing.T) {
	doc := parseTestHTML(t, `<html><body>
<dl>
<dt id="demo.math.add">add</dt>
<dt id="demo.math.mul">mul</dt>
<dt id="notdotted">plain</dt>
</dl>
<p><a href="generated/demo.math.div.html#demo.math.div">div</a></p>
<p><a href="#demo.math.add">add again</a></p>
<p><a href="other.html">no fragment</a></p>
</body></html>`)

	ids := collectDottedIdentifiers(doc)

	// Document order, deduplicated, non-dotted IDs ignored
	assert.Equal(t, []string{"demo.math.add", "demo.math.mul", "demo.math.div"}, ids)
}

func TestExtractAPIPage(t *testing.T) {
	doc := parseTestHTML(t, `<!DOCTYPE html>
<html><head><title>demo.math</title></head><body>
<div role="main">
<h1>demo.math<a class="headerlink" href="#demo-math">&#182;</a></h1>
<p>Elementwise operations.</p>
<dl class="py function">
<dt id="demo.math.add">add</dt><dd><p>Computes a + b.</p></dd>
<dt id="demo.math.mul">mul</dt><dd><p>Computes a * b.</p></dd>
</dl>
</div>
</body></html>`)

	page, err := extractAPIPage(doc)
	require.NoError(t, err)

	assert.Equal(t, "demo.math", page.Title)
	assert.Equal(t, "demo.math", page.Module)
	assert.Equal(t, []string{"add", "mul"}, page.Entries)
	assert.Contains(t, page.Notes, "Elementwise operations.")
	// Permalink anchors are stripped from the notes
	assert.NotContains(t, page.Notes, "[¶]")
}

func TestExtractAPIPage_NoIdentifiers(t *testing.T) {
	doc := parseTestHTML(t, `<html><body><article><h1>About</h1><p>No API here.</p></article></body></html>`)

	_, err := extractAPIPage(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dotted API identifiers")
}

func TestRenderStubPage(t *testing.T) {
	page := &importedPage{
		Title:   "demo.math",
		Module:  "demo.math",
		Entries: []string{"mul", "add"},
	}

	stub := renderStubPage(page, "https://docs.example.org/demo.math.html")

	assert.True(t, strings.HasPrefix(stub, "demo.math\n=========\n"), "title underline must match title length")
	assert.Contains(t, stub, ".. currentmodule:: demo.math")
	assert.Contains(t, stub, "Imported from https://docs.example.org/demo.math.html.")
	assert.Contains(t, stub, ".. autosummary::\n   :toctree: _autosummary\n")
	assert.Contains(t, stub, "\n   add\n   mul\n", "entries are sorted")
	assert.Equal(t, []string{"mul", "add"}, page.Entries, "input order is untouched")
}

func TestRenderStubPage_TitleFallsBackToModule(t *testing.T) {
	page := &importedPage{
		Module:  "demo.linalg",
		Entries: []string{"norm"},
	}

	stub := renderStubPage(page, "https://docs.example.org/demo.linalg.html")
	assert.True(t, strings.HasPrefix(stub, "demo.linalg\n===========\n"))
}

func TestCleanImportedMarkdown(t *testing.T) {
	in := "# demo.math[¶](#demo-math)\n\nSome prose. [#](#anchor.ref)\n\n\n\n\n\nTail line   \n"

	out := cleanImportedMarkdown(in)

	assert.Equal(t, "# demo.math\n\nSome prose.\n\n\nTail line", out)
}
