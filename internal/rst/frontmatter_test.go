package rst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFrontmatter(t *testing.T) {
	content := `---
title: API reference
module: jax.lax
orphan: true
---
Body starts here.
`
	result, err := ExtractFrontmatter(content)
	require.NoError(t, err)

	assert.True(t, result.HasYAML)
	assert.Equal(t, "API reference", result.Config.Title)
	assert.Equal(t, "jax.lax", result.Config.Module)
	assert.True(t, result.Config.Orphan)
	assert.Equal(t, "Body starts here.\n", result.Body)
	assert.Equal(t, 5, result.LineOffset)
}

func TestExtractFrontmatterAbsent(t *testing.T) {
	content := "Title\n=====\n"

	result, err := ExtractFrontmatter(content)
	require.NoError(t, err)

	assert.False(t, result.HasYAML)
	assert.Equal(t, content, result.Body)
	assert.Equal(t, 0, result.LineOffset)
}

func TestExtractFrontmatterInvalidYAML(t *testing.T) {
	content := "---\ntitle: [unclosed\n---\n"

	_, err := ExtractFrontmatter(content)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestExtractFrontmatterNotAtStart(t *testing.T) {
	// A transition later in the file is not frontmatter
	content := "Title\n=====\n\n---\nnot: yaml\n---\n"

	result, err := ExtractFrontmatter(content)
	require.NoError(t, err)
	assert.False(t, result.HasYAML)
}
