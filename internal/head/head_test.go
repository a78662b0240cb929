package head

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	h, err := Parse(`<title>My Post</title>` +
		`<meta name="description" content="About things">` +
		`<link rel="canonical" href="https://example.com/post/">` +
		`<base href="/">` +
		`<style>body{margin:0}</style>` +
		`<script type="application/ld+json">{"@type":"Article"}</script>`)
	require.NoError(t, err)

	assert.Equal(t, "My Post", h.Title)
	assert.Equal(t, []string{`<meta name="description" content="About things"/>`}, h.Meta)
	assert.Equal(t, []string{`<link rel="canonical" href="https://example.com/post/"/>`}, h.Link)
	assert.Equal(t, []string{`<base href="/"/>`}, h.Base)
	assert.Equal(t, []string{`<style>body{margin:0}</style>`}, h.Style)
	assert.Equal(t, []string{`<script type="application/ld+json">{"@type":"Article"}</script>`}, h.Script)
}

func TestParseEmpty(t *testing.T) {
	h, err := Parse("  ")
	require.NoError(t, err)
	assert.Empty(t, h.Title)
	assert.Empty(t, h.Meta)
}

func TestParseKeepsOrderWithinGroup(t *testing.T) {
	h, err := Parse(`<meta charset="utf-8"><meta name="a" content="1"><meta name="b" content="2">`)
	require.NoError(t, err)
	require.Len(t, h.Meta, 3)
	assert.Contains(t, h.Meta[1], `name="a"`)
	assert.Contains(t, h.Meta[2], `name="b"`)
}

func TestAttrs(t *testing.T) {
	assert.Equal(t, map[string]string{"lang": "fr", "class": "dark"}, Attrs(`lang="fr" class="dark"`))
	assert.Nil(t, Attrs(""))
}
