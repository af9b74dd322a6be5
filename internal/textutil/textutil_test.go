package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown_Sanitizes(t *testing.T) {
	out := RenderMarkdown("# Chapter one\n\nA *quiet* start.<script>alert(1)</script>\n\n[link](https://example.com)")

	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<em>quiet</em>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `rel="nofollow noreferrer noopener"`)
	assert.Contains(t, out, `target="_blank"`)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "hello world", StripTags("  <b>hello</b> world<script>x()</script> "))
	assert.Equal(t, "", StripTags("<img src=x onerror=alert(1)>"))
	assert.Equal(t, "it's 3 < 4 & fine", StripTags("it's 3 < 4 & fine"))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "Short text", Excerpt("**Short** text", 50))

	long := strings.Repeat("word ", 40)
	got := Excerpt(long, 50)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, Length(got), 51)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, "…"), " "))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"The River, Again!", 80, "the-river-again"},
		{"  --Leading  and trailing--  ", 80, "leading-and-trailing"},
		{"Über Bücher", 80, "über-bücher"},
		{"abcdefghij", 4, "abcd"},
		{"!!!", 80, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in, tt.max))
		})
	}
}
