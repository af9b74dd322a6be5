// Package textutil renders and sanitizes reader-submitted text.
package textutil

import (
	"bytes"
	stdhtml "html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Typographer),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	ugc    = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()
)

func init() {
	ugc.AllowImages()
	ugc.AddTargetBlankToFullyQualifiedLinks(true)
	ugc.RequireNoReferrerOnLinks(true)
}

// RenderMarkdown converts essay markdown to HTML safe to embed in a page.
func RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return strict.Sanitize(source)
	}
	return ugc.Sanitize(buf.String())
}

// StripTags removes all markup, leaving unescaped plain text. Comments and
// reviews are stored through this.
func StripTags(s string) string {
	return strings.TrimSpace(stdhtml.UnescapeString(strict.Sanitize(s)))
}

// Excerpt returns the first max runes of the plain-text rendering of
// markdown source, cut at a word boundary when one is near.
func Excerpt(source string, max int) string {
	text := strings.Join(strings.Fields(StripTags(RenderMarkdown(source))), " ")
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)[:max]
	if i := lastSpace(runes); i > max*3/4 {
		runes = runes[:i]
	}
	return strings.TrimRightFunc(string(runes), unicode.IsPunct) + "…"
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

// Slugify lowercases s and joins its letters and digits with hyphens.
func Slugify(s string, max int) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
		if utf8.RuneCountInString(b.String()) >= max {
			break
		}
	}
	out := []rune(b.String())
	if len(out) > max {
		out = out[:max]
	}
	return strings.Trim(string(out), "-")
}

// Length counts runes, which is what length limits on reader text mean.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
