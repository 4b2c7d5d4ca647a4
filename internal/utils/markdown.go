package utils

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var mdParser = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithXHTML(),
		// 评论内容入库前已清洗过，渲染后还会再过一遍 htmlPolicy
		html.WithUnsafe(),
	),
)

// RenderMarkdown converts Markdown (which may embed allow-listed HTML) into safe HTML.
func RenderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		// Fallback
		return template.HTML(htmlPolicy.Sanitize(template.HTMLEscapeString(source)))
	}

	sanitized := htmlPolicy.SanitizeBytes(buf.Bytes())

	return EnhanceHTMLContent(string(sanitized))
}
