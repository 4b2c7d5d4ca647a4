package utils

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// 评论允许的标签：段落、标题、强调、列表、引用、链接、图片、表格
	htmlPolicy = newCommentPolicy()
	textPolicy = bluemonday.StrictPolicy()
)

const maxSanitizeRounds = 8

func newCommentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"strong", "b", "em", "i", "u", "s", "del", "code", "pre",
		"ul", "ol", "li",
		"blockquote",
		"table", "thead", "tbody", "tfoot", "tr", "th", "td",
		"div", "span",
	)
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	p.AllowAttrs("class", "id").Globally()
	p.AllowStandardURLs()

	// External links open in a new tab with rel="noopener noreferrer".
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// SanitizeText strips all markup and returns plain text. Entities are decoded and the
// result is sanitized again until it no longer changes, so "&lt;b&gt;" cannot come back
// as a live tag. Input that does not settle is returned in its escaped form.
func SanitizeText(s string) string {
	for i := 0; i < maxSanitizeRounds; i++ {
		escaped := textPolicy.Sanitize(s)
		plain := html.UnescapeString(escaped)
		if plain == s {
			return strings.TrimSpace(plain)
		}
		s = plain
	}
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// SanitizeHTML reduces s to the comment allow-list. script, style, iframe, form and
// input are removed together with every on* attribute.
func SanitizeHTML(s string) string {
	return strings.TrimSpace(htmlPolicy.Sanitize(s))
}

// SanitizeURL 只接受带主机名的 http/https 绝对地址，否则返回空字符串
func SanitizeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	u.Scheme = scheme
	return u.String()
}
