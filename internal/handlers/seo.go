package handlers

import (
	"fmt"
	"html"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"nainong/internal/store"
	"nainong/internal/utils"

	"github.com/gin-gonic/gin"
)

const rssItemLimit = 20

type SEOHandler struct {
	posts store.PostStore
}

func NewSEOHandler(posts store.PostStore) *SEOHandler {
	return &SEOHandler{posts: posts}
}

// RobotsTxt 返回robots.txt内容
func (h *SEOHandler) RobotsTxt(c *gin.Context) {
	siteURL := siteConfig(c).SiteURL
	content := fmt.Sprintf(`User-agent: *
Allow: /

# 禁止爬取API端点
Disallow: /api/
Disallow: /metrics

# Sitemap位置
Sitemap: %s/sitemap.xml
`, siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

// SitemapXML 动态生成sitemap.xml
func (h *SEOHandler) SitemapXML(c *gin.Context) {
	siteURL := siteConfig(c).SiteURL
	now := time.Now().Format("2006-01-02")

	posts, err := h.posts.ListPosts(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list posts for sitemap: %v", err)
		c.Status(http.StatusBadGateway)
		return
	}

	xml := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`

	// 首页
	xml += fmt.Sprintf(`  <url>
    <loc>%s/</loc>
    <lastmod>%s</lastmod>
    <changefreq>daily</changefreq>
    <priority>1.0</priority>
  </url>
`, escapeXML(siteURL), now)

	for _, post := range posts {
		// 根据文章新旧程度调整优先级
		daysSinceCreated := time.Since(post.CreatedAt).Hours() / 24
		priority := 0.6
		changefreq := "monthly"
		if daysSinceCreated < 7 {
			priority = 0.8
			changefreq = "daily"
		} else if daysSinceCreated < 30 {
			priority = 0.7
			changefreq = "weekly"
		}

		xml += fmt.Sprintf(`  <url>
    <loc>%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>%s</changefreq>
    <priority>%.1f</priority>
  </url>
`, escapeXML(siteURL+postURL(post.Slug)), post.UpdatedAt.Format("2006-01-02"), changefreq, priority)
	}

	xml += `</urlset>`

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, xml)
}

// RSSFeed 生成RSS 2.0 feed
func (h *SEOHandler) RSSFeed(c *gin.Context) {
	site := siteConfig(c)

	posts, err := h.posts.ListPosts(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list posts for RSS: %v", err)
		c.Status(http.StatusBadGateway)
		return
	}
	if len(posts) > rssItemLimit {
		posts = posts[:rssItemLimit]
	}

	lastBuild := time.Now()
	if len(posts) > 0 {
		lastBuild = posts[0].CreatedAt
	}

	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>` + escapeXML(site.SiteTitle) + `</title>
    <link>` + escapeXML(site.SiteURL) + `</link>
    <description>` + escapeXML(site.SiteDescription) + `</description>
    <language>` + escapeXML(site.SiteLang) + `</language>
    <lastBuildDate>` + lastBuild.Format(time.RFC1123Z) + `</lastBuildDate>
    <atom:link href="` + escapeXML(site.SiteURL) + `/rss.xml" rel="self" type="application/rss+xml"/>
`

	for _, post := range posts {
		link := escapeXML(site.SiteURL + postURL(post.Slug))

		description := post.Summary
		if description == "" {
			description = truncateByParagraph(string(utils.RenderMarkdown(post.Content)), 3)
		}

		rss += `    <item>
      <title>` + escapeXML(post.Title) + `</title>
      <link>` + link + `</link>
      <description><![CDATA[` + description + `]]></description>
`
		if post.Category != "" {
			rss += `      <category>` + escapeXML(post.Category) + `</category>
`
		}
		rss += `      <pubDate>` + post.CreatedAt.Format(time.RFC1123Z) + `</pubDate>
      <guid isPermaLink="true">` + link + `</guid>
    </item>
`
	}

	rss += `  </channel>
</rss>`

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.String(http.StatusOK, rss)
}

// escapeXML 转义XML特殊字符
func escapeXML(s string) string {
	// 使用html.EscapeString处理XML转义,它能正确处理中文
	return html.EscapeString(s)
}

var (
	blockPattern = regexp.MustCompile(`(?s)(<(?:p|div|h[1-6]|ul|ol|blockquote|pre)[^>]*>.*?</(?:p|div|h[1-6]|ul|ol|blockquote|pre)>)`)
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
)

// truncateByParagraph 按段落截取HTML，保留前几个完整块级元素
func truncateByParagraph(content string, maxBlocks int) string {
	matches := blockPattern.FindAllString(content, maxBlocks)
	if len(matches) == 0 {
		// 没有匹配到块级元素，回退到纯文本截取
		runes := []rune(tagPattern.ReplaceAllString(content, ""))
		if len(runes) > 300 {
			return string(runes[:300]) + "..."
		}
		return content
	}
	return strings.Join(matches, "\n")
}
