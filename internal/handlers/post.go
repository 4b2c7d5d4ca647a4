package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"nainong/internal/models"
	"nainong/internal/services"
	"nainong/internal/store"
	"nainong/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// CoverTinter 根据封面图计算页面背景色
type CoverTinter interface {
	Tint(ctx context.Context, coverURL string) string
}

type PostHandler struct {
	posts    store.PostStore
	comments services.CommentStore
	cache    *services.CommentCache
	covers   CoverTinter
	maxDepth int
}

func NewPostHandler(posts store.PostStore, comments services.CommentStore, cache *services.CommentCache, covers CoverTinter, maxDepth int) *PostHandler {
	return &PostHandler{posts: posts, comments: comments, cache: cache, covers: covers, maxDepth: maxDepth}
}

var firstImagePattern = regexp.MustCompile(`!\[.*?\]\((.*?)\)`)

// extractFirstImage 从 Markdown 内容中提取第一张图片的 URL
func extractFirstImage(content string) string {
	match := firstImagePattern.FindStringSubmatch(content)
	if len(match) > 1 {
		return match[1]
	}
	return ""
}

// summarize 取摘要，没有摘要时截取正文前 150 个字符
func summarize(post *models.Post) string {
	if post.Summary != "" {
		return post.Summary
	}
	description := post.Content
	if runes := []rune(description); len(runes) > 150 {
		description = string(runes[:150]) + "..."
	}
	description = strings.NewReplacer("#", "", "*", "", "`", "").Replace(description)
	return strings.TrimSpace(description)
}

func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.posts.ListPosts(c.Request.Context())
	if err != nil {
		log.Printf("Failed to list posts: %v", err)
		RenderError(c, http.StatusBadGateway, "文章加载失败")
		return
	}

	Render(c, http.StatusOK, "post/list.html", gin.H{
		"Posts": posts,
	})
}

func (h *PostHandler) Detail(c *gin.Context) {
	slug := c.Param("slug")
	ctx := c.Request.Context()

	post, err := h.posts.GetPost(ctx, slug)
	if errors.Is(err, store.ErrPostNotFound) {
		RenderError(c, http.StatusNotFound, "文章不存在")
		return
	}
	if err != nil {
		log.Printf("Failed to load post %s: %v", slug, err)
		RenderError(c, http.StatusBadGateway, "文章加载失败")
		return
	}

	cs := newCommentSession(c, slug, h.comments, h.cache)
	defer cs.Close()
	if replyTo := c.Query("reply"); replyTo != "" {
		cs.SetReplyTo(replyTo)
	}
	// 加载失败时页面照常渲染，评论区显示错误与重试按钮
	_ = cs.Load(ctx)

	// 上一次表单提交失败时保留的草稿
	session := sessions.Default(c)
	draft, fieldErrors := cs.Draft(), cs.FieldErrors()
	if kept, ok := takeDraft(session); ok {
		draft, fieldErrors = kept.Form, kept.Fields
	}
	if err := session.Save(); err != nil {
		log.Printf("Failed to save session: %v", err)
	}
	if draft.ParentID == "" {
		draft.ParentID = cs.ReplyTo()
	}

	tint := ""
	if h.covers != nil && post.Cover != "" {
		tint = h.covers.Tint(ctx, post.Cover)
	}

	site := siteConfig(c)
	imageURL := post.Cover
	if imageURL == "" {
		imageURL = extractFirstImage(post.Content)
	}

	gate := cs.Gate()
	Render(c, http.StatusOK, "post/detail.html", gin.H{
		"Title":         post.Title,
		"Post":          post,
		"PostContent":   utils.RenderMarkdown(post.Content),
		"Description":   summarize(post),
		"FullURL":       site.SiteURL + postURL(post.Slug),
		"ImageURL":      imageURL,
		"PublishedTime": post.CreatedAt.Format(time.RFC3339),
		"CoverTint":     tint,

		"CommentState": cs.State().String(),
		"CommentError": cs.ErrorMessage(),
		"Comments":     BuildCommentViews(cs.Tree(), h.maxDepth),
		"Total":        cs.Total(),
		"Draft":        draft,
		"FieldErrors":  fieldErrors,
		"ReplyTo":      cs.ReplyTo(),
		"CanSubmit":    gate.CanSubmit(),
		"Cooldown":     services.FormatCooldown(gate.RemainingCooldown()),
	})
}
