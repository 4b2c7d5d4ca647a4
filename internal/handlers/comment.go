package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"nainong/internal/middleware"
	"nainong/internal/models"
	"nainong/internal/services"
	"nainong/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// CommentNotifier is told about every comment that was created successfully.
type CommentNotifier interface {
	NotifyComment(post *models.Post, comment *models.Comment, parent *models.Comment)
}

type CommentHandler struct {
	posts    store.PostStore
	comments services.CommentStore
	cache    *services.CommentCache
	notifier CommentNotifier
	maxDepth int
}

func NewCommentHandler(posts store.PostStore, comments services.CommentStore, cache *services.CommentCache, notifier CommentNotifier, maxDepth int) *CommentHandler {
	return &CommentHandler{posts: posts, comments: comments, cache: cache, notifier: notifier, maxDepth: maxDepth}
}

// newCommentSession 为当前请求创建评论会话，限流器来自访客的 cookie session
func newCommentSession(c *gin.Context, slug string, comments services.CommentStore, cache *services.CommentCache) *services.CommentSession {
	s := services.NewCommentSession(slug, comments, cache, middleware.Gate(c))
	s.SetClient(c.ClientIP(), c.Request.UserAgent())
	return s
}

func postURL(slug string) string {
	return "/posts/" + url.PathEscape(slug)
}

// List GET /api/posts/:slug/comments
func (h *CommentHandler) List(c *gin.Context) {
	slug := c.Param("slug")
	if _, ok := h.findPost(c, slug); !ok {
		return
	}

	session := newCommentSession(c, slug, h.comments, h.cache)
	defer session.Close()
	if err := session.Load(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": services.MsgLoadFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"total":    session.Total(),
		"comments": BuildCommentViews(session.Tree(), h.maxDepth),
	})
}

// Create POST /api/posts/:slug/comments (JSON)
func (h *CommentHandler) Create(c *gin.Context) {
	slug := c.Param("slug")
	post, ok := h.findPost(c, slug)
	if !ok {
		return
	}

	var form models.CommentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "请求格式错误"})
		return
	}

	session := newCommentSession(c, slug, h.comments, h.cache)
	defer session.Close()

	created, err := session.Submit(c.Request.Context(), form)
	if err != nil {
		status, body := submitErrorResponse(err)
		c.JSON(status, body)
		return
	}
	h.notify(post, created, session.Comments())

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  services.MsgSubmitSuccess,
		"id":       created.ID,
		"total":    session.Total(),
		"comments": BuildCommentViews(session.Tree(), h.maxDepth),
	})
}

// CreateForm POST /posts/:slug/comments (HTML form)
func (h *CommentHandler) CreateForm(c *gin.Context) {
	slug := c.Param("slug")
	post, ok := h.findPost(c, slug)
	if !ok {
		return
	}

	var form models.CommentForm
	_ = c.ShouldBind(&form)

	cs := newCommentSession(c, slug, h.comments, h.cache)
	defer cs.Close()

	session := sessions.Default(c)
	created, err := cs.Submit(c.Request.Context(), form)
	if err != nil {
		_, body := submitErrorResponse(err)
		addToast(session, "error", body["error"].(string))
		fields, _ := body["fields"].(map[string]string)
		keepDraft(session, form, fields)
	} else {
		addToast(session, "success", services.MsgSubmitSuccess)
		h.notify(post, created, cs.Comments())
	}
	if err := session.Save(); err != nil {
		log.Printf("Failed to save session: %v", err)
	}

	c.Redirect(http.StatusFound, postURL(slug)+"#comments")
}

func (h *CommentHandler) notify(post *models.Post, created *models.Comment, comments []models.Comment) {
	if h.notifier == nil {
		return
	}
	var parent *models.Comment
	if created.IsReply() {
		for i := range comments {
			if comments[i].ID == *created.ParentID {
				parent = &comments[i]
				break
			}
		}
	}
	h.notifier.NotifyComment(post, created, parent)
}

func (h *CommentHandler) findPost(c *gin.Context, slug string) (*models.Post, bool) {
	post, err := h.posts.GetPost(c.Request.Context(), slug)
	if errors.Is(err, store.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "文章不存在"})
		return nil, false
	}
	if err != nil {
		log.Printf("Failed to load post %s: %v", slug, err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": services.MsgLoadFailed})
		return nil, false
	}
	return post, true
}

// submitErrorResponse maps a Submit error onto a status code and a JSON body.
func submitErrorResponse(err error) (int, gin.H) {
	var rl *services.RateLimitError
	var ve *services.ValidationError
	var we *services.RemoteWriteError
	switch {
	case errors.As(err, &rl):
		return http.StatusTooManyRequests, gin.H{
			"success":     false,
			"error":       rl.Error(),
			"remainingMs": rl.Remaining.Milliseconds(),
		}
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error":   services.MsgCheckForm,
			"fields":  ve.Fields,
		}
	case errors.As(err, &we):
		return http.StatusBadGateway, gin.H{"success": false, "error": services.MsgSubmitFailed}
	case errors.Is(err, services.ErrSessionBusy):
		return http.StatusConflict, gin.H{"success": false, "error": "评论正在提交中"}
	default:
		log.Printf("Unexpected submit error: %v", err)
		return http.StatusInternalServerError, gin.H{"success": false, "error": services.MsgSubmitFailed}
	}
}
