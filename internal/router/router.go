package router

import (
	"nainong/internal/config"
	"nainong/internal/handlers"
	"nainong/internal/middleware"
	"nainong/internal/services"
	"nainong/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 路由所需的依赖
type Deps struct {
	Config   *config.Config
	Posts    store.PostStore
	Comments services.CommentStore
	Cache    *services.CommentCache
	Covers   handlers.CoverTinter
	Notifier handlers.CommentNotifier
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	maxDepth := deps.Config.CommentMaxDepth

	// Handlers
	postHandler := handlers.NewPostHandler(deps.Posts, deps.Comments, deps.Cache, deps.Covers, maxDepth)
	commentHandler := handlers.NewCommentHandler(deps.Posts, deps.Comments, deps.Cache, deps.Notifier, maxDepth)
	seoHandler := handlers.NewSEOHandler(deps.Posts)

	r.Use(middleware.SiteInfo(deps.Config))

	// 公共路由 (Public Routes)
	r.GET("/", postHandler.List)               // 首页 - 文章列表
	r.GET("/robots.txt", seoHandler.RobotsTxt) // robots.txt
	r.GET("/sitemap.xml", seoHandler.SitemapXML)
	r.GET("/rss.xml", seoHandler.RSSFeed) // RSS 2.0
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 需要限流器的路由
	withGate := r.Group("/")
	withGate.Use(middleware.LoadGate())
	{
		withGate.GET("/posts/:slug", postHandler.Detail)                  // 文章详情页（含评论区）
		withGate.POST("/posts/:slug/comments", commentHandler.CreateForm) // 表单发表评论

		withGate.GET("/api/posts/:slug/comments", commentHandler.List)    // 评论树 JSON
		withGate.POST("/api/posts/:slug/comments", commentHandler.Create) // JSON 发表评论
	}
}
