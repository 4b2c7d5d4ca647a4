package main

import (
	"fmt"
	"html/template"
	"log"
	"path/filepath"
	"time"

	"nainong/internal/config"
	"nainong/internal/db"
	"nainong/internal/router"
	"nainong/internal/services"
	"nainong/internal/store"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	var (
		posts    store.PostStore
		comments services.CommentStore
	)
	switch cfg.CommentBackend {
	case config.BackendPocketBase:
		pb := store.NewPocketBaseClient(cfg.PocketBaseURL)
		defer pb.Close()
		posts, comments = pb, pb
		log.Printf("Using record service at %s", cfg.PocketBaseURL)
	default:
		// Initialize Database
		db.Init(cfg.DatabaseURL)
		dbStore := store.NewDBStore(db.DB)
		posts, comments = dbStore, dbStore
	}

	cache, err := services.NewCommentCache(cfg.CommentCacheSize, nil)
	if err != nil {
		log.Fatalf("Failed to create comment cache: %v", err)
	}
	covers, err := services.NewCoverColorService(cfg.CommentCacheSize)
	if err != nil {
		log.Fatalf("Failed to create cover colour cache: %v", err)
	}
	defer covers.Close()
	mailer := services.NewMailService(cfg)

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 3600,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions("nainong_session", sessionStore))

	// Load Templates using Multitemplate to avoid collision and allow handler names
	r.HTMLRender = loadTemplates(cfg.TemplatesDir)

	// Static Assets
	r.Static("/static", cfg.StaticDir)

	router.RegisterRoutes(r, router.Deps{
		Config:   cfg,
		Posts:    posts,
		Comments: comments,
		Cache:    cache,
		Covers:   covers,
		Notifier: mailer,
	})

	log.Printf("Server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	components, err := filepath.Glob(templatesDir + "/components/*.html")
	if err != nil {
		panic(err)
	}

	// Helper to assemble files
	assemble := func(view string) []string {
		files := make([]string, 0)
		files = append(files, layouts...)
		files = append(files, components...)
		files = append(files, view)
		return files
	}

	// FuncMap
	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"timeAgo": func(t time.Time) string {
			seconds := int(time.Since(t).Seconds())

			if seconds < 60 {
				return "刚刚"
			} else if seconds < 3600 {
				return fmt.Sprintf("%d分钟前", seconds/60)
			} else if seconds < 86400 {
				return fmt.Sprintf("%d小时前", seconds/3600)
			} else if seconds < 2592000 {
				return fmt.Sprintf("%d天前", seconds/86400)
			}
			return t.Format("2006-01-02")
		},
		"formatDate": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"safeCSS": func(s string) template.CSS {
			return template.CSS(s)
		},
	}

	r.AddFromFilesFuncs("post/list.html", funcMap, assemble(templatesDir+"/views/post/list.html")...)
	r.AddFromFilesFuncs("post/detail.html", funcMap, assemble(templatesDir+"/views/post/detail.html")...)

	// Error
	r.AddFromFilesFuncs("error.html", funcMap, assemble(templatesDir+"/views/error.html")...)

	return r
}
