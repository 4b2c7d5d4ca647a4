package handlers

import (
	"encoding/gob"
	"log"

	"nainong/internal/config"
	"nainong/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	flashToast = "toast"
	flashDraft = "draft"
)

// Toast 页面顶部的提示消息
type Toast struct {
	Type    string // success | error
	Message string
}

func init() {
	// flash 里保存的类型需要注册给 gob
	gob.Register(Toast{})
}

// Render helper to inject common variables like site info and pending toasts
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if site, exists := c.Get(middleware.SiteKey); exists {
		obj["Site"] = site
	}

	session := sessions.Default(c)
	if flashes := session.Flashes(flashToast); len(flashes) > 0 {
		obj["Toasts"] = flashes
		if err := session.Save(); err != nil {
			log.Printf("Failed to save session: %v", err)
		}
	}

	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// Error helper
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Error": message, "Title": message})
}

func addToast(session sessions.Session, typ, message string) {
	session.AddFlash(Toast{Type: typ, Message: message}, flashToast)
}

func siteConfig(c *gin.Context) *config.Config {
	if v, ok := c.Get(middleware.SiteKey); ok {
		if cfg, ok := v.(*config.Config); ok {
			return cfg
		}
	}
	return &config.Config{}
}
