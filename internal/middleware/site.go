package middleware

import (
	"nainong/internal/config"

	"github.com/gin-gonic/gin"
)

const SiteKey = "site"

// SiteInfo exposes the site settings to handlers and templates.
func SiteInfo(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(SiteKey, cfg)
		c.Next()
	}
}
