package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendDB         = "db"
	BackendPocketBase = "pocketbase"
)

// Config 服务端运行配置，全部来自环境变量（可由 .env 提供）
type Config struct {
	Port          string
	DatabaseURL   string
	SessionSecret string

	SiteURL         string
	SiteTitle       string
	SiteDescription string
	SiteLang        string

	CommentBackend   string // db | pocketbase
	PocketBaseURL    string
	CommentCacheSize int
	CommentMaxDepth  int

	TemplatesDir string
	StaticDir    string

	// 新评论邮件通知，SMTP 变量不全时关闭
	SMTPHost   string
	SMTPPort   string
	SMTPUser   string
	SMTPPass   string
	SMTPFrom   string
	AdminEmail string
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		DatabaseURL:   getenv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=nainong port=5432 sslmode=disable TimeZone=Asia/Shanghai"),
		SessionSecret: getenv("SESSION_SECRET", "secret_key_change_me"),

		SiteURL:         strings.TrimSuffix(getenv("SITE_URL", "https://nainong.me"), "/"),
		SiteTitle:       getenv("SITE_TITLE", "奶农的博客"),
		SiteDescription: getenv("SITE_DESCRIPTION", "记录生活与技术"),
		SiteLang:        getenv("SITE_LANG", "zh-CN"),

		CommentBackend:   strings.ToLower(getenv("COMMENT_BACKEND", BackendDB)),
		PocketBaseURL:    strings.TrimSuffix(getenv("POCKETBASE_URL", "http://localhost:8090"), "/"),
		CommentCacheSize: getenvInt("COMMENT_CACHE_SIZE", 500),
		CommentMaxDepth:  getenvInt("COMMENT_MAX_DEPTH", 3),

		TemplatesDir: getenv("TEMPLATES_DIR", "./web/templates"),
		StaticDir:    getenv("STATIC_DIR", "./web/static"),

		SMTPHost:   os.Getenv("SMTP_HOST"),
		SMTPPort:   getenv("SMTP_PORT", "587"),
		SMTPUser:   os.Getenv("SMTP_USER"),
		SMTPPass:   os.Getenv("SMTP_PASS"),
		SMTPFrom:   os.Getenv("SMTP_FROM"),
		AdminEmail: os.Getenv("ADMIN_EMAIL"),
	}

	if cfg.CommentBackend != BackendDB && cfg.CommentBackend != BackendPocketBase {
		log.Printf("Unknown COMMENT_BACKEND %q, falling back to %q", cfg.CommentBackend, BackendDB)
		cfg.CommentBackend = BackendDB
	}
	if cfg.SessionSecret == "secret_key_change_me" {
		log.Println("⚠️ SESSION_SECRET not set, using the built-in development secret")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getenvInt returns fallback when the variable is unset, malformed or not positive.
func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
