package db

import (
	"log"

	"nainong/internal/models"
	"nainong/internal/utils"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(dsn string) {
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=nainong port=5432 sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	// Auto Migrate
	err = DB.AutoMigrate(
		&models.Post{},
		&models.Comment{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedPosts()
}

func seedPosts() {
	// 已有文章时跳过
	var count int64
	DB.Model(&models.Post{}).Count(&count)
	if count > 0 {
		log.Println("Posts already seeded, skipping")
		return
	}

	title := "Hello World"
	post := models.Post{
		ID:       uuid.NewString(),
		Slug:     utils.Slugify(title),
		Title:    title,
		Summary:  "博客的第一篇文章",
		Content:  "欢迎来到这里。\n\n在下方留下你的第一条评论吧。",
		Tags:     []string{"随笔"},
		Category: "日常",
	}
	if err := DB.Create(&post).Error; err != nil {
		log.Printf("Failed to create post %s: %v", post.Slug, err)
		return
	}
	log.Println("Initial post created successfully")
}
