package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nainong/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DBStore keeps posts and comments in the application database.
type DBStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db, now: time.Now}
}

// List 返回文章的全部评论：置顶优先，然后按时间倒序
func (s *DBStore) List(ctx context.Context, postKey string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("post_slug = ?", postKey).
		Order("pinned DESC, created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments of %s: %w", postKey, err)
	}
	return comments, nil
}

// Create stores a new comment. A parent must already exist under the same post.
func (s *DBStore) Create(ctx context.Context, payload models.CreateCommentPayload) (*models.Comment, error) {
	comment := models.Comment{
		ID:        uuid.NewString(),
		PostKey:   payload.PostKey,
		Content:   payload.Content,
		Nickname:  payload.Nickname,
		Email:     payload.Email,
		Website:   payload.Website,
		ParentID:  payload.ParentID,
		IP:        payload.IP,
		UserAgent: payload.UserAgent,
		CreatedAt: s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if comment.IsReply() {
			var count int64
			if err := tx.Model(&models.Comment{}).
				Where("id = ? AND post_slug = ?", *comment.ParentID, comment.PostKey).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrParentNotFound
			}
		}
		return tx.Create(&comment).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create comment on %s: %w", payload.PostKey, err)
	}
	return &comment, nil
}

func (s *DBStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := s.db.WithContext(ctx).
		Where("draft = ?", false).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (s *DBStore) GetPost(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Where("slug = ? AND draft = ?", slug, false).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", slug, err)
	}
	return &post, nil
}
