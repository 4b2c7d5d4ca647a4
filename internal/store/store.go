package store

import (
	"context"
	"errors"

	"nainong/internal/models"
)

var (
	ErrPostNotFound   = errors.New("post not found")
	ErrParentNotFound = errors.New("parent comment not found")
)

// PostStore 文章读取接口，数据库与 PocketBase 各有一份实现
type PostStore interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, slug string) (*models.Post, error)
}
