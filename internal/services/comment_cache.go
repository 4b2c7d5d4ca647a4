package services

import (
	"slices"
	"time"

	"nainong/internal/models"
	"nainong/internal/utils"
)

// CommentCacheFreshness 评论列表缓存有效期
const CommentCacheFreshness = 5 * time.Minute

// CommentCache memoizes the full comment list of each post for CommentCacheFreshness.
// Safe for concurrent use.
type CommentCache struct {
	entries *utils.TTLCache[[]models.Comment]
}

// NewCommentCache creates a cache holding at most size posts. now may be nil.
func NewCommentCache(size int, now func() time.Time) (*CommentCache, error) {
	entries, err := utils.NewTTLCache[[]models.Comment](size, CommentCacheFreshness, now)
	if err != nil {
		return nil, err
	}
	return &CommentCache{entries: entries}, nil
}

// Get 命中时返回列表副本；过期或不存在时返回 false
func (c *CommentCache) Get(postKey string) ([]models.Comment, bool) {
	comments, ok := c.entries.Get(postKey)
	if !ok {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	cacheLookups.WithLabelValues("hit").Inc()
	return slices.Clone(comments), true
}

// Put replaces whatever is stored for postKey and stamps it with the current time.
func (c *CommentCache) Put(postKey string, comments []models.Comment) {
	if comments == nil {
		comments = []models.Comment{}
	}
	c.entries.Set(postKey, slices.Clone(comments))
}

// Invalidate 删除该文章的缓存，不存在时为空操作
func (c *CommentCache) Invalidate(postKey string) {
	c.entries.Delete(postKey)
}
