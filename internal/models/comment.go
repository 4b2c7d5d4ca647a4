package models

import (
	"time"
)

// Comment 文章下的一条评论，创建后不再修改
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostKey   string    `gorm:"column:post_slug;not null;index" json:"postSlug"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Nickname  string    `gorm:"size:50;not null" json:"nickname"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	Website   string    `gorm:"size:255" json:"website,omitempty"`
	ParentID  *string   `gorm:"size:36;index" json:"parentId,omitempty"` // nil 表示顶层评论
	Pinned    bool      `gorm:"default:false;index" json:"pinned"`
	IP        string    `gorm:"size:64" json:"-"`
	UserAgent string    `gorm:"size:512" json:"-"`
	CreatedAt time.Time `json:"created"`
}

// IsReply reports whether the comment names a parent.
func (c Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// CommentWithReplies is a read-only view: one comment plus its direct replies.
// It is rebuilt from the flat list on every load.
type CommentWithReplies struct {
	Comment
	Replies []*CommentWithReplies `json:"replies"`
}

// CreateCommentPayload 提交给评论存储的数据（已经过清洗）
type CreateCommentPayload struct {
	PostKey   string  `json:"postSlug"`
	Content   string  `json:"content"`
	Nickname  string  `json:"nickname"`
	Email     string  `json:"email,omitempty"`
	Website   string  `json:"website,omitempty"`
	ParentID  *string `json:"parentId,omitempty"`
	IP        string  `json:"ip,omitempty"`
	UserAgent string  `json:"userAgent,omitempty"`
}

// CommentForm is the raw, unsanitized user input of the comment form.
type CommentForm struct {
	Nickname string `form:"nickname" json:"nickname"`
	Email    string `form:"email" json:"email"`
	Website  string `form:"website" json:"website"`
	Content  string `form:"content" json:"content"`
	ParentID string `form:"parent_id" json:"parentId"`
}

