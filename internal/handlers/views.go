package handlers

import (
	"html/template"
	"time"

	"nainong/internal/models"
	"nainong/internal/utils"
)

const avatarSize = 80

// CommentView is one rendered comment. Depth is the indentation level, capped at the
// display limit; nodes at or beyond the limit cannot be replied to.
type CommentView struct {
	ID          string        `json:"id"`
	ParentID    string        `json:"parentId,omitempty"`
	Nickname    string        `json:"nickname"`
	Website     string        `json:"website,omitempty"`
	AvatarURL   string        `json:"avatar"`
	Content     string        `json:"content"`
	ContentHTML template.HTML `json:"contentHtml"`
	Pinned      bool          `json:"pinned"`
	CreatedAt   time.Time     `json:"created"`
	Depth       int           `json:"depth"`
	CanReply    bool          `json:"canReply"`
	Replies     []CommentView `json:"replies"`
}

// BuildCommentViews renders the full tree; maxDepth only affects indentation and the
// reply action.
func BuildCommentViews(roots []*models.CommentWithReplies, maxDepth int) []CommentView {
	return buildViews(roots, 0, maxDepth)
}

func buildViews(nodes []*models.CommentWithReplies, depth, maxDepth int) []CommentView {
	views := make([]CommentView, 0, len(nodes))
	for _, n := range nodes {
		v := CommentView{
			ID:          n.ID,
			Nickname:    n.Nickname,
			Website:     n.Website,
			AvatarURL:   utils.AvatarURL(n.Email, n.Nickname, avatarSize),
			Content:     n.Content,
			ContentHTML: utils.RenderMarkdown(n.Content),
			Pinned:      n.Pinned,
			CreatedAt:   n.CreatedAt,
			Depth:       min(depth, maxDepth),
			CanReply:    depth < maxDepth,
			Replies:     buildViews(n.Replies, depth+1, maxDepth),
		}
		if n.ParentID != nil {
			v.ParentID = *n.ParentID
		}
		views = append(views, v)
	}
	return views
}
