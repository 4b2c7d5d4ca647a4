package services

import "nainong/internal/models"

// OrganizeComments builds the reply forest from a flat list in two passes.
// Input order is preserved among roots and within every reply list. A comment whose
// parent is not part of the list becomes a root. Cycles are not checked: the store only
// accepts parents that already exist.
func OrganizeComments(comments []models.Comment) []*models.CommentWithReplies {
	nodes := make(map[string]*models.CommentWithReplies, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &models.CommentWithReplies{
			Comment: c,
			Replies: []*models.CommentWithReplies{},
		}
	}

	roots := make([]*models.CommentWithReplies, 0, len(comments))
	for _, c := range comments {
		node := nodes[c.ID]
		if c.IsReply() {
			if parent, ok := nodes[*c.ParentID]; ok && parent != node {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
