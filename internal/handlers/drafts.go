package handlers

import (
	"log"
	"time"

	"nainong/internal/models"
	"nainong/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/google/uuid"
)

// formDraft 表单提交失败时保留的内容。正文最长 5000 字，放不进 4KB 的 cookie，
// 所以草稿留在服务端，flash 里只存 id。
type formDraft struct {
	Form   models.CommentForm
	Fields map[string]string
}

const draftTTL = 10 * time.Minute

var drafts = newDraftCache()

func newDraftCache() *utils.TTLCache[formDraft] {
	c, err := utils.NewTTLCache[formDraft](1000, draftTTL, nil)
	if err != nil {
		log.Fatalf("❌ Failed to create draft cache: %v", err)
	}
	return c
}

// keepDraft 保存草稿并把 id 写进 flash
func keepDraft(session sessions.Session, form models.CommentForm, fields map[string]string) {
	id := uuid.NewString()
	drafts.Set(id, formDraft{Form: form, Fields: fields})
	session.AddFlash(id, flashDraft)
}

// takeDraft 取出上一次失败提交留下的草稿，取出后即删除
func takeDraft(session sessions.Session) (formDraft, bool) {
	flashes := session.Flashes(flashDraft)
	if len(flashes) == 0 {
		return formDraft{}, false
	}
	id, ok := flashes[0].(string)
	if !ok {
		return formDraft{}, false
	}
	d, ok := drafts.Get(id)
	drafts.Delete(id)
	return d, ok
}
