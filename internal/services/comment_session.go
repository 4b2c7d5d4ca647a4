package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"nainong/internal/models"
	"nainong/internal/utils"
)

// CommentStore is the record service holding comments.
type CommentStore interface {
	List(ctx context.Context, postKey string) ([]models.Comment, error)
	Create(ctx context.Context, payload models.CreateCommentPayload) (*models.Comment, error)
}

type SessionState int

const (
	StateIdle SessionState = iota
	StateLoading
	StateReady
	StateFailed
	StateSubmitting
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateSubmitting:
		return "submitting"
	}
	return "unknown"
}

// CommentSession 单个文章页面的评论状态：加载、校验、提交、刷新。
// 每次页面会话创建一个，不在请求之间共享。
type CommentSession struct {
	mu sync.Mutex

	postKey string
	store   CommentStore
	cache   *CommentCache
	gate    *SubmitGate

	state    SessionState
	comments []models.Comment
	tree     []*models.CommentWithReplies
	total    int
	errMsg   string
	notice   string

	draft       models.CommentForm
	fieldErrors map[string]string
	replyTo     string

	clientIP  string
	userAgent string

	closed bool
}

func NewCommentSession(postKey string, store CommentStore, cache *CommentCache, gate *SubmitGate) *CommentSession {
	return &CommentSession{
		postKey: postKey,
		store:   store,
		cache:   cache,
		gate:    gate,
		state:   StateIdle,
	}
}

// SetClient records submitter metadata that is sent along with every creation.
func (s *CommentSession) SetClient(ip, userAgent string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientIP, s.userAgent = ip, userAgent
}

// Load fetches the comments, from the cache when fresh, and rebuilds the tree.
// On failure the session moves to StateFailed and a *RemoteReadError is returned;
// nothing is retried.
func (s *CommentSession) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state == StateLoading || s.state == StateSubmitting {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.state = StateLoading
	s.errMsg = ""
	s.mu.Unlock()

	comments, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStaleResult
	}
	if err != nil {
		log.Printf("comments: load %s: %v", s.postKey, err)
		commentLoads.WithLabelValues("failed").Inc()
		s.state = StateFailed
		s.errMsg = MsgLoadFailed
		return &RemoteReadError{Err: err}
	}

	commentLoads.WithLabelValues("ok").Inc()
	s.comments = comments
	s.tree = OrganizeComments(comments)
	s.total = len(comments)
	s.state = StateReady
	return nil
}

// Refresh is the user-triggered retry; it is the only way out of StateFailed.
func (s *CommentSession) Refresh(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *CommentSession) fetch(ctx context.Context) ([]models.Comment, error) {
	if comments, ok := s.cache.Get(s.postKey); ok {
		return comments, nil
	}
	comments, err := s.store.List(ctx, s.postKey)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	s.cache.Put(s.postKey, comments)
	return comments, nil
}

// Submit runs gate check, validation and creation. Rejections by the gate or by
// validation make no network call and leave the state unchanged. After a successful
// create the cache is invalidated, the gate records the submission, the draft is reset
// and the comments are reloaded. A failed create keeps the draft and touches neither
// gate nor cache.
//
// Submit is accepted from Idle, Ready and Failed. Web handlers build a fresh session per
// request and submit without loading first; a failed list read does not block writes.
// Only Loading and Submitting reject with ErrSessionBusy.
func (s *CommentSession) Submit(ctx context.Context, form models.CommentForm) (*models.Comment, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.state == StateLoading || s.state == StateSubmitting {
		s.mu.Unlock()
		return nil, ErrSessionBusy
	}

	s.draft = form
	if strings.TrimSpace(form.ParentID) == "" && s.replyTo != "" {
		form.ParentID = s.replyTo
	}

	if !s.gate.CanSubmit() {
		remaining := s.gate.RemainingCooldown()
		s.mu.Unlock()
		commentSubmissions.WithLabelValues("rate_limited").Inc()
		return nil, &RateLimitError{Remaining: remaining}
	}

	if fields := validateForm(form); len(fields) > 0 {
		s.fieldErrors = fields
		s.mu.Unlock()
		commentSubmissions.WithLabelValues("invalid").Inc()
		return nil, &ValidationError{Fields: fields}
	}
	s.fieldErrors = nil

	payload := buildPayload(s.postKey, form)
	payload.IP, payload.UserAgent = s.clientIP, s.userAgent

	previous := s.state
	s.state = StateSubmitting
	s.mu.Unlock()

	created, err := s.store.Create(ctx, payload)

	s.mu.Lock()
	s.state = previous
	if err != nil {
		s.mu.Unlock()
		log.Printf("comments: create on %s: %v", s.postKey, err)
		commentSubmissions.WithLabelValues("failed").Inc()
		return nil, &RemoteWriteError{Err: err}
	}

	commentSubmissions.WithLabelValues("created").Inc()
	s.cache.Invalidate(s.postKey)
	if err := s.gate.RecordSubmission(s.gate.Now()); err != nil {
		log.Printf("comments: persist submit gate: %v", err)
	}
	s.draft = models.CommentForm{}
	s.replyTo = ""
	s.notice = MsgSubmitSuccess
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return created, nil
	}
	if err := s.Load(ctx); err != nil && !errors.Is(err, ErrStaleResult) {
		log.Printf("comments: reload %s after create: %v", s.postKey, err)
	}
	return created, nil
}

// Close abandons the session; results of in-flight loads are discarded.
func (s *CommentSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// SetReplyTo selects the comment the next submission answers; "" starts a new thread.
func (s *CommentSession) SetReplyTo(commentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replyTo = commentID
}

func (s *CommentSession) ReplyTo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replyTo
}

func (s *CommentSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tree returns the nested comments of the last successful load.
func (s *CommentSession) Tree() []*models.CommentWithReplies {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// Comments returns the flat list of the last successful load.
func (s *CommentSession) Comments() []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments
}

func (s *CommentSession) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ErrorMessage is the user-facing message of the last failed load, or "".
func (s *CommentSession) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Notice 返回并清除最近一次成功提交的提示
func (s *CommentSession) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notice
	s.notice = ""
	return n
}

func (s *CommentSession) Draft() models.CommentForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *CommentSession) FieldErrors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldErrors
}

func (s *CommentSession) Gate() *SubmitGate {
	return s.gate
}

func validateForm(form models.CommentForm) map[string]string {
	fields := make(map[string]string)
	if msg := utils.ValidateNickname(form.Nickname); msg != "" {
		fields["nickname"] = msg
	}
	if msg := utils.ValidateEmail(form.Email); msg != "" {
		fields["email"] = msg
	}
	if msg := utils.ValidateWebsite(form.Website); msg != "" {
		fields["website"] = msg
	}
	if msg := utils.ValidateContent(form.Content); msg != "" {
		fields["content"] = msg
	}
	return fields
}

func buildPayload(postKey string, form models.CommentForm) models.CreateCommentPayload {
	payload := models.CreateCommentPayload{
		PostKey:  postKey,
		Content:  utils.SanitizeHTML(form.Content),
		Nickname: utils.SanitizeText(form.Nickname),
	}
	if email := strings.TrimSpace(form.Email); email != "" {
		payload.Email = utils.SanitizeText(email)
	}
	if website := strings.TrimSpace(form.Website); website != "" {
		payload.Website = utils.SanitizeURL(website)
	}
	if parentID := strings.TrimSpace(form.ParentID); parentID != "" {
		payload.ParentID = &parentID
	}
	return payload
}
