package handlers

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"nainong/internal/config"
	"nainong/internal/middleware"
	"nainong/internal/models"
	"nainong/internal/services"
	"nainong/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"
)

type memoryStore struct {
	mu        sync.Mutex
	notified  []string
	posts     []models.Post
	comments  []models.Comment
	createErr error
	lists     int
}

func (s *memoryStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.posts, nil
}

func (s *memoryStore) GetPost(ctx context.Context, slug string) (*models.Post, error) {
	for i := range s.posts {
		if s.posts[i].Slug == slug {
			return &s.posts[i], nil
		}
	}
	return nil, store.ErrPostNotFound
}

func (s *memoryStore) List(ctx context.Context, postKey string) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	var out []models.Comment
	for _, c := range s.comments {
		if c.PostKey == postKey {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryStore) Create(ctx context.Context, p models.CreateCommentPayload) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	c := models.Comment{
		ID:        "new" + string(rune('0'+len(s.comments))),
		PostKey:   p.PostKey,
		Content:   p.Content,
		Nickname:  p.Nickname,
		Email:     p.Email,
		ParentID:  p.ParentID,
		CreatedAt: time.Now(),
	}
	s.comments = append([]models.Comment{c}, s.comments...)
	return &c, nil
}

func (s *memoryStore) NotifyComment(post *models.Post, comment *models.Comment, parent *models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := post.Slug + "/" + comment.ID
	if parent != nil {
		entry += "->" + parent.ID
	}
	s.notified = append(s.notified, entry)
}

const detailTemplate = `{{define "post/detail.html"}}title={{.Post.Title}} total={{.Total}} state={{.CommentState}} draft={{.Draft.Content}}{{range .Toasts}} toast={{.Message}}{{end}}{{end}}`

func newTestEngine(t *testing.T, st *memoryStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cache, err := services.NewCommentCache(10, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		SiteURL:         "https://blog.example.com",
		SiteTitle:       "测试博客",
		SiteDescription: "desc",
		SiteLang:        "zh-CN",
	}

	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("").Parse(detailTemplate +
		`{{define "error.html"}}error={{.Error}}{{end}}`)))
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(middleware.SiteInfo(cfg))
	r.Use(middleware.LoadGate())

	posts := NewPostHandler(st, st, cache, nil, 3)
	comments := NewCommentHandler(st, st, cache, st, 3)
	seo := NewSEOHandler(st)
	r.GET("/posts/:slug", posts.Detail)
	r.POST("/posts/:slug/comments", comments.CreateForm)
	r.GET("/api/posts/:slug/comments", comments.List)
	r.POST("/api/posts/:slug/comments", comments.Create)
	r.GET("/rss.xml", seo.RSSFeed)
	r.GET("/sitemap.xml", seo.SitemapXML)
	return r
}

func newMemoryStore() *memoryStore {
	parent := "c1"
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &memoryStore{
		posts: []models.Post{
			{ID: "p1", Slug: "hello", Title: "你好 & 世界", Summary: "第一篇", Category: "日常", CreatedAt: created},
			{ID: "p2", Slug: "second", Title: "Second", Content: "正文段落", CreatedAt: created.Add(-time.Hour)},
		},
		comments: []models.Comment{
			{ID: "c1", PostKey: "hello", Nickname: "甲", Content: "第一条评论", CreatedAt: created},
			{ID: "c2", PostKey: "hello", Nickname: "乙", Content: "回复第一条", ParentID: &parent, CreatedAt: created},
		},
	}
}

func postJSON(r *gin.Engine, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(data)))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCommentListAPI(t *testing.T) {
	r := newTestEngine(t, newMemoryStore())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts/hello/comments", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success  bool          `json:"success"`
		Total    int           `json:"total"`
		Comments []CommentView `json:"comments"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Total != 2 || len(resp.Comments) != 1 || len(resp.Comments[0].Replies) != 1 {
		t.Errorf("unexpected response: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts/missing/comments", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing post status = %d", w.Code)
	}
}

func TestCommentCreateAPI(t *testing.T) {
	st := newMemoryStore()
	r := newTestEngine(t, st)

	form := map[string]string{"nickname": "丙", "email": "bing@example.com", "content": "很有帮助的文章", "parentId": "c1"}
	w := postJSON(r, "/api/posts/hello/comments", form, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var created struct {
		Success bool `json:"success"`
		Total   int  `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if !created.Success || created.Total != 3 {
		t.Errorf("unexpected response: %s", w.Body.String())
	}
	if len(st.notified) != 1 || st.notified[0] != "hello/new2->c1" {
		t.Errorf("notified = %v", st.notified)
	}

	// 同一访客 30 秒内再次提交被限流
	w2 := postJSON(r, "/api/posts/hello/comments", form, w.Result().Cookies())
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, body = %s", w2.Code, w2.Body.String())
	}
	var limited struct {
		RemainingMs int64 `json:"remainingMs"`
	}
	_ = json.Unmarshal(w2.Body.Bytes(), &limited)
	if limited.RemainingMs <= 0 || limited.RemainingMs > 30000 {
		t.Errorf("remainingMs = %d", limited.RemainingMs)
	}
}

func TestCommentCreateAPIErrors(t *testing.T) {
	st := newMemoryStore()
	r := newTestEngine(t, st)

	w := postJSON(r, "/api/posts/hello/comments", map[string]string{"nickname": "", "content": "短"}, nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var invalid struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &invalid)
	if invalid.Error != services.MsgCheckForm || invalid.Fields["nickname"] == "" || invalid.Fields["content"] == "" {
		t.Errorf("unexpected response: %s", w.Body.String())
	}

	st.createErr = context.DeadlineExceeded
	w = postJSON(r, "/api/posts/hello/comments", map[string]string{"nickname": "丁", "content": "很有帮助的文章"}, nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("write failure status = %d", w.Code)
	}
}

func TestCommentFormKeepsDraftOnError(t *testing.T) {
	r := newTestEngine(t, newMemoryStore())

	form := url.Values{"nickname": {""}, "content": {"我的草稿内容"}}
	req := httptest.NewRequest(http.MethodPost, "/posts/hello/comments", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/posts/hello#comments" {
		t.Errorf("Location = %q", loc)
	}

	req = httptest.NewRequest(http.MethodGet, "/posts/hello", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	body := w.Body.String()
	for _, want := range []string{"total=2", "state=ready", "draft=我的草稿内容", "toast=" + services.MsgCheckForm} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}

func TestCommentFormKeepsLongDraftOnWriteFailure(t *testing.T) {
	st := newMemoryStore()
	st.createErr = errors.New("record service unavailable")
	r := newTestEngine(t, st)

	content := strings.Repeat("长", 3000)
	form := url.Values{"nickname": {"小明"}, "content": {content}}
	req := httptest.NewRequest(http.MethodPost, "/posts/hello/comments", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("Expected the session cookie to be written")
	}

	req = httptest.NewRequest(http.MethodGet, "/posts/hello", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	body := w.Body.String()
	if !strings.Contains(body, "draft="+content) {
		t.Errorf("Expected the %d-rune draft to survive the redirect", len([]rune(content)))
	}
	if !strings.Contains(body, "toast="+services.MsgSubmitFailed) {
		t.Errorf("body missing failure toast %q", services.MsgSubmitFailed)
	}

	// 草稿只显示一次，重放旧 cookie 也取不到
	req = httptest.NewRequest(http.MethodGet, "/posts/hello", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if strings.Contains(w.Body.String(), content) {
		t.Error("Expected draft to be consumed by the first page view")
	}
}

func TestPostDetailNotFound(t *testing.T) {
	r := newTestEngine(t, newMemoryStore())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/missing", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "文章不存在") {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestRSSFeed(t *testing.T) {
	r := newTestEngine(t, newMemoryStore())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rss.xml", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	feed, err := gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("parse feed: %v\n%s", err, w.Body.String())
	}
	if feed.Title != "测试博客" || feed.Language != "zh-CN" {
		t.Errorf("feed = %q %q", feed.Title, feed.Language)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("items = %d", len(feed.Items))
	}
	first := feed.Items[0]
	if first.Title != "你好 & 世界" || first.Link != "https://blog.example.com/posts/hello" || first.Description != "第一篇" {
		t.Errorf("first item = %q %q %q", first.Title, first.Link, first.Description)
	}
	if first.PublishedParsed == nil || !first.PublishedParsed.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("published = %v", first.PublishedParsed)
	}
	if !strings.Contains(feed.Items[1].Description, "正文段落") {
		t.Errorf("second description = %q", feed.Items[1].Description)
	}
}

func TestSitemapEscapesURLs(t *testing.T) {
	st := newMemoryStore()
	st.posts = append(st.posts, models.Post{ID: "p3", Slug: "tom&jerry", Title: "T", CreatedAt: time.Now()})
	r := newTestEngine(t, st)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var sitemap struct {
		URLs []struct {
			Loc string `xml:"loc"`
		} `xml:"url"`
	}
	if err := xml.Unmarshal(w.Body.Bytes(), &sitemap); err != nil {
		t.Fatalf("sitemap is not valid XML: %v\n%s", err, w.Body.String())
	}
	var locs []string
	for _, u := range sitemap.URLs {
		locs = append(locs, u.Loc)
	}
	want := []string{
		"https://blog.example.com/",
		"https://blog.example.com/posts/hello",
		"https://blog.example.com/posts/second",
		"https://blog.example.com/posts/tom&jerry",
	}
	if diff := cmp.Diff(want, locs); diff != "" {
		t.Errorf("sitemap locations mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCommentViewsCapsDepth(t *testing.T) {
	ids := []string{"d0", "d1", "d2", "d3", "d4"}
	var comments []models.Comment
	for i, id := range ids {
		c := models.Comment{ID: id, Nickname: "n", Content: "content"}
		if i > 0 {
			parent := ids[i-1]
			c.ParentID = &parent
		}
		comments = append(comments, c)
	}

	views := BuildCommentViews(services.OrganizeComments(comments), 3)
	depth := 0
	for v := views; len(v) > 0; v = v[0].Replies {
		wantDepth := min(depth, 3)
		if v[0].Depth != wantDepth || v[0].CanReply != (depth < 3) {
			t.Errorf("%s: depth=%d canReply=%v", v[0].ID, v[0].Depth, v[0].CanReply)
		}
		depth++
	}
	if depth != len(ids) {
		t.Errorf("rendered %d levels, want %d", depth, len(ids))
	}
}
