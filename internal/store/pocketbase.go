package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nainong/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	"resty.dev/v3"
)

const (
	commentsRecords = "/api/collections/comments/records"
	postsRecords    = "/api/collections/posts/records"

	pageSize = 500
)

// PocketBase 的时间格式
const pbTimeLayout = "2006-01-02 15:04:05.000Z"

var apiLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pocketbase_request_latency",
		Help:    "Histogram of record service request latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	},
	[]string{"method", "path", "status_code"},
)

var DefaultTransportSettings = &resty.TransportSettings{
	DialerTimeout:         3 * time.Second,
	DialerKeepAlive:       30 * time.Second,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   3 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ResponseHeaderTimeout: 10 * time.Second,
}

// PocketBaseClient talks to a PocketBase-compatible record service holding the
// "comments" and "posts" collections.
type PocketBaseClient struct {
	baseURL string
	client  *resty.Client
}

func NewPocketBaseClient(baseURL string, middlewares ...resty.ResponseMiddleware) *PocketBaseClient {
	baseURL = strings.TrimRight(baseURL, "/")
	client := resty.NewWithTransportSettings(DefaultTransportSettings).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		AddResponseMiddleware(metricMiddleware)
	for _, m := range middlewares {
		client.AddResponseMiddleware(m)
	}
	return &PocketBaseClient{baseURL: baseURL, client: client}
}

func (c *PocketBaseClient) Close() error {
	return c.client.Close()
}

func (c *PocketBaseClient) r(ctx context.Context) *resty.Request {
	return c.client.R().WithContext(ctx).SetError(&pbError{})
}

func metricMiddleware(_ *resty.Client, response *resty.Response) error {
	reqURL, err := url.Parse(response.Request.URL)
	if err != nil {
		return err
	}

	apiLatency.WithLabelValues(
		response.Request.Method,
		reqURL.Path,
		strconv.Itoa(response.StatusCode()),
	).Observe(response.Duration().Seconds())

	return nil
}

type pbError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type pbList[T any] struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
	Items      []T `json:"items"`
}

type pbComment struct {
	ID       string `json:"id"`
	PostSlug string `json:"postSlug"`
	Content  string `json:"content"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Website  string `json:"website"`
	ParentID string `json:"parentId"`
	Pinned   bool   `json:"pinned"`
	Created  string `json:"created"`
}

type pbPost struct {
	ID           string   `json:"id"`
	CollectionID string   `json:"collectionId"`
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Summary      string   `json:"summary"`
	Cover        string   `json:"cover"`
	Tags         []string `json:"tags"`
	Category     string   `json:"category"`
	Draft        bool     `json:"draft"`
	Created      string   `json:"created"`
	Updated      string   `json:"updated"`
}

func responseError(op string, res *resty.Response) error {
	if e, ok := res.Error().(*pbError); ok && e.Message != "" {
		return fmt.Errorf("%s: status %d: %s", op, res.StatusCode(), e.Message)
	}
	return fmt.Errorf("%s: status %d", op, res.StatusCode())
}

// listAll 逐页读取，直到最后一页
func listAll[T any](ctx context.Context, c *PocketBaseClient, path string, params url.Values, op string) ([]T, error) {
	var all []T
	for page := 1; ; page++ {
		query := url.Values{}
		for k, v := range params {
			query[k] = v
		}
		query.Set("page", strconv.Itoa(page))
		query.Set("perPage", strconv.Itoa(pageSize))

		res, err := c.r(ctx).
			SetQueryParamsFromValues(query).
			SetResult(&pbList[T]{}).
			Get(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if res.IsError() {
			return nil, responseError(op, res)
		}

		list := res.Result().(*pbList[T])
		all = append(all, list.Items...)
		if len(list.Items) == 0 || page >= list.TotalPages {
			return all, nil
		}
	}
}

// List returns every comment of the post, pinned first and then newest first.
func (c *PocketBaseClient) List(ctx context.Context, postKey string) ([]models.Comment, error) {
	records, err := listAll[pbComment](ctx, c, commentsRecords, url.Values{
		"filter": {fmt.Sprintf(`postSlug="%s"`, escapeFilter(postKey))},
		"sort":   {"-pinned,-created"},
	}, "list comments")
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(r pbComment, _ int) models.Comment {
		return r.toModel()
	}), nil
}

func (c *PocketBaseClient) Create(ctx context.Context, payload models.CreateCommentPayload) (*models.Comment, error) {
	res, err := c.r(ctx).
		SetBody(payload).
		SetResult(&pbComment{}).
		Post(commentsRecords)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if res.IsError() {
		return nil, responseError("create comment", res)
	}

	comment := res.Result().(*pbComment).toModel()
	return &comment, nil
}

func (c *PocketBaseClient) ListPosts(ctx context.Context) ([]models.Post, error) {
	records, err := listAll[pbPost](ctx, c, postsRecords, url.Values{
		"filter": {"draft=false"},
		"sort":   {"-created"},
	}, "list posts")
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(r pbPost, _ int) models.Post {
		return r.toModel(c.baseURL)
	}), nil
}

func (c *PocketBaseClient) GetPost(ctx context.Context, slug string) (*models.Post, error) {
	res, err := c.r(ctx).
		SetQueryParam("filter", fmt.Sprintf(`slug="%s" && draft=false`, escapeFilter(slug))).
		SetQueryParam("perPage", "1").
		SetResult(&pbList[pbPost]{}).
		Get(postsRecords)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", slug, err)
	}
	if res.IsError() {
		return nil, responseError("get post "+slug, res)
	}

	items := res.Result().(*pbList[pbPost]).Items
	if len(items) == 0 {
		return nil, ErrPostNotFound
	}
	post := items[0].toModel(c.baseURL)
	return &post, nil
}

func (r pbComment) toModel() models.Comment {
	c := models.Comment{
		ID:        r.ID,
		PostKey:   r.PostSlug,
		Content:   r.Content,
		Nickname:  r.Nickname,
		Email:     r.Email,
		Website:   r.Website,
		Pinned:    r.Pinned,
		CreatedAt: parseTime(r.Created),
	}
	if r.ParentID != "" {
		parentID := r.ParentID
		c.ParentID = &parentID
	}
	return c
}

func (r pbPost) toModel(baseURL string) models.Post {
	p := models.Post{
		ID:        r.ID,
		Slug:      r.Slug,
		Title:     r.Title,
		Content:   r.Content,
		Summary:   r.Summary,
		Cover:     r.Cover,
		Tags:      r.Tags,
		Category:  r.Category,
		Draft:     r.Draft,
		CreatedAt: parseTime(r.Created),
		UpdatedAt: parseTime(r.Updated),
	}
	// 文件字段只保存文件名
	if p.Cover != "" && !strings.HasPrefix(p.Cover, "http://") && !strings.HasPrefix(p.Cover, "https://") {
		p.Cover = fmt.Sprintf("%s/api/files/%s/%s/%s", baseURL, r.CollectionID, r.ID, url.PathEscape(r.Cover))
	}
	return p
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(pbTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func escapeFilter(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
