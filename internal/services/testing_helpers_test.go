package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"nainong/internal/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var errRemote = errors.New("remote unavailable")

// fakeStore is an in-memory CommentStore that counts calls.
type fakeStore struct {
	mu        sync.Mutex
	comments  map[string][]models.Comment
	listCalls int
	created   []models.CreateCommentPayload
	listErr   error
	createErr error
	nextID    int
	clock     *fakeClock

	// block, when set, is waited on inside List.
	block chan struct{}
}

func newFakeStore(clock *fakeClock) *fakeStore {
	return &fakeStore{comments: make(map[string][]models.Comment), clock: clock}
}

func (s *fakeStore) List(ctx context.Context, postKey string) ([]models.Comment, error) {
	s.mu.Lock()
	s.listCalls++
	block := s.block
	err := s.listErr
	out := append([]models.Comment(nil), s.comments[postKey]...)
	s.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *fakeStore) Create(ctx context.Context, p models.CreateCommentPayload) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	c := models.Comment{
		ID:        "c" + string(rune('a'+s.nextID-1)),
		PostKey:   p.PostKey,
		Content:   p.Content,
		Nickname:  p.Nickname,
		Email:     p.Email,
		Website:   p.Website,
		ParentID:  p.ParentID,
		IP:        p.IP,
		UserAgent: p.UserAgent,
		CreatedAt: s.clock.Now(),
	}
	s.created = append(s.created, p)
	s.comments[p.PostKey] = append([]models.Comment{c}, s.comments[p.PostKey]...)
	return &c, nil
}

func (s *fakeStore) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func (s *fakeStore) CreateCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}
