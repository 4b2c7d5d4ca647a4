package services

import (
	"log"
	"time"
)

// SubmitRateLimit 两次成功发表评论之间的最短间隔（全站共用，不区分文章）
const SubmitRateLimit = 30 * time.Second

// GateStore persists the last successful submission time as Unix milliseconds.
type GateStore interface {
	Load() (ms int64, ok bool, err error)
	Save(ms int64) error
	Clear() error
}

// SubmitGate rate-limits comment creation by wall-clock time since the last
// successful submission. One gate covers every post.
type SubmitGate struct {
	store        GateStore
	now          func() time.Time
	lastSubmitAt time.Time
}

// NewSubmitGate restores the persisted timestamp. A value that is already outside the
// rate-limit window, or lies in the future, is cleared instead of restored.
func NewSubmitGate(store GateStore, now func() time.Time) *SubmitGate {
	if now == nil {
		now = time.Now
	}
	g := &SubmitGate{store: store, now: now}

	ms, ok, err := store.Load()
	if err != nil {
		log.Printf("submit gate: load persisted state: %v", err)
		return g
	}
	if !ok {
		return g
	}

	last := time.UnixMilli(ms)
	current := now()
	if elapsed := current.Sub(last); elapsed >= 0 && elapsed < SubmitRateLimit {
		g.lastSubmitAt = last
		return g
	}
	if err := store.Clear(); err != nil {
		log.Printf("submit gate: clear stale state: %v", err)
	}
	return g
}

// Now returns the gate's clock reading.
func (g *SubmitGate) Now() time.Time {
	return g.now()
}

// CanSubmit is true once strictly more than SubmitRateLimit has passed.
func (g *SubmitGate) CanSubmit() bool {
	if g.lastSubmitAt.IsZero() {
		return true
	}
	return g.now().Sub(g.lastSubmitAt) > SubmitRateLimit
}

// RemainingCooldown 剩余冷却时间，永不为负
func (g *SubmitGate) RemainingCooldown() time.Duration {
	if g.lastSubmitAt.IsZero() {
		return 0
	}
	remaining := SubmitRateLimit - g.now().Sub(g.lastSubmitAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordSubmission stores now in memory and in the GateStore. The in-memory value is
// updated even when persisting fails.
func (g *SubmitGate) RecordSubmission(now time.Time) error {
	g.lastSubmitAt = now
	return g.store.Save(now.UnixMilli())
}
