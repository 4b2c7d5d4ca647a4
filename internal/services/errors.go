package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// 面向用户的提示文案
const (
	MsgLoadFailed    = "加载评论失败，请刷新页面重试"
	MsgSubmitFailed  = "评论发表失败，请稍后重试"
	MsgCheckForm     = "请检查表单填写"
	MsgSubmitSuccess = "评论发表成功！"
)

var (
	// ErrSessionBusy is returned when a load or submission is already in flight.
	ErrSessionBusy = errors.New("comment session is busy")
	// ErrSessionClosed is returned once the session has been closed.
	ErrSessionClosed = errors.New("comment session is closed")
	// ErrStaleResult marks a load whose result arrived after the session was closed.
	ErrStaleResult = errors.New("comment load result discarded")
)

// ValidationError carries one message per failing form field. It never reaches the store.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid comment: " + strings.Join(parts, "; ")
}

// RateLimitError reports the remaining cooldown of the submission gate.
type RateLimitError struct {
	Remaining time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("请等待%s后再试", FormatCooldown(e.Remaining))
}

// FormatCooldown 把剩余时间向上取整为秒，如 "25秒"
func FormatCooldown(d time.Duration) string {
	return fmt.Sprintf("%d秒", int(math.Ceil(d.Seconds())))
}

// RemoteReadError wraps a failed list call.
type RemoteReadError struct {
	Err error
}

func (e *RemoteReadError) Error() string { return "load comments: " + e.Err.Error() }
func (e *RemoteReadError) Unwrap() error { return e.Err }

// RemoteWriteError wraps a failed create call. The gate and cache are left untouched.
type RemoteWriteError struct {
	Err error
}

func (e *RemoteWriteError) Error() string { return "create comment: " + e.Err.Error() }
func (e *RemoteWriteError) Unwrap() error { return e.Err }
