package middleware

import (
	"fmt"

	"nainong/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const GateKey = "submit_gate"

// 与前端 localStorage 使用同一个键名
const gateSessionKey = "comment-submit-global"

// SessionGateStore keeps the last submission time in the visitor's cookie session.
type SessionGateStore struct {
	session sessions.Session
}

func NewSessionGateStore(session sessions.Session) *SessionGateStore {
	return &SessionGateStore{session: session}
}

func (s *SessionGateStore) Load() (int64, bool, error) {
	switch v := s.session.Get(gateSessionKey).(type) {
	case nil:
		return 0, false, nil
	case int64:
		return v, true, nil
	default:
		return 0, false, fmt.Errorf("unexpected gate value of type %T", v)
	}
}

func (s *SessionGateStore) Save(ms int64) error {
	s.session.Set(gateSessionKey, ms)
	return s.session.Save()
}

func (s *SessionGateStore) Clear() error {
	s.session.Delete(gateSessionKey)
	return s.session.Save()
}

// LoadGate restores the visitor's submission gate from the session and sets it to context
func LoadGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := NewSessionGateStore(sessions.Default(c))
		c.Set(GateKey, services.NewSubmitGate(store, nil))
		c.Next()
	}
}

// Gate returns the gate loaded by LoadGate, or a fresh in-memory one.
func Gate(c *gin.Context) *services.SubmitGate {
	if v, ok := c.Get(GateKey); ok {
		if gate, ok := v.(*services.SubmitGate); ok {
			return gate
		}
	}
	return services.NewSubmitGate(&services.MemoryGateStore{}, nil)
}
