package gateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FleetLink/FleetLink/internal/inspection"
)

// SessionManager 内存会话表。巡检会话是工作态，进程重启即丢失；
// 已提交的数据都在库里，丢会话只丢未提交的进度。
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	session  *inspection.Session
	lastSeen time.Time
}

// NewSessionManager 创建会话表
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: map[string]*sessionEntry{}}
}

// Create 新建会话。editID 非空表示编辑已有巡检单。
func (m *SessionManager) Create(actor, locale, editID string) *inspection.Session {
	id := uuid.NewString()
	sess := inspection.NewSession(id, actor, locale, editID)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &sessionEntry{session: sess, lastSeen: time.Now()}
	return sess
}

// Get 取会话并刷新活跃时间
func (m *SessionManager) Get(id string) (*inspection.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	entry.lastSeen = time.Now()
	return entry.session, nil
}

// Delete 删除会话
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// SweepIdle 清理闲置超过 maxIdle 的会话，返回清理数量。
func (m *SessionManager) SweepIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for id, entry := range m.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Count 当前会话数（观测用）
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
