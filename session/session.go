// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/analogyarena/network"
)

// Session 一条 websocket 连接；登录后绑定 UserID，同时最多进行一局游戏
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	userID     string
	username   string
	game       interface{}
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

// Bind 登录成功后绑定用户
func (s *Session) Bind(userID, username string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.userID = userID
	s.username = username
}

func (s *Session) UserID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.userID
}

func (s *Session) Username() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.username
}

// SetGame replaces the active game; the previous one is simply dropped.
func (s *Session) SetGame(g interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.game = g
}

func (s *Session) Game() interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.game
}

func (s *Session) ClearGame() { s.SetGame(nil) }

// Touch 记录最近一次收到消息的时间
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Send(msgID uint16, data []byte) error {
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) GetByUserID(userID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if userID != "" && session.UserID() == userID {
			result = append(result, session)
		}
	}
	return result
}

func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Idle 返回超过 maxIdle 没有活动的会话
func (m *Manager) Idle(now time.Time, maxIdle time.Duration) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if now.Sub(session.LastActive()) > maxIdle {
			result = append(result, session)
		}
	}
	return result
}
