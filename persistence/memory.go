// persistence/memory.go
package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/wfunc/analogyarena/models"
)

// Memory 内存实现，用于本地开发和测试，进程退出即丢失
type Memory struct {
	mu       sync.RWMutex
	results  []models.GameResult
	profiles map[string]models.Profile
	closed   bool
}

func NewMemory() *Memory {
	return &Memory{profiles: make(map[string]models.Profile)}
}

func (m *Memory) InsertResult(_ context.Context, r models.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	m.results = append(m.results, r)
	return nil
}

// ListResults 新插入的排在同一时间戳的旧记录前面
func (m *Memory) ListResults(_ context.Context, q ResultQuery) ([]models.GameResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}

	out := make([]models.GameResult, 0)
	for i := len(m.results) - 1; i >= 0; i-- {
		r := m.results[i]
		if q.UserID != "" && r.UserID != q.UserID {
			continue
		}
		if q.GameType != "" && r.GameType != q.GameType {
			continue
		}
		if !q.Since.IsZero() && r.CreatedAt.Before(q.Since) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []models.GameResult{}, nil
		}
		out = out[q.Offset:]
	}
	if limit := clampLimit(q.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) DeleteResult(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.results {
		if r.ID == id && r.UserID == userID {
			m.results = append(m.results[:i], m.results[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

func (m *Memory) GetProfiles(_ context.Context, userIDs []string) (map[string]models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]models.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := m.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *Memory) SaveProfile(_ context.Context, p models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	return nil
}

func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errClosed
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
