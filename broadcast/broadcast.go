// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/analogyarena/logger"
	"github.com/wfunc/analogyarena/network"
	"github.com/wfunc/analogyarena/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToAll(msgID uint16, data []byte) error
	BroadcastToUsers(userIDs []string, msgID uint16, data []byte) error
	// SendToUser 编码 payload 后推送给该用户的所有连接
	SendToUser(userID string, msgID uint16, payload interface{}) (int, error)
}

// 基于会话的广播器，一个用户可能同时开着多个连接
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{sessionManager: sessionManager}
}

func (b *SessionBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(msgID, data); err != nil {
			// 发送失败的连接由读循环负责清理
			logger.Log.Debugw("broadcast send failed", "session", s.GetID(), "error", err)
			continue
		}
	}
	return nil
}

func (b *SessionBroadcaster) BroadcastToUsers(userIDs []string, msgID uint16, data []byte) error {
	for _, userID := range userIDs {
		b.sendUser(userID, msgID, data)
	}
	return nil
}

func (b *SessionBroadcaster) SendToUser(userID string, msgID uint16, payload interface{}) (int, error) {
	data, err := network.Encode(payload)
	if err != nil {
		return 0, err
	}
	return b.sendUser(userID, msgID, data), nil
}

func (b *SessionBroadcaster) sendUser(userID string, msgID uint16, data []byte) int {
	delivered := 0
	for _, s := range b.sessionManager.GetByUserID(userID) {
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Debugw("push to user failed", "user_id", userID, "session", s.GetID(), "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
