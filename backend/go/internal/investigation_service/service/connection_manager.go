package service

import (
	"sync"

	"github.com/gorilla/websocket"
)

// ConnectionManager 管理按会话区分的 WebSocket 连接。
// 结果推送是尽力而为：会话掉线不影响任务本身。
type ConnectionManager struct {
	connections map[string]*websocket.Conn
	mu          sync.Mutex
}

// NewConnectionManager creates a new ConnectionManager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
	}
}

// Add registers a new connection for a session, replacing any previous one.
func (m *ConnectionManager) Add(sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.connections[sessionID]; ok {
		prev.Close()
	}
	m.connections[sessionID] = conn
}

// Remove closes and forgets the session's connection.
func (m *ConnectionManager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn, ok := m.connections[sessionID]; ok {
		conn.Close()
		delete(m.connections, sessionID)
	}
}

// SendMessage 向会话推送一条消息；连接不存在或写失败时返回 false。
// 写操作在锁内进行，gorilla/websocket 不允许并发写同一连接。
func (m *ConnectionManager) SendMessage(sessionID string, message []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.connections[sessionID]
	if !ok {
		return false
	}
	return conn.WriteMessage(websocket.TextMessage, message) == nil
}
