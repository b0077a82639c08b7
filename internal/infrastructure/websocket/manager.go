package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"freshkart/internal/domain/entity"
	"freshkart/internal/infrastructure/metrics"
	"freshkart/pkg/logger"
)

// Manager tracks the live sessions of every user.
type Manager struct {
	service  ChatService
	sessions map[string]map[*Session]struct{}
	mutex    sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewManager(service ChatService) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		service:  service,
		sessions: make(map[string]map[*Session]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// NewUpgrader accepts connections from allowedOrigins. An empty list or
// "*" accepts any origin.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 || allowed["*"] {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		},
	}
}

// Serve runs a session on conn until either side closes it.
func (m *Manager) Serve(conn *websocket.Conn, identity *entity.Identity) {
	session := newSession(m.ctx, conn, identity, m.service)
	m.register(session)
	defer m.unregister(session)

	go session.WritePump()
	session.ReadPump()
}

func (m *Manager) register(s *Session) {
	m.mutex.Lock()
	byUser, ok := m.sessions[s.UserID]
	if !ok {
		byUser = make(map[*Session]struct{})
		m.sessions[s.UserID] = byUser
	}
	byUser[s] = struct{}{}
	m.mutex.Unlock()

	metrics.WebSocketConnections.Inc()
	logger.Info("Client registered: %s (session %s)", s.UserID, s.ID)
}

func (m *Manager) unregister(s *Session) {
	s.Close(websocket.CloseNormalClosure, "")

	m.mutex.Lock()
	byUser := m.sessions[s.UserID]
	_, ok := byUser[s]
	if ok {
		delete(byUser, s)
		if len(byUser) == 0 {
			delete(m.sessions, s.UserID)
		}
	}
	m.mutex.Unlock()

	if ok {
		metrics.WebSocketConnections.Dec()
		logger.Info("Client unregistered: %s (session %s)", s.UserID, s.ID)
	}
}

func (m *Manager) userSessions(userID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]*Session, 0, len(m.sessions[userID]))
	for s := range m.sessions[userID] {
		out = append(out, s)
	}
	return out
}

// SessionCount returns the number of live sessions of userID.
func (m *Manager) SessionCount(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions[userID])
}

// DisconnectUser closes every session of userID, cancelling their
// subscriptions. It returns how many sessions were open.
func (m *Manager) DisconnectUser(userID string) int {
	sessions := m.userSessions(userID)
	for _, s := range sessions {
		s.Close(websocket.ClosePolicyViolation, "signed out")
	}
	return len(sessions)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.cancel()

	m.mutex.RLock()
	var all []*Session
	for _, byUser := range m.sessions {
		for s := range byUser {
			all = append(all, s)
		}
	}
	m.mutex.RUnlock()

	for _, s := range all {
		s.Close(websocket.CloseGoingAway, "server shutting down")
	}
}
