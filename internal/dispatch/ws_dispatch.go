package dispatch

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/food-rescue/internal/models"
)

// WSSession represents a connected carrier session
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(task models.TaskNotice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(task)
}

// WSRegistry holds live carrier sessions
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

func (r *WSRegistry) Add(carrierID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[carrierID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(carrierID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, carrierID)
}

func (r *WSRegistry) NotifyTask(carrierID string, task models.TaskNotice) error {
	r.mu.RLock()
	s, ok := r.sessions[carrierID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(task); err != nil {
		log.Printf("ws send error: %v", err)
		return err
	}
	return nil
}

var ErrNoSession = &NoSessionError{}

type NoSessionError struct{}

func (n *NoSessionError) Error() string { return "no ws session" }
