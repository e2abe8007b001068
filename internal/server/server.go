package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/cardtable/jokerdraw/internal/room"
)

// Server accepts WebSocket clients and bridges them to the room manager.
// It is the room.Sender: the manager addresses events to connection IDs
// and the server owns the ID → connection mapping.
type Server struct {
	addr       string
	upgrader   websocket.Upgrader
	conns      map[string]*Connection
	register   chan *Connection
	unregister chan *Connection
	logger     *log.Logger
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	manager    *room.Manager
	httpServer *http.Server
}

// NewServer creates a WebSocket server listening on addr.
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Development default; front it with an origin-checking
				// proxy in production.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns:      make(map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		logger:     logger.WithPrefix("server"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// SetManager wires in the room manager. Must be called before Start.
func (s *Server) SetManager(manager *room.Manager) {
	s.manager = manager
}

// Start runs the server until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.run()
		return nil
	})
	g.Go(func() error {
		return s.manager.Run(ctx)
	})
	g.Go(func() error {
		s.logger.Info("starting WebSocket server", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.Stop()
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop shuts the server down, closing every live connection.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
	return nil
}

// run owns the connection registry.
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.conns[conn.ID()] = conn
			total := len(s.conns)
			s.mu.Unlock()
			s.logger.Info("client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, known := s.conns[conn.ID()]
			if known {
				delete(s.conns, conn.ID())
			}
			total := len(s.conns)
			s.mu.Unlock()

			if known {
				// A vanished client frees its seat; there is no reconnect,
				// so the seat must not stay occupied.
				username, code := conn.Identity()
				if username != "" && code != "" {
					s.logger.Info("cleaning up disconnected player", "player", username, "room", code)
					if err := s.manager.LeaveRoom(code, username); err != nil {
						s.logger.Debug("disconnect cleanup", "error", err)
					}
				}
				_ = conn.Close()
			}
			s.logger.Info("client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.manager)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth reports aggregate counts; it never mutates room state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, inProgress := s.manager.Counts()
	s.mu.RLock()
	connections := len(s.conns)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{
		"rooms":       total,
		"inProgress":  inProgress,
		"connections": connections,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

// Send delivers one event to one connection. Part of room.Sender.
func (s *Server) Send(connID string, event room.Event) error {
	s.mu.RLock()
	conn, ok := s.conns[connID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("connection not found: %s", connID)
	}

	msg, err := messageFromEvent(event)
	if err != nil {
		return err
	}
	return conn.SendMessage(msg)
}

// Broadcast delivers an event to every connection. Part of room.Sender.
func (s *Server) Broadcast(event room.Event) {
	msg, err := messageFromEvent(event)
	if err != nil {
		s.logger.Error("failed to encode broadcast", "type", event.Type, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, conn := range s.conns {
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Debug("broadcast delivery failed", "conn", conn.ID(), "error", err)
		}
	}
}
