// Package ipc serves overlay messages to local GUI clients over a unix
// socket, one JSON document per line.
package ipc

import (
	"encoding/json"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 100 * time.Millisecond

// replayOrder 新客户端先拿到样式，再拿到状态和当前歌词
var replayOrder = []string{"settings", "visible", "status", "lyric", ""}

func logger() *zerolog.Logger {
	l := log.With().Str("component", "ipc").Logger()
	return &l
}

type Server struct {
	socketPath string
	lock       instanceLock
	listener   net.Listener
	wg         sync.WaitGroup

	mu      sync.Mutex
	clients map[net.Conn]struct{}
	last    map[string][]byte // 按消息 type 保存最近一条
}

func NewServer(socketPath string) *Server {
	return &Server{
		socketPath: socketPath,
		lock:       instanceLock{path: socketPath + ".lock"},
		clients:    make(map[net.Conn]struct{}),
		last:       make(map[string][]byte),
	}
}

// Start takes the instance lock and listens. It fails with
// ErrAlreadyRunning when another daemon owns the socket.
func (s *Server) Start() error {
	if err := s.lock.acquire(); err != nil {
		return err
	}
	if err := os.RemoveAll(s.socketPath); err != nil {
		s.lock.release()
		return err
	}
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.lock.release()
		return err
	}
	s.listener = ln
	logger().Info().Str("socket_path", s.socketPath).Msg("IPC server listening")

	s.wg.Add(1)
	go s.accept()
	return nil
}

func (s *Server) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			logger().Error().Err(err).Msg("Failed to accept IPC connection")
			time.Sleep(100 * time.Millisecond)
			continue
		}
		go s.serve(conn)
	}
}

// serve registers conn, replays the latest message of each type and waits
// for the client to hang up. Clients never send anything meaningful.
func (s *Server) serve(conn net.Conn) {
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	for _, typ := range replayOrder {
		msg, ok := s.last[typ]
		if !ok {
			continue
		}
		if err := writeLine(conn, msg); err != nil {
			logger().Warn().Err(err).Str("type", typ).Msg("Failed to replay last message")
			break
		}
	}
	s.mu.Unlock()
	logger().Info().Msg("GUI client connected")

	buf := make([]byte, 64)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}

	s.drop(conn)
	logger().Info().Msg("GUI client disconnected")
}

func (s *Server) drop(conn net.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// Broadcast sends msg, a single JSON document, to every connected client
// and remembers it, per message type, for clients that connect later.
// Clients that cannot keep up are dropped.
func (s *Server) Broadcast(msg []byte) {
	typ := messageType(msg)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last[typ] = msg
	for conn := range s.clients {
		if err := writeLine(conn, msg); err != nil {
			logger().Warn().Err(err).Msg("Dropping slow IPC client")
			delete(s.clients, conn)
			conn.Close()
		}
	}
}

// messageType returns the "type" field of msg, or "" when it has none.
func messageType(msg []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return ""
	}
	for _, typ := range replayOrder {
		if typ == head.Type {
			return typ
		}
	}
	return ""
}

func writeLine(conn net.Conn, msg []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	line := make([]byte, 0, len(msg)+1)
	line = append(append(line, msg...), '\n')
	_, err := conn.Write(line)
	return err
}

func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close stops accepting, disconnects every client and releases the lock.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
		s.wg.Wait()
		os.Remove(s.socketPath)
	}

	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	s.mu.Unlock()

	s.lock.release()
}
