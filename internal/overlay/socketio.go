package overlay

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"
)

// SocketIO serves browser overlays. Each message is emitted as an event
// named after its type, and the latest value of every event is replayed to
// newly connected clients.
type SocketIO struct {
	io   *socket.Server
	addr string

	mu   sync.RWMutex
	last map[string]any

	srv *http.Server
	ln  net.Listener
}

func NewSocketIO(addr string) *SocketIO {
	opts := socket.DefaultServerOptions()
	opts.SetPingTimeout(20 * time.Second)
	opts.SetPingInterval(25 * time.Second)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &SocketIO{
		io:   socket.NewServer(nil, opts),
		addr: addr,
		last: make(map[string]any),
	}
	s.setupHandlers()
	return s
}

func (s *SocketIO) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		logger().Info().Str("id", clientID).Msg("Overlay client connected")

		s.replay(client)

		client.On("getState", func(args ...any) {
			s.replay(client)
		})
		client.On("disconnect", func(args ...any) {
			logger().Info().Str("id", clientID).Msg("Overlay client disconnected")
		})
	})
}

func (s *SocketIO) replay(client *socket.Socket) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// 设置先于歌词，客户端先拿到样式
	for _, event := range []string{EventSettings, EventVisible, EventStatus, EventLyric} {
		if v, ok := s.last[event]; ok {
			client.Emit(event, v)
		}
	}
}

// Publish implements Sink.
func (s *SocketIO) Publish(msg Message) {
	s.mu.Lock()
	s.last[msg.Event] = msg.Value
	if msg.Event == EventLyric {
		delete(s.last, EventStatus)
	}
	s.mu.Unlock()

	s.io.Emit(msg.Event, msg.Value)
}

// Last returns the latest value published for event.
func (s *SocketIO) Last(event string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.last[event]
	return v, ok
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *SocketIO) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Start listens on the configured address and serves in the background.
func (s *SocketIO) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", s)

	s.ln = ln
	s.srv = &http.Server{
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger().Error().Err(err).Msg("socket.io server error")
		}
	}()
	logger().Info().Str("addr", ln.Addr().String()).Msg("socket.io overlay listening")
	return nil
}

// Addr returns the bound address once started.
func (s *SocketIO) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Close closes the Socket.io server.
func (s *SocketIO) Close() error {
	s.io.Close(nil)
	if s.srv != nil {
		return s.srv.Close()
	}
	return nil
}
