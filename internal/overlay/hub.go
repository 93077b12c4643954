// Package overlay fans the karaoke state out to every overlay surface: the
// unix socket clients, the i3blocks block and browser overlays over socket.io.
package overlay

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"molten-lyrics/internal/i3block"
	"molten-lyrics/internal/ipc"
	"molten-lyrics/internal/karaoke"
	"molten-lyrics/internal/settings"
)

const defaultQueueSize = 64

func logger() *zerolog.Logger {
	l := log.With().Str("component", "overlay").Logger()
	return &l
}

// Sink delivers overlay messages to one surface.
type Sink interface {
	Publish(msg Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message)

func (f SinkFunc) Publish(msg Message) { f(msg) }

// IPC publishes every message as a JSON line to the socket clients.
func IPC(server *ipc.Server) Sink {
	return SinkFunc(func(msg Message) {
		server.Broadcast(msg.Data)
	})
}

// I3Block mirrors lyric and status text into the i3blocks block.
func I3Block(c *i3block.Controller) Sink {
	return SinkFunc(func(msg Message) {
		text, ok := msg.Text()
		if !ok {
			return
		}
		if err := c.Show(text); err != nil {
			logger().Warn().Err(err).Msg("Failed to update i3block")
		}
	})
}

// Hub implements karaoke.Surface. Messages are queued and delivered by Run,
// so a slow surface never stalls the frame loop; when the queue is full the
// message is dropped.
type Hub struct {
	sinks []Sink
	queue chan Message
}

var _ karaoke.Surface = (*Hub)(nil)

func NewHub(sinks ...Sink) *Hub {
	return &Hub{
		sinks: sinks,
		queue: make(chan Message, defaultQueueSize),
	}
}

// Run delivers queued messages until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.queue:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg Message) {
	for _, sink := range h.sinks {
		sink.Publish(msg)
	}
}

// publish reports whether msg was queued.
func (h *Hub) publish(event string, value any) bool {
	msg, err := newMessage(event, value)
	if err != nil {
		logger().Error().Err(err).Str("event", event).Msg("Failed to encode overlay message")
		return false
	}
	select {
	case h.queue <- msg:
		return true
	default:
		logger().Debug().Str("event", event).Msg("Overlay queue full, message dropped")
		return false
	}
}

// Send forwards a karaoke snapshot. A full queue rejects it.
func (h *Hub) Send(s karaoke.Snapshot) bool {
	return h.publish(EventLyric, LyricMessage{Type: EventLyric, Text: s.Text, Progress: s.Progress})
}

// Status shows a status line such as "Searching for lyrics".
func (h *Hub) Status(text string) {
	logger().Info().Str("status", text).Msg("Broadcasting status")
	h.publish(EventStatus, StatusMessage{Type: EventStatus, Text: text})
}

func (h *Hub) PushSettings(d settings.Display) {
	h.publish(EventSettings, SettingsMessage{Type: EventSettings, Display: d})
}

func (h *Hub) SetVisible(visible bool) {
	h.publish(EventVisible, VisibleMessage{Type: EventVisible, Visible: visible})
}
