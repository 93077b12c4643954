package overlay

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestSocketIOLast(t *testing.T) {
	s := NewSocketIO("127.0.0.1:0")
	defer s.Close()

	status, _ := newMessage(EventStatus, StatusMessage{Type: EventStatus, Text: "Searching"})
	s.Publish(status)
	if v, ok := s.Last(EventStatus); !ok || v.(StatusMessage).Text != "Searching" {
		t.Fatalf("status not recorded: %v", v)
	}

	lyric, _ := newMessage(EventLyric, LyricMessage{Type: EventLyric, Text: "la", Progress: 0.1})
	s.Publish(lyric)
	if _, ok := s.Last(EventStatus); ok {
		t.Error("a lyric should replace the pending status")
	}
	if v, ok := s.Last(EventLyric); !ok || v.(LyricMessage).Text != "la" {
		t.Errorf("lyric not recorded: %v", v)
	}
}

func TestSocketIOHandshake(t *testing.T) {
	s := NewSocketIO("127.0.0.1:0")
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Close()

	resp, err := http.Get("http://" + s.Addr() + "/socket.io/?EIO=4&transport=polling")
	if err != nil {
		t.Fatalf("handshake request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "sid") {
		t.Errorf("handshake should carry a session id: %s", body)
	}
}
