package ipc

import (
	"bufio"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

func dial(t *testing.T, path string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn, bufio.NewReader(conn)
}

func waitClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, s.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServerBroadcast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyrics.sock")
	s := NewServer(path)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Close()

	s.Broadcast([]byte(`{"type":"status","text":"searching"}`))

	conn, r := dial(t, path)
	defer conn.Close()

	// 新连接先收到最近一条消息
	line, err := r.ReadString('\n')
	if err != nil || line != "{\"type\":\"status\",\"text\":\"searching\"}\n" {
		t.Fatalf("unexpected replay %q, %v", line, err)
	}

	s.Broadcast([]byte(`{"type":"lyric","text":"hello","progress":0.5}`))
	line, err = r.ReadString('\n')
	if err != nil || line != "{\"type\":\"lyric\",\"text\":\"hello\",\"progress\":0.5}\n" {
		t.Fatalf("unexpected broadcast %q, %v", line, err)
	}

	conn.Close()
	waitClients(t, s, 0)
}

func TestServerReplaysEachType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyrics.sock")
	s := NewServer(path)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Close()

	s.Broadcast([]byte(`{"type":"lyric","text":"old","progress":0.1}`))
	s.Broadcast([]byte(`{"type":"lyric","text":"hello","progress":0.5}`))
	s.Broadcast([]byte(`{"type":"settings","fontSize":32}`))
	s.Broadcast([]byte(`{"type":"status","text":"♪ Artist - Title ♪"}`))

	conn, r := dial(t, path)
	defer conn.Close()

	want := []string{
		`{"type":"settings","fontSize":32}`,
		`{"type":"status","text":"♪ Artist - Title ♪"}`,
		`{"type":"lyric","text":"hello","progress":0.5}`,
	}
	for i, w := range want {
		line, err := r.ReadString('\n')
		if err != nil || line != w+"\n" {
			t.Fatalf("replay %d: got %q, %v, want %s", i, line, err, w)
		}
	}
}

func TestServerSingleInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyrics.sock")
	first := NewServer(path)
	if err := first.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Close()

	second := NewServer(path)
	if err := second.Start(); !errors.Is(err, ErrAlreadyRunning) {
		second.Close()
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	conn, _ := dial(t, path)
	defer conn.Close()
	waitClients(t, first, 1)
}

func TestStaleLockRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lyrics.sock")
	// 不存在的进程留下的锁文件
	if err := os.WriteFile(path+".lock", []byte("not-a-pid\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewServer(path)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	content, err := os.ReadFile(path + ".lock")
	if err != nil || strings.TrimSpace(string(content)) != strconv.Itoa(os.Getpid()) {
		t.Errorf("lock file should hold our pid, got %q, %v", content, err)
	}

	s.Close()
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed on Close, got %v", err)
	}
}
