package ipc

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

var ErrAlreadyRunning = errors.New("another instance is already running")

// instanceLock is an flock'd pid file next to the socket. Only one daemon
// may own the socket path at a time.
type instanceLock struct {
	path string
	file *os.File
}

// removeStale deletes a pid file whose owner is gone or whose content is
// unreadable, so the lock can be taken again after a crash.
func (l *instanceLock) removeStale() {
	content, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}

	reason := ""
	pid := 0
	switch {
	case err != nil:
		reason = "unreadable"
	default:
		pid, err = strconv.Atoi(strings.TrimSpace(string(content)))
		switch {
		case err != nil:
			reason = "invalid pid"
		case syscall.Kill(pid, 0) != nil:
			reason = "owner exited"
		}
	}
	if reason == "" {
		logger().Info().Int("pid", pid).Msg("Lock file owned by a running process")
		return
	}
	logger().Warn().Str("lock_file", l.path).Str("reason", reason).Msg("Removing stale lock file")
	os.Remove(l.path)
}

func (l *instanceLock) acquire() error {
	l.removeStale()

	// 不能带 O_TRUNC，否则会清掉持锁进程写入的 pid
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return ErrAlreadyRunning
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if err = file.Truncate(0); err == nil {
		_, err = fmt.Fprintf(file, "%d\n", os.Getpid())
	}
	if err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write pid: %w", err)
	}

	l.file = file
	logger().Info().Str("lock_file", l.path).Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

func (l *instanceLock) release() {
	if l.file == nil {
		return
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	os.Remove(l.path)
	l.file = nil
}
