// Package i3block mirrors the current lyric into a file read by an i3blocks
// block and signals i3blocks to refresh it.
package i3block

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"molten-lyrics/pkg/fileutil"
)

const (
	DefaultFile = "/tmp/lyrics"
	// DefaultSignal 对应 i3blocks 配置中的 signal=21（SIGRTMIN+21）
	DefaultSignal = 34 + 21

	refreshInterval = 10 * time.Second
)

func logger() *zerolog.Logger {
	l := log.With().Str("component", "i3block").Logger()
	return &l
}

// Controller manages i3block process monitoring and signal sending
type Controller struct {
	file   string
	signal syscall.Signal

	pid      int
	pidMutex sync.RWMutex

	lastText string
	textMu   sync.Mutex

	findPID    func() (int, error)
	sendSignal func(pid int, sig syscall.Signal) error
}

// NewController writes to file and sends signal to i3blocks on change.
func NewController(file string, signal int) *Controller {
	if file == "" {
		file = DefaultFile
	}
	if signal <= 0 {
		signal = DefaultSignal
	}
	return &Controller{
		file:       file,
		signal:     syscall.Signal(signal),
		pid:        -1,
		findPID:    findI3blocksPID,
		sendSignal: signalProcess,
	}
}

// Run refreshes the i3blocks PID every 10 seconds until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	if err := c.refreshPID(); err != nil {
		logger().Warn().Err(err).Msg("i3blocks not found yet")
	}

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	logger().Info().Str("file", c.file).Int("signal", int(c.signal)).Msg("i3block controller started")
	for {
		select {
		case <-ticker.C:
			if err := c.refreshPID(); err != nil {
				logger().Debug().Err(err).Msg("Failed to refresh i3block PID")
			}
		case <-ctx.Done():
			logger().Info().Msg("i3block controller stopped")
			return
		}
	}
}

// Show writes text to the block file and signals i3blocks. Repeated text is
// ignored, a status bar cannot show fill progress anyway.
func (c *Controller) Show(text string) error {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\n", " / ")

	c.textMu.Lock()
	defer c.textMu.Unlock()
	if text == c.lastText {
		return nil
	}
	c.lastText = text

	if err := fileutil.WriteFileOverwrite(c.file, []byte(text+"\n"), 0644); err != nil {
		return err
	}

	pid := c.GetPID()
	if pid <= 0 {
		return nil
	}
	if err := c.sendSignal(pid, c.signal); err != nil {
		return fmt.Errorf("failed to send signal %d to process %d: %w", c.signal, pid, err)
	}
	return nil
}

// refreshPID updates the stored PID of i3block process
func (c *Controller) refreshPID() error {
	pid, err := c.findPID()
	if err != nil {
		pid = -1
	}

	c.pidMutex.Lock()
	oldPID := c.pid
	c.pid = pid
	c.pidMutex.Unlock()

	if oldPID != pid {
		logger().Info().Int("old_pid", oldPID).Int("pid", pid).Msg("i3block PID updated")
	}
	return err
}

// GetPID returns the current stored PID
func (c *Controller) GetPID() int {
	c.pidMutex.RLock()
	defer c.pidMutex.RUnlock()
	return c.pid
}

func findI3blocksPID() (int, error) {
	// Try to find i3block process using pgrep
	output, err := exec.Command("pgrep", "-x", "i3blocks").Output()
	if err == nil {
		if pid, ok := firstPID(string(output)); ok {
			return pid, nil
		}
	}
	return findI3blocksPIDAlternative()
}

// findI3blocksPIDAlternative tries alternative method to find i3block PID
func findI3blocksPIDAlternative() (int, error) {
	output, err := exec.Command("ps", "aux").Output()
	if err != nil {
		return -1, fmt.Errorf("failed to run ps command: %w", err)
	}
	if pid, ok := pidFromPS(string(output)); ok {
		return pid, nil
	}
	return -1, fmt.Errorf("i3block process not found")
}

func firstPID(output string) (int, bool) {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if pid, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			return pid, true
		}
	}
	return 0, false
}

func pidFromPS(output string) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "i3blocks") || strings.Contains(line, "grep") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if pid, err := strconv.Atoi(fields[1]); err == nil {
			return pid, true
		}
	}
	return 0, false
}

func signalProcess(pid int, sig syscall.Signal) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return process.Signal(sig)
}
