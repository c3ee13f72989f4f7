// Package e2e runs the built binary inside a pseudo terminal so terminal
// dependent output (colour, progress bars) can be asserted on.
package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// StripANSI removes ANSI escape codes from a string
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// HasANSI reports whether s contains an ANSI escape code
func HasANSI(s string) bool {
	return ansiEscape.MatchString(s)
}

// SessionConfig contains configuration for a terminal session
type SessionConfig struct {
	Command string
	Args    []string
	WorkDir string
	Env     []string
	Rows    uint16
	Cols    uint16
	Timeout time.Duration
}

// Session is one command running on a pseudo terminal
type Session struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	cancel context.CancelFunc

	mu     sync.RWMutex
	output bytes.Buffer
	done   chan struct{}
}

// Start runs the configured command on a new pseudo terminal
func Start(config *SessionConfig) (*Session, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Rows == 0 {
		config.Rows = 24
	}
	if config.Cols == 0 {
		config.Cols = 120
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	cmd.Dir = config.WorkDir
	cmd.Env = append(os.Environ(), config.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: config.Rows, Cols: config.Cols})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start pty: %w", err)
	}

	s := &Session{cmd: cmd, ptmx: ptmx, cancel: cancel, done: make(chan struct{})}
	go s.capture()
	return s, nil
}

// capture copies terminal output until the pty closes
func (s *Session) capture() {
	defer close(s.done)
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.output.Write(buf[:n])
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Output returns everything written so far
func (s *Session) Output() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.output.String()
}

// CleanOutput returns output with ANSI escape codes removed
func (s *Session) CleanOutput() string {
	return StripANSI(s.Output())
}

// WaitForText waits for text to appear in the clean output
func (s *Session) WaitForText(text string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if strings.Contains(s.CleanOutput(), text) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for text: %s", text)
}

// Signal delivers sig to the process
func (s *Session) Signal(sig os.Signal) error {
	return s.cmd.Process.Signal(sig)
}

// Wait waits for the process to exit and for its output to drain
func (s *Session) Wait() error {
	err := s.cmd.Wait()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
	}
	s.ptmx.Close()
	s.cancel()
	return err
}
