// Package term spawns and multiplexes interactive shell sessions. One
// session owns one shell subprocess on a pseudo-terminal; output bytes
// are forwarded as they arrive and the process dies with the session.
package term

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/codefionn/workspaced/internal/apperr"
	"github.com/codefionn/workspaced/internal/logger"
)

// Fixed terminal capability profile for new sessions.
const (
	defaultCols = 80
	defaultRows = 24
	defaultTerm = "xterm-256color"
)

// Session is one interactive shell on a pseudo-terminal.
type Session struct {
	ID        string
	Cwd       string
	CreatedAt time.Time

	cmd  *exec.Cmd
	ptmx *os.File

	closeOnce sync.Once
}

// Read forwards subprocess output bytes as they arrive.
func (s *Session) Read(p []byte) (int, error) {
	return s.ptmx.Read(p)
}

// Write feeds raw keystroke input to the subprocess.
func (s *Session) Write(p []byte) (int, error) {
	return s.ptmx.Write(p)
}

// Resize adjusts the terminal size.
func (s *Session) Resize(cols, rows uint16) error {
	return pty.Setsize(s.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

// Wait blocks until the shell exits and returns its exit code.
func (s *Session) Wait() int {
	err := s.cmd.Wait()
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

// Close kills the subprocess and releases the terminal. Safe to call
// more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.ptmx.Close()
	})
}

// Manager is the session registry. Sessions are removed when either
// side closes; there is no reconnect or resume.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	shell    string
	counter  int
}

// NewManager creates a Manager spawning the given shell, or $SHELL
// (falling back to /bin/sh) when empty.
func NewManager(shell string) *Manager {
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Manager{
		sessions: make(map[string]*Session),
		shell:    shell,
	}
}

// Create spawns an interactive shell rooted at cwd on a new
// pseudo-terminal with the fixed capability profile.
func (m *Manager) Create(cwd string) (*Session, error) {
	if cwd != "" {
		if _, err := os.Stat(cwd); err != nil {
			return nil, apperr.Newf(apperr.KindNotFound, "working directory does not exist: %s", cwd)
		}
	}

	cmd := exec.Command(m.shell)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "TERM="+defaultTerm)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: defaultCols, Rows: defaultRows})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, "failed to spawn shell", err)
	}

	m.mu.Lock()
	m.counter++
	session := &Session{
		ID:        fmt.Sprintf("pty-%d-%d", time.Now().Unix(), m.counter),
		Cwd:       cwd,
		CreatedAt: time.Now(),
		cmd:       cmd,
		ptmx:      ptmx,
	}
	m.sessions[session.ID] = session
	m.mu.Unlock()

	logger.Info("Terminal session %s started (%s in %s)", session.ID, m.shell, cwd)
	return session, nil
}

// Remove closes the session and deletes it from the registry.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		session.Close()
		logger.Info("Terminal session %s removed", id)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown kills every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
