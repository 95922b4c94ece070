package term

import (
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codefionn/workspaced/internal/apperr"
)

func skipWithoutPTY(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pty sessions are unix-only")
	}
}

func TestSessionEchoesOutput(t *testing.T) {
	skipWithoutPTY(t)

	m := NewManager("/bin/sh")
	defer m.Shutdown()

	s, err := m.Create(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 1, m.Count())

	_, err = s.Write([]byte("echo terminal-check\n"))
	require.NoError(t, err)

	deadline := time.Now().Add(5 * time.Second)
	var out strings.Builder
	buf := make([]byte, 4096)
	for time.Now().Before(deadline) {
		n, err := s.Read(buf)
		if n > 0 {
			out.WriteString(string(buf[:n]))
		}
		if err != nil {
			break
		}
		if strings.Count(out.String(), "terminal-check") >= 1 &&
			!strings.HasSuffix(strings.TrimSpace(out.String()), "echo terminal-check") {
			break
		}
	}
	require.Contains(t, out.String(), "terminal-check")
}

func TestSessionExitTearsDown(t *testing.T) {
	skipWithoutPTY(t)

	m := NewManager("/bin/sh")
	defer m.Shutdown()

	s, err := m.Create(t.TempDir())
	require.NoError(t, err)

	_, err = s.Write([]byte("exit 7\n"))
	require.NoError(t, err)
	require.Equal(t, 7, s.Wait())

	m.Remove(s.ID)
	require.Zero(t, m.Count())
}

func TestSessionResize(t *testing.T) {
	skipWithoutPTY(t)

	m := NewManager("/bin/sh")
	defer m.Shutdown()

	s, err := m.Create(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Resize(120, 40))
}

func TestCreateRejectsMissingDirectory(t *testing.T) {
	skipWithoutPTY(t)

	m := NewManager("/bin/sh")
	_, err := m.Create("/does/not/exist")
	require.Error(t, err)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCloseIsIdempotent(t *testing.T) {
	skipWithoutPTY(t)

	m := NewManager("/bin/sh")
	s, err := m.Create(t.TempDir())
	require.NoError(t, err)

	s.Close()
	s.Close()
	m.Remove(s.ID)
}
