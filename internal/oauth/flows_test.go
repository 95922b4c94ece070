package oauth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codefionn/workspaced/internal/apperr"
)

func TestFlowConsumeIsSingleUse(t *testing.T) {
	r, err := NewFlowRegistry(filepath.Join(t.TempDir(), "flows.json"))
	require.NoError(t, err)

	require.NoError(t, r.Add(&PendingFlow{State: "s1", Verifier: "v1", CreatedAt: time.Now()}))

	flow, err := r.Consume("s1")
	require.NoError(t, err)
	require.Equal(t, "v1", flow.Verifier)

	_, err = r.Consume("s1")
	require.Error(t, err)
	require.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestFlowExpiryFailsClosedAndConsumes(t *testing.T) {
	r, err := NewFlowRegistry(filepath.Join(t.TempDir(), "flows.json"))
	require.NoError(t, err)

	require.NoError(t, r.Add(&PendingFlow{
		State:     "old",
		Verifier:  "v",
		CreatedAt: time.Now().Add(-11 * time.Minute),
	}))

	_, err = r.Consume("old")
	require.Error(t, err)
	require.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	// Expired consumption still burns the state token.
	require.Zero(t, r.Len())
}

func TestFlowPersistenceAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.json")

	r, err := NewFlowRegistry(path)
	require.NoError(t, err)
	require.NoError(t, r.Add(&PendingFlow{State: "live", Verifier: "v", CreatedAt: time.Now()}))
	require.NoError(t, r.Add(&PendingFlow{
		State:     "stale",
		Verifier:  "v",
		CreatedAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, r.Shutdown())

	reloaded, err := NewFlowRegistry(path)
	require.NoError(t, err)
	// The stale flow is dropped at load time.
	require.Equal(t, 1, reloaded.Len())

	flow, err := reloaded.Consume("live")
	require.NoError(t, err)
	require.Equal(t, "v", flow.Verifier)
}
