package workspace

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codefionn/workspaced/internal/apperr"
)

func testWorkspace(id, branch string) *Workspace {
	return &Workspace{
		ID:           id,
		Name:         branch,
		BranchName:   branch,
		BaseBranch:   "main",
		RepoRootPath: "/repo",
		WorktreePath: "/trees/" + id,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestStoreCreateAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Create(testWorkspace("ws1", "fix-login")))

	reloaded, err := NewStore(path)
	require.NoError(t, err)
	ws, err := reloaded.Get("ws1")
	require.NoError(t, err)
	require.Equal(t, "fix-login", ws.BranchName)
}

func TestStoreGetUnknown(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	_, err = store.Get("missing")
	require.Error(t, err)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestStoreRejectsDuplicateBranch(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	require.NoError(t, store.Create(testWorkspace("ws1", "fix-login")))
	err = store.Create(testWorkspace("ws2", "fix-login"))
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestStoreConcurrentCreatesLoseNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	store, err := NewStore(path)
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a'+i)) + "-ws"
			_ = store.Create(testWorkspace(id, "branch-"+id))
		}(i)
	}
	wg.Wait()

	require.Len(t, store.List(), n)

	reloaded, err := NewStore(path)
	require.NoError(t, err)
	require.Len(t, reloaded.List(), n)
}

func TestStoreListOrderedByCreation(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, err)

	older := testWorkspace("older", "b1")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testWorkspace("newer", "b2")

	require.NoError(t, store.Create(newer))
	require.NoError(t, store.Create(older))

	list := store.List()
	require.Equal(t, "older", list[0].ID)
	require.Equal(t, "newer", list[1].ID)
}
