package command

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/adeilh/marketcache/api"
	"github.com/adeilh/marketcache/cache"
	"github.com/adeilh/marketcache/httpx"
	"github.com/adeilh/marketcache/storage/memory"
)

// sharedBackend points every command at one in-memory partition served over
// HTTP, so state survives between command runs.
func sharedBackend(t *testing.T) *memory.Store {
	t.Helper()
	backing := memory.NewStore()
	server := httpx.NewServer()
	server.RegisterRoutes(api.New(backing, cache.New(backing)).Register)
	ts := httpx.NewTestServer(server.Handler())
	t.Cleanup(ts.Close)

	t.Chdir(t.TempDir())
	t.Setenv("MARKETCACHE_STORAGE_BACKEND", "remote")
	t.Setenv("MARKETCACHE_STORAGE_REMOTE_URL", ts.BaseURL())
	t.Setenv("MARKETCACHE_LOG_LEVEL", "error")
	return backing
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := New(&out, &errOut).Run(context.Background(), append([]string{"marketcache"}, args...))
	return out.String(), err
}

func TestSaveGetKeysSweep(t *testing.T) {
	backing := sharedBackend(t)

	out, err := run(t, "save", "q_shoes_p1", `{"items":[1,2,3]}`)
	require.NoError(t, err)
	assert.Contains(t, out, "saved q_shoes_p1")
	assert.Contains(t, out, "from now")

	out, err = run(t, "get", "q_shoes_p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[1,2,3]}`, strings.TrimSpace(out))

	require.NoError(t, backing.SetItem(context.Background(), "search_broken", "{"))
	require.NoError(t, backing.SetItem(context.Background(), "theme", "dark"))

	out, err = run(t, "keys")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	assert.True(t, strings.HasPrefix(lines[1], "broken"))
	assert.Contains(t, lines[1], "unreadable")
	assert.True(t, strings.HasPrefix(lines[2], "q_shoes_p1"))

	out, err = run(t, "sweep")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 entry\n", out)

	keys, err := backing.Keys(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"search_q_shoes_p1", "theme"}, keys)
}

func TestGetMissing(t *testing.T) {
	sharedBackend(t)

	_, err := run(t, "get", "nothing")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestArgumentValidation(t *testing.T) {
	sharedBackend(t)

	_, err := run(t, "get")
	assert.Error(t, err)

	_, err = run(t, "save", "only-key")
	assert.Error(t, err)

	_, err = run(t, "save", "k", "{not json")
	assert.Error(t, err)
}

func TestSaveNullStoresNothing(t *testing.T) {
	backing := sharedBackend(t)

	_, err := run(t, "save", "k", "null")
	assert.Error(t, err)

	n, err := backing.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHashToken(t *testing.T) {
	out, err := run(t, "hash-token", "--cost", "4", "s3cret")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = run(t, "hash-token")
	assert.Error(t, err)
}

func TestBadConfigFails(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MARKETCACHE_STORAGE_BACKEND", "dynamo")

	_, err := run(t, "sweep")
	assert.Error(t, err)
}
