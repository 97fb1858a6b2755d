package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCreatesBaseDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "artifacts")
	store, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	require.NotNil(t, store)
	require.DirExists(t, dir)
}

func TestNewRequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
}

func TestPutObjectWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(Config{BaseDir: dir})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "runs/run-1.json", "application/json", strings.NewReader(`{"ok":true}`))
	require.NoError(t, err)
	require.Equal(t, "file://"+filepath.Join(dir, "runs", "run-1.json"), uri)

	data, err := os.ReadFile(filepath.Join(dir, "runs", "run-1.json"))
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(data))
}

func TestPutObjectRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "../escape.json", "", strings.NewReader("x"))
	require.Error(t, err)
}
