package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/unroll/internal/config"
	tt "github.com/gnoswap-labs/unroll/internal/types"
)

func TestWatcher_RerunsOnChange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeDesign(t, dir, "watched.yaml", `body: [{expr: "a()"}]`)
	writeDesign(t, dir, "ignored.txt", "")

	reports := make(chan *tt.Report, 4)
	w, err := NewWatcher(NewEngine(config.Default(), nil), nil, func(r *tt.Report) {
		select {
		case reports <- r:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(`body: [{expr: "a()"}, {expr: "b()"}]`), 0o644))

	select {
	case r := <-reports:
		assert.Equal(t, path, r.Filename)
		assert.Len(t, r.Visits, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("no report after the design changed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	reports := make(chan *tt.Report, 16)
	w, err := NewWatcher(NewEngine(config.Default(), nil), nil, func(r *tt.Report) {
		select {
		case reports <- r:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Add(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	path := filepath.Join(sub, "late.yaml")

	// keep rewriting until the new directory is watched
	n := 0
	require.Eventually(t, func() bool {
		n++
		body := fmt.Sprintf(`body: [{expr: "a(%d)"}]`, n)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return false
		}
		select {
		case r := <-reports:
			return r.Filename == path
		case <-time.After(300 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)
}

func TestWatcher_Relevant(t *testing.T) {
	t.Parallel()
	w := &Watcher{
		files: map[string]bool{"/a/one.yaml": true},
		roots: []string{"/b"},
	}
	assert.True(t, w.relevant("/a/one.yaml"))
	assert.False(t, w.relevant("/a/two.yaml"), "only the named file of a watched directory")
	assert.True(t, w.relevant("/b/c/d.yml"))
	assert.False(t, w.relevant("/b/c/d.txt"))
	assert.False(t, w.relevant("/elsewhere/x.yaml"))
}

func TestWatcher_AddMissing(t *testing.T) {
	t.Parallel()
	w, err := NewWatcher(NewEngine(config.Default(), nil), nil, func(*tt.Report) {})
	require.NoError(t, err)
	defer w.Close()
	assert.Error(t, w.Add(filepath.Join(t.TempDir(), "missing")))
}
