// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiscope/internal/config"
	"piiscope/internal/core"
)

type recorder struct {
	mu      sync.Mutex
	changed []string
	removed []string
}

func (r *recorder) Changed(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, path)
}

func (r *recorder) Removed(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, path)
}

func (r *recorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changed...), append([]string(nil), r.removed...)
}

func startWatcher(t *testing.T, dir string, h Handler, opts ...Option) {
	t.Helper()
	opts = append([]Option{WithDebounce(50 * time.Millisecond)}, opts...)
	w := New([]string{dir}, h, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec,
		WithDebounce(200*time.Millisecond),
		WithFilter(func(p string) bool { return strings.HasSuffix(p, ".txt") }))

	path := filepath.Join(dir, "note.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", i+1)), 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.bin"), []byte("x"), 0o600))

	require.Eventually(t, func() bool {
		changed, _ := rec.snapshot()
		return len(changed) == 1
	}, 3*time.Second, 20*time.Millisecond)

	time.Sleep(400 * time.Millisecond)
	changed, _ := rec.snapshot()
	assert.Equal(t, []string{path}, changed)
}

func TestWatcher_Remove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	rec := &recorder{}
	startWatcher(t, dir, rec)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		_, removed := rec.snapshot()
		return len(removed) == 1 && removed[0] == path
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_NewDirectory(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec)

	sub := filepath.Join(dir, "incoming")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(sub, "form.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	require.Eventually(t, func() bool {
		changed, _ := rec.snapshot()
		for _, c := range changed {
			if c == path {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_StartMissingRoot(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "missing")}, &recorder{})
	assert.Error(t, w.Start(context.Background()))
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	w := New(nil, &recorder{}, WithFilter(func(string) bool { return true }))
	assert.False(t, w.accepts("/tmp/.note.txt.swp"))
	assert.True(t, w.accepts("/tmp/note.txt"))
}

type fakeScanner struct {
	mu          sync.Mutex
	invalidated []string
	fail        bool
}

func (f *fakeScanner) Supports(path string) bool { return strings.HasSuffix(path, ".txt") }

func (f *fakeScanner) Invalidate(ctx context.Context, documentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, documentID)
}

func (f *fakeScanner) ScanFile(ctx context.Context, path string) (*core.Result, error) {
	if f.fail {
		return nil, errors.New("unreadable")
	}
	return &core.Result{DocumentID: core.DocumentID(path), Path: path}, nil
}

func TestRescanner(t *testing.T) {
	fs := &fakeScanner{}
	var reported []string
	r := NewRescanner(context.Background(), fs, func(path string, res *core.Result, err error) {
		require.NoError(t, err)
		reported = append(reported, res.Path)
	}, nil)

	assert.True(t, r.Filter("a.txt"))
	assert.False(t, r.Filter("a.zip"))

	r.Changed("/data/a.txt")
	r.Removed("/data/b.txt")
	assert.Equal(t, []string{"/data/a.txt"}, reported)
	assert.Equal(t, []string{"/data/a.txt", "/data/b.txt"}, fs.invalidated)

	fs.fail = true
	var gotErr error
	r = NewRescanner(context.Background(), fs, func(_ string, _ *core.Result, err error) { gotErr = err }, nil)
	r.Changed("/data/a.txt")
	assert.EqualError(t, gotErr, "unreadable")
}

func TestRescanner_WithEngine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("SSN 536-90-4399"), 0o600))

	e, err := core.NewEngine(context.Background(), config.Default(), core.Deps{})
	require.NoError(t, err)
	defer e.Close()

	first, err := e.ScanFile(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, first.SpanCount())

	require.NoError(t, os.WriteFile(path, []byte("nothing to see"), 0o600))

	var got *core.Result
	NewRescanner(context.Background(), e, func(_ string, res *core.Result, err error) {
		require.NoError(t, err)
		got = res
	}, nil).Changed(path)

	require.NotNil(t, got)
	assert.Equal(t, 0, got.SpanCount())
	assert.False(t, got.Pages[0].FromCache)
}
