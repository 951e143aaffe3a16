package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mechapengu/postpilot/model"
	"github.com/mechapengu/postpilot/service/pending/fs"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "pending_drafts.json")
	store := fs.New(location)

	draft := &model.Draft{
		ID:        "1001",
		Text:      "gm wagmi",
		ImagePath: "/tmp/a.png",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	assert.NoError(t, store.Put(ctx, draft))

	// reopening must observe the committed state
	reopened := fs.New(location)
	loaded, err := reopened.Get(ctx, "1001")
	assert.NoError(t, err)
	assert.EqualValues(t, draft, loaded)

	all, err := reopened.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStoreRemoveIdempotent(t *testing.T) {
	ctx := context.Background()
	store := fs.New(filepath.Join(t.TempDir(), "pending_drafts.json"))

	draft := &model.Draft{ID: "1", Text: "hello", CreatedAt: time.Now()}
	assert.NoError(t, store.Put(ctx, draft))
	assert.NoError(t, store.Remove(ctx, "1"))
	assert.NoError(t, store.Remove(ctx, "1"), "removing a missing id is a no-op")
	assert.NoError(t, store.Remove(ctx, "never-existed"))

	loaded, err := store.Get(ctx, "1")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStorePutReplaces(t *testing.T) {
	ctx := context.Background()
	store := fs.New(filepath.Join(t.TempDir(), "pending_drafts.json"))

	assert.NoError(t, store.Put(ctx, &model.Draft{ID: "1", Text: "first"}))
	assert.NoError(t, store.Put(ctx, &model.Draft{ID: "1", Text: "edited"}))

	loaded, err := store.Get(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, "edited", loaded.Text)
}

func TestStoreAbsentFile(t *testing.T) {
	ctx := context.Background()
	store := fs.New(filepath.Join(t.TempDir(), "pending_drafts.json"))

	loaded, err := store.Get(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, loaded)

	all, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, all)
}

func TestStoreCorruptDocumentSurfacesStoreIO(t *testing.T) {
	ctx := context.Background()
	location := filepath.Join(t.TempDir(), "pending_drafts.json")
	assert.NoError(t, os.WriteFile(location, []byte("{not json"), 0o644))

	store := fs.New(location)
	_, err := store.List(ctx)
	assert.ErrorIs(t, err, model.ErrStoreIO)
}

func TestStoreCommitLeavesNoStagingFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	location := filepath.Join(dir, "pending_drafts.json")
	store := fs.New(location)

	assert.NoError(t, store.Put(ctx, &model.Draft{ID: "1", Text: "hello"}))

	_, err := os.Stat(location + ".tmp")
	assert.True(t, os.IsNotExist(err), "staging file must be moved into place")
}
