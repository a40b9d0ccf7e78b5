// Package storetest is a shared conformance suite for metastore.Store
// implementations. Every implementation (memstore, postgres) runs the same
// suite against a fresh store so their behavior can't drift apart.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfs/inkfs/internal/apierror"
	"github.com/inkfs/inkfs/internal/model"
	"github.com/inkfs/inkfs/server/internal/metastore"
)

// Run exercises every metastore.Store operation against a freshly
// constructed store, per the round-trip/idempotence properties of spec §4.11.
func Run(t *testing.T, newStore func() metastore.Store) {
	t.Run("CreateThenLookup", func(t *testing.T) { testCreateThenLookup(t, newStore) })
	t.Run("CreateCollision", func(t *testing.T) { testCreateCollision(t, newStore) })
	t.Run("CreateUnderFile", func(t *testing.T) { testCreateUnderFile(t, newStore) })
	t.Run("DeleteNonEmptyDir", func(t *testing.T) { testDeleteNonEmptyDir(t, newStore) })
	t.Run("DeleteThenNotFound", func(t *testing.T) { testDeleteThenNotFound(t, newStore) })
	t.Run("WrongKindLookup", func(t *testing.T) { testWrongKindLookup(t, newStore) })
	t.Run("ConditionalUpdate", func(t *testing.T) { testConditionalUpdate(t, newStore) })
	t.Run("UpdateRollsBackOnPublishFailure", func(t *testing.T) { testUpdateRollsBackOnPublishFailure(t, newStore) })
}

func testCreateThenLookup(t *testing.T, newStore func() metastore.Store) {
	ctx := context.Background()
	store := newStore()
	defer store.Close()

	dirID, err := store.CreateDir(ctx, model.ROOT, "dir1")
	require.NoError(t, err)

	info, err := store.LookupNode(ctx, dirID)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, model.ROOT, info.Dir.Parent)
	assert.Empty(t, info.Dir.Children)

	root, err := store.LookupDir(ctx, model.ROOT)
	require.NoError(t, err)
	assert.Equal(t, dirID, root.Children["dir1"])

	fileID, err := store.CreateFile(ctx, model.ROOT, "f")
	require.NoError(t, err)

	file, err := store.LookupFile(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), file.Size)
	assert.Equal(t, model.EmptyHash, file.Hash)
}

func testCreateCollision(t *testing.T, newStore func() metastore.Store) {
	ctx := context.Background()
	store := newStore()
	defer store.Close()

	firstID, err := store.CreateDir(ctx, model.ROOT, "x")
	require.NoError(t, err)

	_, err = store.CreateDir(ctx, model.ROOT, "x")
	require.Error(t, err)
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindAlreadyExists, apiErr.Kind)
	assert.Equal(t, "/api/dir/"+firstID.String(), apiErr.Location)

	_, err = store.CreateFile(ctx, model.ROOT, "x")
	require.Error(t, err)
	apiErr, ok = apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindAlreadyExists, apiErr.Kind)
}

func testCreateUnderFile(t *testing.T, newStore func() metastore.Store) {
	ctx := context.Background()
	store := newStore()
	defer store.Close()

	fileID, err := store.CreateFile(ctx, model.ROOT, "f")
	require.NoError(t, err)

	_, err = store.CreateDir(ctx, fileID, "child")
	require.Error(t, err)
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindNotADirectory, apiErr.Kind)
}

func testDeleteNonEmptyDir(t *testing.T, newStore func() metastore.Store) {
	ctx := context.Background()
	store := newStore()
	defer store.Close()

	dirID, err := store.CreateDir(ctx, model.ROOT, "d")
	require.NoError(t, err)
	_, err = store.CreateFile(ctx, dirID, "child")
	require.NoError(t, err)

	err = store.DeleteDir(ctx, model.ROOT, "d")
	require.Error(t, err)
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindDirectoryNotEmpty, apiErr.Kind)
}

func testDeleteThenNotFound(t *testing.T, newStore func() metastore.Store) {
	ctx := context.Background()
	store := newStore()
	defer store.Close()

	dirID, err := store.CreateDir(ctx, model.ROOT, "d")
	require.NoError(t, err)
	require.NoError(t, store.DeleteDir(ctx, model.ROOT, "d"))

	_, err = store.LookupNode(ctx, dirID)
	require.Error(t, err)
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindNotFound, apiErr.Kind)

	fileID, err := store.CreateFile(ctx, model.ROOT, "f")
	require.NoError(t, err)
	require.NoError(t, store.DeleteFile(ctx, model.ROOT, "f"))

	_, err = store.LookupNode(ctx, fileID)
	require.Error(t, err)
}

func testWrongKindLookup(t *testing.T, newStore func() metastore.Store) {
	ctx := context.Background()
	store := newStore()
	defer store.Close()

	dirID, err := store.CreateDir(ctx, model.ROOT, "d")
	require.NoError(t, err)
	fileID, err := store.CreateFile(ctx, model.ROOT, "f")
	require.NoError(t, err)

	_, err = store.LookupFile(ctx, dirID)
	require.Error(t, err)
	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindNotAFile, apiErr.Kind)

	_, err = store.LookupDir(ctx, fileID)
	require.Error(t, err)
	apiErr, ok = apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindNotADirectory, apiErr.Kind)
}

func testConditionalUpdate(t *testing.T, newStore func() metastore.Store) {
	ctx := context.Background()
	store := newStore()
	defer store.Close()

	fileID, err := store.CreateFile(ctx, model.ROOT, "f")
	require.NoError(t, err)

	noopPublish := func() error { return nil }

	newHash := model.HashBytes([]byte("hello"))
	found, err := store.UpdateFileContent(ctx, fileID, model.EmptyHash, newHash, 5, noopPublish)
	require.NoError(t, err)
	assert.True(t, found)

	info, err := store.LookupFile(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, newHash, info.Hash)
	assert.Equal(t, uint64(5), info.Size)

	// Stale expected hash: the write must not apply, and publish must never
	// be invoked for a conditional update that didn't match.
	staleHash := model.HashBytes([]byte("stale"))
	found, err = store.UpdateFileContent(ctx, fileID, model.EmptyHash, staleHash, 5, func() error {
		t.Fatal("publish must not run when expectedHash is stale")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, found)

	info, err = store.LookupFile(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, newHash, info.Hash, "unchanged after a stale conditional update")
}

// testUpdateRollsBackOnPublishFailure exercises the cross-store contract a
// failed blob publish must honor: the metadata must come back unchanged,
// as if the conditional update never ran.
func testUpdateRollsBackOnPublishFailure(t *testing.T, newStore func() metastore.Store) {
	ctx := context.Background()
	store := newStore()
	defer store.Close()

	fileID, err := store.CreateFile(ctx, model.ROOT, "f")
	require.NoError(t, err)

	newHash := model.HashBytes([]byte("hello"))
	publishErr := errors.New("publish failed")
	found, err := store.UpdateFileContent(ctx, fileID, model.EmptyHash, newHash, 5, func() error {
		return publishErr
	})
	require.Error(t, err)
	assert.False(t, found)

	info, err := store.LookupFile(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, model.EmptyHash, info.Hash, "hash must revert to its pre-update value when publish fails")
	assert.Equal(t, uint64(0), info.Size)
}
