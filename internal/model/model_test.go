package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfs/inkfs/internal/model"
)

func TestEmptyHash(t *testing.T) {
	assert.Equal(t, model.HashBytes(nil), model.EmptyHash)
	assert.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f326", string(model.EmptyHash))
}

func TestHashBytesDeterministic(t *testing.T) {
	a := model.HashBytes([]byte("hello"))
	b := model.HashBytes([]byte("hello"))
	c := model.HashBytes([]byte("world"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestHashQuoteAndUnquote(t *testing.T) {
	h := model.HashBytes([]byte("payload"))
	quoted := h.Quote()
	assert.Equal(t, `"`+string(h)+`"`, quoted)

	unquoted, ok := model.UnquoteHash(quoted)
	require.True(t, ok)
	assert.Equal(t, h, unquoted)
}

func TestUnquoteHashRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", `"`, "noquotes", `"missing-end`} {
		_, ok := model.UnquoteHash(s)
		assert.False(t, ok, "expected %q to be rejected", s)
	}
}

func TestHashValid(t *testing.T) {
	assert.True(t, model.EmptyHash.Valid())
	assert.False(t, model.Hash("").Valid())
	assert.False(t, model.Hash("not-hex!").Valid())
	assert.False(t, model.Hash("DEADBEEF").Valid())
}

func TestNodeIDNext(t *testing.T) {
	assert.Equal(t, model.ROOT+1, model.ROOT.Next())
	assert.Equal(t, model.ROOT+1, model.NodeID(^uint64(0)).Next())
}

func TestNodeIDString(t *testing.T) {
	assert.Equal(t, "1", model.ROOT.String())
	assert.Equal(t, "42", model.NodeID(42).String())
}

func TestDirectoryInfoSortedNames(t *testing.T) {
	dir := model.DirectoryInfo{
		Parent: model.ROOT,
		Children: map[string]model.NodeID{
			"zebra": 3,
			"apple": 2,
			"mango": 4,
		},
	}
	assert.Equal(t, []string{"apple", "mango", "zebra"}, dir.SortedNames())
}

func TestNodeInfoKindPredicates(t *testing.T) {
	dirInfo := model.NodeInfo{Kind: model.KindDirectory, Dir: model.DirectoryInfo{Children: map[string]model.NodeID{}}}
	assert.True(t, dirInfo.IsDir())
	assert.False(t, dirInfo.IsFile())

	fileInfo := model.NodeInfo{Kind: model.KindFile, File: model.FileInfo{Hash: model.EmptyHash}}
	assert.True(t, fileInfo.IsFile())
	assert.False(t, fileInfo.IsDir())
}
