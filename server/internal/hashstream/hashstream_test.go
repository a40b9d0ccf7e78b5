package hashstream_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfs/inkfs/internal/model"
	"github.com/inkfs/inkfs/server/internal/hashstream"
)

func TestReaderForwardsBytesUnchanged(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	r := hashstream.NewReader(bytes.NewReader(payload))

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestReaderHashMatchesWholePayload(t *testing.T) {
	payload := []byte("content to hash")
	r := hashstream.NewReader(bytes.NewReader(payload))

	_, err := io.ReadAll(r)
	require.NoError(t, err)

	assert.True(t, r.Complete())
	assert.Equal(t, model.HashBytes(payload), r.Hash())
	assert.Equal(t, uint64(len(payload)), r.TotalSize())
}

func TestReaderEmptyPayload(t *testing.T) {
	r := hashstream.NewReader(bytes.NewReader(nil))
	_, err := io.ReadAll(r)
	require.NoError(t, err)

	assert.Equal(t, model.EmptyHash, r.Hash())
	assert.Equal(t, uint64(0), r.TotalSize())
}

func TestReaderNotCompleteBeforeEOF(t *testing.T) {
	r := hashstream.NewReader(bytes.NewReader([]byte("partial")))
	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, r.Complete())
}
