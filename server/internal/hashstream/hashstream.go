// Package hashstream implements the streaming transform described in
// spec §4.3: it forwards an inbound byte stream unchanged while computing a
// cryptographic hash and byte count as it goes, so a file-data write never
// needs to buffer the whole payload just to learn its hash.
package hashstream

import (
	"encoding/hex"
	"hash"
	"io"

	"github.com/zeebo/blake3"

	"github.com/inkfs/inkfs/internal/model"
)

// Reader wraps an io.Reader, forwarding every byte read while feeding it
// into a running digest. Hash and TotalSize are only meaningful once the
// wrapped reader has returned io.EOF.
type Reader struct {
	src    io.Reader
	h      hash.Hash
	total  uint64
	frozen bool
}

// NewReader wraps src.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src, h: blake3.New()}
}

// Read implements io.Reader, updating the running digest for every byte
// returned to the caller before returning it. The hash is not complete until
// the caller has observed io.EOF.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.h.Write(p[:n])
		r.total += uint64(n)
	}
	if err == io.EOF {
		r.frozen = true
	}
	return n, err
}

// Hash returns the digest of everything read so far, as a lowercase hex
// string. Call only after the source has been fully drained.
func (r *Reader) Hash() model.Hash {
	sum := r.h.Sum(nil)
	return model.Hash(hex.EncodeToString(sum))
}

// TotalSize returns the number of bytes read so far.
func (r *Reader) TotalSize() uint64 {
	return r.total
}

// Complete reports whether the source has been fully drained (observed
// io.EOF). A Hash/TotalSize read before Complete is true reflects a partial
// stream and must not be trusted as the content's true digest.
func (r *Reader) Complete() bool {
	return r.frozen
}
