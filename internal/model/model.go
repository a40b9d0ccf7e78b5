// Package model holds the wire-level data model shared by the inkfs server
// and client: node identifiers, directory and file descriptors, and the
// content hash envelope.
package model

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"
)

// NodeID identifies a single node (directory or file) across the whole
// system. The zero value is never valid; ROOT is the well-known root
// directory.
type NodeID uint64

// ROOT is the well-known identifier of the root directory. It exists before
// any other node and is its own parent.
const ROOT NodeID = 1

// Next returns the NodeID that follows id in the allocator sequence,
// wrapping past the maximum back to ROOT+1 rather than to zero.
func (id NodeID) Next() NodeID {
	if id == ^NodeID(0) {
		return ROOT + 1
	}
	return id + 1
}

// String renders the ID as a decimal string, the form used in URLs.
func (id NodeID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// Hash is a lowercase-hex-encoded content digest. The empty string is never
// a valid Hash; use EmptyHash for the zero-length digest.
type Hash string

// EmptyHash is the BLAKE3 digest of the zero-length byte string, assigned to
// every freshly created file: af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262.
var EmptyHash = Hash(hex.EncodeToString(blake3.New().Sum(nil)))

// HashBytes computes the Hash of a complete in-memory payload. Streaming
// writers should use hashstream.Reader instead of buffering the whole
// payload just to call this.
func HashBytes(b []byte) Hash {
	sum := blake3.Sum256(b)
	return Hash(hex.EncodeToString(sum[:]))
}

// Quote renders the hash as a quoted entity tag, e.g. `"deadbeef"`.
func (h Hash) Quote() string {
	return `"` + string(h) + `"`
}

// Valid reports whether h looks like a well-formed hex digest.
func (h Hash) Valid() bool {
	if len(h) == 0 {
		return false
	}
	for _, c := range h {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// UnquoteHash strips the surrounding quotes from an ETag-style header value.
// Returns ok=false if the value isn't quoted.
func UnquoteHash(s string) (Hash, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	return Hash(s[1 : len(s)-1]), true
}

// DirectoryInfo describes a directory's parent and children. Children is
// keyed by name; names are unique within one directory.
type DirectoryInfo struct {
	Parent   NodeID
	Children map[string]NodeID
}

// SortedNames returns the children's names in lexicographic order, the
// iteration order DirectoryInfo promises callers.
func (d DirectoryInfo) SortedNames() []string {
	names := make([]string, 0, len(d.Children))
	for name := range d.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileInfo describes a file's size and content hash. Size always equals the
// length of the bytes whose digest is Hash.
type FileInfo struct {
	Size uint64
	Hash Hash
}

// NodeKind distinguishes the two tagged variants of NodeInfo.
type NodeKind int

const (
	// KindDirectory marks a NodeInfo carrying a DirectoryInfo.
	KindDirectory NodeKind = iota
	// KindFile marks a NodeInfo carrying a FileInfo.
	KindFile
)

// NodeInfo is the tagged Directory | File variant returned by node lookups.
type NodeInfo struct {
	Kind NodeKind
	Dir  DirectoryInfo
	File FileInfo
}

// IsDir reports whether this NodeInfo describes a directory.
func (n NodeInfo) IsDir() bool { return n.Kind == KindDirectory }

// IsFile reports whether this NodeInfo describes a file.
func (n NodeInfo) IsFile() bool { return n.Kind == KindFile }
