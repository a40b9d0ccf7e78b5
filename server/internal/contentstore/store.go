// Package contentstore implements the server's content-addressed blob
// storage (spec §4.2): a staging directory for in-flight uploads and a
// published directory keyed by content hash, with atomic publish via
// rename.
package contentstore

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/inkfs/inkfs/internal/model"
)

// ErrNotFound is returned when a read is attempted against a hash with no
// published blob.
var ErrNotFound = errors.New("contentstore: blob not found")

// Store manages the uploads/ staging directory and files/ published
// directory under a base path.
type Store struct {
	uploadsDir string
	filesDir   string
}

// New creates a Store rooted at base, creating the uploads/ and files/
// subdirectories if they don't already exist.
func New(base string) (*Store, error) {
	uploadsDir := filepath.Join(base, "uploads")
	filesDir := filepath.Join(base, "files")
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		return nil, err
	}
	return &Store{uploadsDir: uploadsDir, filesDir: filesDir}, nil
}

func (s *Store) blobPath(h model.Hash) string {
	return filepath.Join(s.filesDir, string(h))
}

func (s *Store) stagingPath(id model.NodeID) string {
	return filepath.Join(s.uploadsDir, id.String())
}

// Read opens the published blob for h and streams it. The empty-hash blob
// is synthesized as an empty stream without touching disk, matching
// spec §4.2.
func (s *Store) Read(h model.Hash) (io.ReadCloser, error) {
	if h == model.EmptyHash {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	f, err := os.Open(s.blobPath(h))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// OpenUpload creates a new staging file for the given node ID and returns a
// scoped handle to it. The handle's Abort/Publish methods guarantee the
// staging file is deleted on every exit path except a successful Publish.
func (s *Store) OpenUpload(id model.NodeID) (*UploadHandle, error) {
	path := s.stagingPath(id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	return &UploadHandle{store: s, file: f, path: path}, nil
}

// UploadHandle wraps one in-flight staging file. Exactly one of
// Publish/Abort must be called; Close is safe to call unconditionally
// afterward (or instead of Abort) as a defer-based safety net.
type UploadHandle struct {
	store     *Store
	file      *os.File
	path      string
	published bool
	closed    bool
}

// Write implements io.Writer over the staging file.
func (u *UploadHandle) Write(p []byte) (int, error) {
	return u.file.Write(p)
}

// Publish renames the staging file to its content-addressed final name,
// completing the atomic publish. After a successful Publish, Close no
// longer deletes the staging file (there's nothing left to delete: it has
// moved into files/). A rename collision with an existing blob of the same
// hash is a no-op replace, which is safe because files/ entries are content
// addressed and therefore byte-identical whenever their name matches
// (spec §5, "Files directory").
func (u *UploadHandle) Publish(h model.Hash) error {
	if err := u.file.Close(); err != nil {
		return err
	}
	u.closed = true

	if h == model.EmptyHash {
		// Nothing was meaningfully written; the empty blob is never stored on
		// disk, so the staging file is simply discarded.
		u.published = true
		return os.Remove(u.path)
	}

	dest := u.store.blobPath(h)
	if err := os.Rename(u.path, dest); err != nil {
		return err
	}
	u.published = true
	return nil
}

// Abort closes and deletes the staging file. Safe to call after Publish
// (no-op) or multiple times.
func (u *UploadHandle) Abort() error {
	if !u.closed {
		_ = u.file.Close()
		u.closed = true
	}
	if u.published {
		return nil
	}
	err := os.Remove(u.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is Abort under another name, meant for defer immediately after
// OpenUpload succeeds: `defer handle.Close()` deletes the staging file
// unless Publish already moved it out from under the defer.
func (u *UploadHandle) Close() error {
	return u.Abort()
}
