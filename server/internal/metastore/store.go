// Package metastore defines the metadata store contract of spec §4.1 and
// the relational schema of spec §3. Implementations live in subpackages
// (postgres).
package metastore

import (
	"context"

	"github.com/inkfs/inkfs/internal/model"
)

// Store is the metadata store's operation set. Every method maps directly
// to one of spec §4.1's operations; errors are *apierror.Error for the
// user-visible cases spec §4.1 enumerates and a wrapped internal error for
// anything else (spec §7).
type Store interface {
	// LookupNode returns the tagged NodeInfo for id.
	LookupNode(ctx context.Context, id model.NodeID) (model.NodeInfo, error)

	// LookupDir returns the DirectoryInfo for id, failing with NotADirectory
	// if id names a file.
	LookupDir(ctx context.Context, id model.NodeID) (model.DirectoryInfo, error)

	// LookupFile returns the FileInfo for id, failing with NotAFile if id
	// names a directory.
	LookupFile(ctx context.Context, id model.NodeID) (model.FileInfo, error)

	// CreateDir allocates a new directory node named name under parent.
	CreateDir(ctx context.Context, parent model.NodeID, name string) (model.NodeID, error)

	// CreateFile allocates a new, empty (EmptyHash) file node named name
	// under parent.
	CreateFile(ctx context.Context, parent model.NodeID, name string) (model.NodeID, error)

	// DeleteDir removes the directory named name under parent, failing with
	// DirectoryNotEmpty if it still has children.
	DeleteDir(ctx context.Context, parent model.NodeID, name string) error

	// DeleteFile removes the file named name under parent.
	DeleteFile(ctx context.Context, parent model.NodeID, name string) error

	// UpdateFileContent performs the conditional
	// `UPDATE files SET hash=?, size=? WHERE id=? AND hash=?` of spec §4.1,
	// calling publish once the conditional update has matched but before
	// that update is durably committed. If publish returns an error, the
	// metadata change is discarded and that error is returned, so
	// files.hash never comes to name a blob that was never published
	// (spec §3's content-addressing invariant). found is false with a nil
	// error iff expectedHash no longer matched, the sole optimistic-
	// concurrency guard in the system; publish is never called in that
	// case. found is also false when publish fails.
	UpdateFileContent(ctx context.Context, id model.NodeID, expectedHash, newHash model.Hash, newSize uint64, publish func() error) (found bool, err error)

	// Close releases any resources (connection pools) held by the store.
	Close()
}
