// Package memstore is an in-memory metastore.Store, used by tests and by
// `inkfsd serve` when the config's store.driver is "memory", for local
// development without a database.
package memstore

import (
	"context"
	"sync"

	"github.com/inkfs/inkfs/internal/apierror"
	"github.com/inkfs/inkfs/internal/model"
)

type dirNode struct {
	parent   model.NodeID
	children map[string]model.NodeID
}

type fileNode struct {
	size uint64
	hash model.Hash
}

// Store is a mutex-guarded in-memory implementation of metastore.Store.
// Every method takes the same lock; there is no finer-grained concurrency
// control, matching the teacher's memory store.
type Store struct {
	mu      sync.RWMutex
	dirs    map[model.NodeID]*dirNode
	files   map[model.NodeID]*fileNode
	nextID  model.NodeID
}

// New creates a Store with only the root directory present.
func New() *Store {
	return &Store{
		dirs: map[model.NodeID]*dirNode{
			model.ROOT: {parent: model.ROOT, children: make(map[string]model.NodeID)},
		},
		files:  make(map[model.NodeID]*fileNode),
		nextID: model.ROOT,
	}
}

// Close is a no-op; Store holds no external resources.
func (s *Store) Close() {}

func locationFor(isDir bool, id model.NodeID) string {
	if isDir {
		return "/api/dir/" + id.String()
	}
	return "/api/file/" + id.String()
}

// LookupNode implements metastore.Store.
func (s *Store) LookupNode(_ context.Context, id model.NodeID) (model.NodeInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.dirs[id]; ok {
		return model.NodeInfo{Kind: model.KindDirectory, Dir: cloneDir(d)}, nil
	}
	if f, ok := s.files[id]; ok {
		return model.NodeInfo{Kind: model.KindFile, File: model.FileInfo{Size: f.size, Hash: f.hash}}, nil
	}
	return model.NodeInfo{}, apierror.New(apierror.KindNotFound, "node not found")
}

// LookupDir implements metastore.Store.
func (s *Store) LookupDir(_ context.Context, id model.NodeID) (model.DirectoryInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if d, ok := s.dirs[id]; ok {
		return cloneDir(d), nil
	}
	if _, ok := s.files[id]; ok {
		return model.DirectoryInfo{}, apierror.New(apierror.KindNotADirectory, "not a directory")
	}
	return model.DirectoryInfo{}, apierror.New(apierror.KindNotFound, "node not found")
}

// LookupFile implements metastore.Store.
func (s *Store) LookupFile(_ context.Context, id model.NodeID) (model.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if f, ok := s.files[id]; ok {
		return model.FileInfo{Size: f.size, Hash: f.hash}, nil
	}
	if _, ok := s.dirs[id]; ok {
		return model.FileInfo{}, apierror.New(apierror.KindNotAFile, "not a file")
	}
	return model.FileInfo{}, apierror.New(apierror.KindNotFound, "node not found")
}

func cloneDir(d *dirNode) model.DirectoryInfo {
	children := make(map[string]model.NodeID, len(d.children))
	for k, v := range d.children {
		children[k] = v
	}
	return model.DirectoryInfo{Parent: d.parent, Children: children}
}

// allocate returns the next unused NodeID, wrapping past the maximum and
// skipping any ID still in use, matching the postgres allocator.
func (s *Store) allocate() model.NodeID {
	id := s.nextID.Next()
	for {
		_, isDir := s.dirs[id]
		_, isFile := s.files[id]
		if !isDir && !isFile {
			break
		}
		id = id.Next()
	}
	s.nextID = id
	return id
}

func (s *Store) requireParentDir(parent model.NodeID) (*dirNode, error) {
	if d, ok := s.dirs[parent]; ok {
		return d, nil
	}
	if _, ok := s.files[parent]; ok {
		return nil, apierror.New(apierror.KindNotADirectory, "parent is not a directory")
	}
	return nil, apierror.New(apierror.KindNotFound, "parent not found")
}

// CreateDir implements metastore.Store.
func (s *Store) CreateDir(_ context.Context, parent model.NodeID, name string) (model.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pd, err := s.requireParentDir(parent)
	if err != nil {
		return 0, err
	}
	if existing, ok := pd.children[name]; ok {
		_, isDir := s.dirs[existing]
		return 0, apierror.NewAlreadyExists(locationFor(isDir, existing))
	}

	id := s.allocate()
	s.dirs[id] = &dirNode{parent: parent, children: make(map[string]model.NodeID)}
	pd.children[name] = id
	return id, nil
}

// CreateFile implements metastore.Store.
func (s *Store) CreateFile(_ context.Context, parent model.NodeID, name string) (model.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pd, err := s.requireParentDir(parent)
	if err != nil {
		return 0, err
	}
	if existing, ok := pd.children[name]; ok {
		_, isDir := s.dirs[existing]
		return 0, apierror.NewAlreadyExists(locationFor(isDir, existing))
	}

	id := s.allocate()
	s.files[id] = &fileNode{size: 0, hash: model.EmptyHash}
	pd.children[name] = id
	return id, nil
}

// DeleteDir implements metastore.Store.
func (s *Store) DeleteDir(_ context.Context, parent model.NodeID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pd, ok := s.dirs[parent]
	if !ok {
		if _, ok := s.files[parent]; ok {
			return apierror.New(apierror.KindNotADirectory, "parent is not a directory")
		}
		return apierror.New(apierror.KindNotFound, "parent not found")
	}

	childID, ok := pd.children[name]
	if !ok {
		return apierror.New(apierror.KindNotFound, "directory not found")
	}
	child, isDir := s.dirs[childID]
	if !isDir {
		return apierror.New(apierror.KindNotADirectory, "not a directory")
	}
	if len(child.children) > 0 {
		return apierror.New(apierror.KindDirectoryNotEmpty, "directory not empty")
	}

	delete(pd.children, name)
	delete(s.dirs, childID)
	return nil
}

// DeleteFile implements metastore.Store.
func (s *Store) DeleteFile(_ context.Context, parent model.NodeID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pd, ok := s.dirs[parent]
	if !ok {
		if _, ok := s.files[parent]; ok {
			return apierror.New(apierror.KindNotADirectory, "parent is not a directory")
		}
		return apierror.New(apierror.KindNotFound, "parent not found")
	}

	childID, ok := pd.children[name]
	if !ok {
		return apierror.New(apierror.KindNotFound, "file not found")
	}
	if _, isDir := s.dirs[childID]; isDir {
		return apierror.New(apierror.KindNotAFile, "not a file")
	}

	delete(pd.children, name)
	delete(s.files, childID)
	return nil
}

// UpdateFileContent implements metastore.Store. publish runs before the
// in-memory hash/size are mutated, so a publish failure leaves the node
// untouched, matching the postgres implementation's rollback-on-publish-
// failure behavior.
func (s *Store) UpdateFileContent(_ context.Context, id model.NodeID, expectedHash, newHash model.Hash, newSize uint64, publish func() error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok || f.hash != expectedHash {
		return false, nil
	}

	if err := publish(); err != nil {
		return false, err
	}

	f.hash = newHash
	f.size = newSize
	return true, nil
}
