// Package metacache wraps a remoteclient.Client with the client-side
// metadata cache the original implementation's LocalFileCache keeps:
// directory contents are always refetched fresh (a directory's children can
// change out from under a cached parent), while individual node and file
// lookups are cached until invalidated by a write or delete that this
// process itself performed.
package metacache

import (
	"context"
	"sync"

	"github.com/inkfs/inkfs/client/internal/remoteclient"
	"github.com/inkfs/inkfs/internal/model"
)

// Cache is the per-mount node info cache. It is safe for concurrent use.
type Cache struct {
	remote *remoteclient.Client

	mu    sync.RWMutex
	nodes map[model.NodeID]model.NodeInfo
}

// New builds a Cache backed by remote.
func New(remote *remoteclient.Client) *Cache {
	return &Cache{
		remote: remote,
		nodes:  make(map[model.NodeID]model.NodeInfo),
	}
}

// GetNodeInfo returns id's NodeInfo, serving a cached value if present.
func (c *Cache) GetNodeInfo(ctx context.Context, id model.NodeID) (model.NodeInfo, error) {
	c.mu.RLock()
	if info, ok := c.nodes[id]; ok {
		c.mu.RUnlock()
		return info, nil
	}
	c.mu.RUnlock()

	info, err := c.remote.FetchNodeInfo(ctx, id)
	if err != nil {
		return model.NodeInfo{}, err
	}

	c.mu.Lock()
	c.nodes[id] = info
	c.mu.Unlock()
	return info, nil
}

// GetDirInfo always fetches id's current directory contents from the
// server: a cached NodeInfo for a directory is never trusted for its
// children, only used to confirm id still names a directory.
func (c *Cache) GetDirInfo(ctx context.Context, id model.NodeID) (model.DirectoryInfo, error) {
	dir, err := c.remote.FetchDirInfo(ctx, id)
	if err != nil {
		return model.DirectoryInfo{}, err
	}

	c.mu.Lock()
	c.nodes[id] = model.NodeInfo{Kind: model.KindDirectory, Dir: dir}
	c.mu.Unlock()
	return dir, nil
}

// GetFileData always fetches id's current content from the server, then
// caches the resulting size/hash as the node's FileInfo.
func (c *Cache) GetFileData(ctx context.Context, id model.NodeID) ([]byte, model.Hash, error) {
	data, hash, err := c.remote.FetchFileData(ctx, id)
	if err != nil {
		return nil, "", err
	}

	c.mu.Lock()
	c.nodes[id] = model.NodeInfo{Kind: model.KindFile, File: model.FileInfo{Size: uint64(len(data)), Hash: hash}}
	c.mu.Unlock()
	return data, hash, nil
}

// WriteFileData writes id's content, using the cached hash (falling back to
// a fresh fetch if id isn't cached) as the implicit previous-hash
// expectation, then evicts id from the cache: the next read goes to the
// server.
func (c *Cache) WriteFileData(ctx context.Context, id model.NodeID, data []byte) (model.Hash, error) {
	prevHash, err := c.expectedHash(ctx, id)
	if err != nil {
		return "", err
	}

	newHash, err := c.remote.WriteFileData(ctx, id, prevHash, data)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	delete(c.nodes, id)
	c.mu.Unlock()
	return newHash, nil
}

func (c *Cache) expectedHash(ctx context.Context, id model.NodeID) (model.Hash, error) {
	c.mu.RLock()
	info, ok := c.nodes[id]
	c.mu.RUnlock()
	if ok && info.IsFile() {
		return info.File.Hash, nil
	}

	file, err := c.remote.FetchFileInfo(ctx, id)
	if err != nil {
		return "", err
	}
	return file.Hash, nil
}

// CreateDir creates a directory named name under parent, inserts the new
// node into the cache, and patches parent's cached children map if parent
// is itself cached as a directory.
func (c *Cache) CreateDir(ctx context.Context, parent model.NodeID, name string) (model.NodeID, error) {
	id, err := c.remote.CreateDir(ctx, parent, name)
	if err != nil {
		return 0, err
	}
	c.insertChild(parent, name, id, model.NodeInfo{Kind: model.KindDirectory, Dir: model.DirectoryInfo{Parent: parent, Children: map[string]model.NodeID{}}})
	return id, nil
}

// CreateFile creates a file named name under parent, inserts the new node
// into the cache, and patches parent's cached children map if parent is
// itself cached as a directory.
func (c *Cache) CreateFile(ctx context.Context, parent model.NodeID, name string) (model.NodeID, error) {
	id, err := c.remote.CreateFile(ctx, parent, name)
	if err != nil {
		return 0, err
	}
	c.insertChild(parent, name, id, model.NodeInfo{Kind: model.KindFile, File: model.FileInfo{Size: 0, Hash: model.EmptyHash}})
	return id, nil
}

func (c *Cache) insertChild(parent model.NodeID, name string, id model.NodeID, info model.NodeInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[id] = info
	if p, ok := c.nodes[parent]; ok && p.IsDir() {
		p.Dir.Children[name] = id
	}
}

// DeleteDir deletes the directory named name under parent, then recursively
// evicts it and every descendant from the cache.
func (c *Cache) DeleteDir(ctx context.Context, parent model.NodeID, name string) error {
	id, hadID := c.childID(parent, name)
	if err := c.remote.DeleteDir(ctx, parent, name); err != nil {
		return err
	}
	c.evict(parent, name, id, hadID)
	return nil
}

// DeleteFile deletes the file named name under parent, then evicts it from
// the cache.
func (c *Cache) DeleteFile(ctx context.Context, parent model.NodeID, name string) error {
	id, hadID := c.childID(parent, name)
	if err := c.remote.DeleteFile(ctx, parent, name); err != nil {
		return err
	}
	c.evict(parent, name, id, hadID)
	return nil
}

func (c *Cache) childID(parent model.NodeID, name string) (model.NodeID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.nodes[parent]
	if !ok || !p.IsDir() {
		return 0, false
	}
	id, ok := p.Dir.Children[name]
	return id, ok
}

// evict removes name from parent's cached children map (if cached) and
// walks id's own subtree, removing every descendant entry this process has
// cached. This mirrors the original implementation's
// delete_node_from_local_cache: a directory delete invalidates everything
// beneath it, not just the one entry.
func (c *Cache) evict(parent model.NodeID, name string, id model.NodeID, hadID bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.nodes[parent]; ok && p.IsDir() {
		delete(p.Dir.Children, name)
	}
	if !hadID {
		return
	}

	stack := []model.NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		info, ok := c.nodes[cur]
		delete(c.nodes, cur)
		if ok && info.IsDir() {
			for _, childID := range info.Dir.Children {
				stack = append(stack, childID)
			}
		}
	}
}
