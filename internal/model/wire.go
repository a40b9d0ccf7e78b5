package model

// This file holds the JSON wire representations of NodeInfo/DirectoryInfo/
// FileInfo. The codec (encoding/json) is treated as an opaque bytes<->value
// mapping per spec §1; these types are its schema.

// WireDirectoryInfo is the JSON body of GET /api/dir/{id}.
type WireDirectoryInfo struct {
	Parent   uint64            `json:"parent"`
	Children map[string]uint64 `json:"children"`
}

// ToWire converts a DirectoryInfo to its JSON representation.
func (d DirectoryInfo) ToWire() WireDirectoryInfo {
	children := make(map[string]uint64, len(d.Children))
	for name, id := range d.Children {
		children[name] = uint64(id)
	}
	return WireDirectoryInfo{Parent: uint64(d.Parent), Children: children}
}

// FromWire converts a JSON directory body back into a DirectoryInfo.
func (w WireDirectoryInfo) FromWire() DirectoryInfo {
	children := make(map[string]NodeID, len(w.Children))
	for name, id := range w.Children {
		children[name] = NodeID(id)
	}
	return DirectoryInfo{Parent: NodeID(w.Parent), Children: children}
}

// WireFileInfo is the JSON body of GET /api/file/{id}.
type WireFileInfo struct {
	Size uint64 `json:"size"`
	Hash string `json:"hash"`
}

// ToWire converts a FileInfo to its JSON representation.
func (f FileInfo) ToWire() WireFileInfo {
	return WireFileInfo{Size: f.Size, Hash: string(f.Hash)}
}

// FromWire converts a JSON file body back into a FileInfo.
func (w WireFileInfo) FromWire() FileInfo {
	return FileInfo{Size: w.Size, Hash: Hash(w.Hash)}
}

// WireNodeInfo is the JSON body of GET /api/node/{id}: exactly one of Dir,
// File is non-nil, mirroring the Directory | File tagged variant.
type WireNodeInfo struct {
	Dir  *WireDirectoryInfo `json:"directory,omitempty"`
	File *WireFileInfo      `json:"file,omitempty"`
}

// ToWire converts a NodeInfo to its JSON representation.
func (n NodeInfo) ToWire() WireNodeInfo {
	if n.IsDir() {
		w := n.Dir.ToWire()
		return WireNodeInfo{Dir: &w}
	}
	w := n.File.ToWire()
	return WireNodeInfo{File: &w}
}

// FromWire converts a JSON node body back into a NodeInfo.
func (w WireNodeInfo) FromWire() (NodeInfo, bool) {
	switch {
	case w.Dir != nil:
		return NodeInfo{Kind: KindDirectory, Dir: w.Dir.FromWire()}, true
	case w.File != nil:
		return NodeInfo{Kind: KindFile, File: w.File.FromWire()}, true
	default:
		return NodeInfo{}, false
	}
}

// WireNewNameRequest is the JSON body of the new-dir/new-file/delete-dir/
// delete-file endpoints: just the child name.
type WireNewNameRequest struct {
	Name string `json:"name"`
}
