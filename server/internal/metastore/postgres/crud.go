package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/inkfs/inkfs/internal/apierror"
	"github.com/inkfs/inkfs/internal/model"
)

// locationFor renders the /api path of an existing child, used as the
// Location header value on an AlreadyExists conflict (spec §4.7).
func locationFor(isDir bool, id model.NodeID) string {
	if isDir {
		return "/api/dir/" + id.String()
	}
	return "/api/file/" + id.String()
}

// LookupNode implements metastore.Store.
func (s *Store) LookupNode(ctx context.Context, id model.NodeID) (model.NodeInfo, error) {
	if dir, ok, err := s.loadDir(ctx, s.pool, id); err != nil {
		return model.NodeInfo{}, err
	} else if ok {
		return model.NodeInfo{Kind: model.KindDirectory, Dir: dir}, nil
	}

	if file, ok, err := s.loadFile(ctx, s.pool, id); err != nil {
		return model.NodeInfo{}, err
	} else if ok {
		return model.NodeInfo{Kind: model.KindFile, File: file}, nil
	}

	return model.NodeInfo{}, apierror.New(apierror.KindNotFound, "node not found")
}

// LookupDir implements metastore.Store.
func (s *Store) LookupDir(ctx context.Context, id model.NodeID) (model.DirectoryInfo, error) {
	dir, ok, err := s.loadDir(ctx, s.pool, id)
	if err != nil {
		return model.DirectoryInfo{}, err
	}
	if ok {
		return dir, nil
	}

	if _, ok, err := s.loadFile(ctx, s.pool, id); err != nil {
		return model.DirectoryInfo{}, err
	} else if ok {
		return model.DirectoryInfo{}, apierror.New(apierror.KindNotADirectory, "not a directory")
	}

	return model.DirectoryInfo{}, apierror.New(apierror.KindNotFound, "node not found")
}

// LookupFile implements metastore.Store.
func (s *Store) LookupFile(ctx context.Context, id model.NodeID) (model.FileInfo, error) {
	file, ok, err := s.loadFile(ctx, s.pool, id)
	if err != nil {
		return model.FileInfo{}, err
	}
	if ok {
		return file, nil
	}

	if _, ok, err := s.loadDir(ctx, s.pool, id); err != nil {
		return model.FileInfo{}, err
	} else if ok {
		return model.FileInfo{}, apierror.New(apierror.KindNotAFile, "not a file")
	}

	return model.FileInfo{}, apierror.New(apierror.KindNotFound, "node not found")
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) loadDir(ctx context.Context, q querier, id model.NodeID) (model.DirectoryInfo, bool, error) {
	var parent uint64
	err := q.QueryRow(ctx, `SELECT parent FROM directories WHERE id = $1`, uint64(id)).Scan(&parent)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.DirectoryInfo{}, false, nil
		}
		return model.DirectoryInfo{}, false, mapPgError(err, "loadDir")
	}

	rows, err := q.Query(ctx, `SELECT name, directory, file FROM directory_entries WHERE parent = $1`, uint64(id))
	if err != nil {
		return model.DirectoryInfo{}, false, mapPgError(err, "loadDir:children")
	}
	defer rows.Close()

	children := make(map[string]model.NodeID)
	for rows.Next() {
		var name string
		var dirChild, fileChild *uint64
		if err := rows.Scan(&name, &dirChild, &fileChild); err != nil {
			return model.DirectoryInfo{}, false, mapPgError(err, "loadDir:scan")
		}
		if dirChild != nil {
			children[name] = model.NodeID(*dirChild)
		} else {
			children[name] = model.NodeID(*fileChild)
		}
	}
	if err := rows.Err(); err != nil {
		return model.DirectoryInfo{}, false, mapPgError(err, "loadDir:rows")
	}

	return model.DirectoryInfo{Parent: model.NodeID(parent), Children: children}, true, nil
}

func (s *Store) loadFile(ctx context.Context, q querier, id model.NodeID) (model.FileInfo, bool, error) {
	var size uint64
	var hash string
	err := q.QueryRow(ctx, `SELECT size, hash FROM files WHERE id = $1`, uint64(id)).Scan(&size, &hash)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.FileInfo{}, false, nil
		}
		return model.FileInfo{}, false, mapPgError(err, "loadFile")
	}
	return model.FileInfo{Size: size, Hash: model.Hash(hash)}, true, nil
}

// entryChild describes the existing entry, if any, at (parent, name).
type entryChild struct {
	isDir bool
	id    model.NodeID
}

func lookupEntry(ctx context.Context, tx pgx.Tx, parent model.NodeID, name string) (entryChild, bool, error) {
	var dirChild, fileChild *uint64
	err := tx.QueryRow(ctx, `SELECT directory, file FROM directory_entries WHERE parent = $1 AND name = $2`,
		uint64(parent), name).Scan(&dirChild, &fileChild)
	if err != nil {
		if err == pgx.ErrNoRows {
			return entryChild{}, false, nil
		}
		return entryChild{}, false, err
	}
	if dirChild != nil {
		return entryChild{isDir: true, id: model.NodeID(*dirChild)}, true, nil
	}
	return entryChild{isDir: false, id: model.NodeID(*fileChild)}, true, nil
}

// raceLostAlreadyExists builds the AlreadyExists error for a concurrent
// create that lost the (parent, name) unique-constraint race: the winner's
// insert is visible by the time Postgres reports the violation, so
// re-running lookupEntry finds it and the loser gets the same
// Location-bearing response as a caller that hit the pre-insert check
// (spec §4.7).
func raceLostAlreadyExists(ctx context.Context, tx pgx.Tx, parent model.NodeID, name string, op string) error {
	existing, ok, err := lookupEntry(ctx, tx, parent, name)
	if err != nil {
		return mapPgError(err, op+":relookup")
	}
	if !ok {
		return apierror.New(apierror.KindAlreadyExists, op+": already exists")
	}
	return apierror.NewAlreadyExists(locationFor(existing.isDir, existing.id))
}

// requireParentDir confirms parent is a directory, distinguishing NotFound
// from NotADirectory for the caller.
func requireParentDir(ctx context.Context, tx pgx.Tx, parent model.NodeID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM directories WHERE id = $1)`, uint64(parent)).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM files WHERE id = $1)`, uint64(parent)).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return apierror.New(apierror.KindNotADirectory, "parent is not a directory")
	}
	return apierror.New(apierror.KindNotFound, "parent not found")
}

// CreateDir implements metastore.Store.
func (s *Store) CreateDir(ctx context.Context, parent model.NodeID, name string) (model.NodeID, error) {
	var newID model.NodeID
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requireParentDir(ctx, tx, parent); err != nil {
			return err
		}

		if existing, ok, err := lookupEntry(ctx, tx, parent, name); err != nil {
			return mapPgError(err, "CreateDir:lookup")
		} else if ok {
			return apierror.NewAlreadyExists(locationFor(existing.isDir, existing.id))
		}

		id, err := allocateID(ctx, tx)
		if err != nil {
			return mapPgError(err, "CreateDir:allocate")
		}

		if _, err := tx.Exec(ctx, `INSERT INTO directories (id, parent) VALUES ($1, $2)`, uint64(id), uint64(parent)); err != nil {
			return mapPgError(err, "CreateDir:insert")
		}
		if _, err := tx.Exec(ctx, `INSERT INTO directory_entries (parent, name, directory) VALUES ($1, $2, $3)`,
			uint64(parent), name, uint64(id)); err != nil {
			if isUniqueViolation(err) {
				return raceLostAlreadyExists(ctx, tx, parent, name, "CreateDir:entry")
			}
			return mapPgError(err, "CreateDir:entry")
		}

		newID = id
		return nil
	})
	return newID, err
}

// CreateFile implements metastore.Store.
func (s *Store) CreateFile(ctx context.Context, parent model.NodeID, name string) (model.NodeID, error) {
	var newID model.NodeID
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := requireParentDir(ctx, tx, parent); err != nil {
			return err
		}

		if existing, ok, err := lookupEntry(ctx, tx, parent, name); err != nil {
			return mapPgError(err, "CreateFile:lookup")
		} else if ok {
			return apierror.NewAlreadyExists(locationFor(existing.isDir, existing.id))
		}

		id, err := allocateID(ctx, tx)
		if err != nil {
			return mapPgError(err, "CreateFile:allocate")
		}

		if _, err := tx.Exec(ctx, `INSERT INTO files (id, size, hash) VALUES ($1, 0, $2)`, uint64(id), string(model.EmptyHash)); err != nil {
			return mapPgError(err, "CreateFile:insert")
		}
		if _, err := tx.Exec(ctx, `INSERT INTO directory_entries (parent, name, file) VALUES ($1, $2, $3)`,
			uint64(parent), name, uint64(id)); err != nil {
			if isUniqueViolation(err) {
				return raceLostAlreadyExists(ctx, tx, parent, name, "CreateFile:entry")
			}
			return mapPgError(err, "CreateFile:entry")
		}

		newID = id
		return nil
	})
	return newID, err
}

// DeleteDir implements metastore.Store.
func (s *Store) DeleteDir(ctx context.Context, parent model.NodeID, name string) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		entry, ok, err := lookupEntry(ctx, tx, parent, name)
		if err != nil {
			return mapPgError(err, "DeleteDir:lookup")
		}
		if !ok {
			return apierror.New(apierror.KindNotFound, "directory not found")
		}
		if !entry.isDir {
			return apierror.New(apierror.KindNotADirectory, "not a directory")
		}

		var childCount int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM directory_entries WHERE parent = $1`, uint64(entry.id)).Scan(&childCount); err != nil {
			return mapPgError(err, "DeleteDir:count")
		}
		if childCount > 0 {
			return apierror.New(apierror.KindDirectoryNotEmpty, "directory not empty")
		}

		if _, err := tx.Exec(ctx, `DELETE FROM directory_entries WHERE parent = $1 AND name = $2`, uint64(parent), name); err != nil {
			return mapPgError(err, "DeleteDir:entry")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM directories WHERE id = $1`, uint64(entry.id)); err != nil {
			return mapPgError(err, "DeleteDir:node")
		}
		return nil
	})
}

// DeleteFile implements metastore.Store.
func (s *Store) DeleteFile(ctx context.Context, parent model.NodeID, name string) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		entry, ok, err := lookupEntry(ctx, tx, parent, name)
		if err != nil {
			return mapPgError(err, "DeleteFile:lookup")
		}
		if !ok {
			return apierror.New(apierror.KindNotFound, "file not found")
		}
		if entry.isDir {
			return apierror.New(apierror.KindNotAFile, "not a file")
		}

		if _, err := tx.Exec(ctx, `DELETE FROM directory_entries WHERE parent = $1 AND name = $2`, uint64(parent), name); err != nil {
			return mapPgError(err, "DeleteFile:entry")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM files WHERE id = $1`, uint64(entry.id)); err != nil {
			return mapPgError(err, "DeleteFile:node")
		}
		return nil
	})
}

// UpdateFileContent implements metastore.Store: the sole conditional-update
// primitive in the system (spec §4.1, §5). The UPDATE and publish run
// inside one transaction, so a failed publish (the content-store rename)
// rolls back the metadata change instead of leaving files.hash pointing at
// a blob that was never written.
func (s *Store) UpdateFileContent(ctx context.Context, id model.NodeID, expectedHash, newHash model.Hash, newSize uint64, publish func() error) (bool, error) {
	var found bool
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE files SET hash = $1, size = $2 WHERE id = $3 AND hash = $4`,
			string(newHash), newSize, uint64(id), string(expectedHash))
		if err != nil {
			return mapPgError(err, "UpdateFileContent")
		}
		found = tag.RowsAffected() == 1
		if !found {
			return nil
		}

		if err := publish(); err != nil {
			found = false
			return fmt.Errorf("metastore/postgres: UpdateFileContent: publish: %w", err)
		}
		return nil
	})
	return found, err
}

// withTx runs fn inside a transaction, committing on nil return and rolling
// back otherwise. Modeled on the teacher's WithTransaction, simplified: a
// single attempt, no deadlock/serialization retry loop. Only the file-data
// write path holds the per-node lock; a create or delete that conflicts
// with a concurrent one is not retried and returns the error its statement
// reported.
func withTx(ctx context.Context, pool pgxQuerier, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("metastore/postgres: begin: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("metastore/postgres: commit: %w", err)
	}
	return nil
}

// pgxQuerier is satisfied by *pgxpool.Pool.
type pgxQuerier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
