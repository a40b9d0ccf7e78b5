package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/inkfs/inkfs/internal/model"
)

// allocateID claims the next free NodeID under tx, advancing and persisting
// node_id_counter. It loops past any ID already in use, the collision case
// spec §4.1 calls out for once the counter has wrapped back to ROOT+1.
func allocateID(ctx context.Context, tx pgx.Tx) (model.NodeID, error) {
	var current uint64
	if err := tx.QueryRow(ctx, `SELECT current_id FROM node_id_counter FOR UPDATE`).Scan(&current); err != nil {
		return 0, err
	}

	id := model.NodeID(current).Next()
	for {
		inUse, err := idInUse(ctx, tx, id)
		if err != nil {
			return 0, err
		}
		if !inUse {
			break
		}
		id = id.Next()
	}

	if _, err := tx.Exec(ctx, `UPDATE node_id_counter SET current_id = $1`, uint64(id)); err != nil {
		return 0, err
	}
	return id, nil
}

func idInUse(ctx context.Context, tx pgx.Tx, id model.NodeID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM directories WHERE id = $1)
		    OR EXISTS(SELECT 1 FROM files WHERE id = $1)
	`, uint64(id)).Scan(&exists)
	return exists, err
}
