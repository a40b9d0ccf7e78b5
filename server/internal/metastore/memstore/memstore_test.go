package memstore_test

import (
	"testing"

	"github.com/inkfs/inkfs/server/internal/metastore"
	"github.com/inkfs/inkfs/server/internal/metastore/memstore"
	"github.com/inkfs/inkfs/server/internal/metastore/storetest"
)

func TestMemstore(t *testing.T) {
	storetest.Run(t, func() metastore.Store { return memstore.New() })
}
