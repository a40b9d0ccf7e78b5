//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testcontainers "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/inkfs/inkfs/internal/apierror"
	"github.com/inkfs/inkfs/internal/model"
	"github.com/inkfs/inkfs/server/internal/metastore"
	"github.com/inkfs/inkfs/server/internal/metastore/postgres"
	"github.com/inkfs/inkfs/server/internal/metastore/storetest"
)

// TestPostgresStore runs the shared conformance suite against a real
// PostgreSQL instance, started via testcontainers unless POSTGRES_DSN is set
// to point at one already running.
func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	dsn := dsnForTest(t, ctx)

	if err := postgres.Migrate(ctx, dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	storetest.Run(t, func() metastore.Store {
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := store.ResetForTest(ctx); err != nil {
			t.Fatalf("reset schema between subtests: %v", err)
		}
		return store
	})
}

// TestConcurrentCreateFileRaceLoserGetsLocation exercises the path
// CreateFile's pre-insert lookupEntry check can't cover: two concurrent
// CreateFile calls for the same (parent, name), racing past the pre-check
// and resolving via the real 23505 unique-constraint violation. The loser
// must still come back with AlreadyExists and a Location pointing at the
// winner, matching the pre-check path's behavior.
func TestConcurrentCreateFileRaceLoserGetsLocation(t *testing.T) {
	ctx := context.Background()
	dsn := dsnForTest(t, ctx)

	if err := postgres.Migrate(ctx, dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store, err := postgres.Open(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.ResetForTest(ctx))

	var wg sync.WaitGroup
	ids := make([]model.NodeID, 2)
	errs := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = store.CreateFile(ctx, model.ROOT, "racer.txt")
		}(i)
	}
	wg.Wait()

	var winner, loser int
	switch {
	case errs[0] == nil && errs[1] != nil:
		winner, loser = 0, 1
	case errs[1] == nil && errs[0] != nil:
		winner, loser = 1, 0
	default:
		t.Fatalf("expected exactly one CreateFile to fail, got errs=%v", errs)
	}

	apiErr, ok := apierror.As(errs[loser])
	require.True(t, ok, "loser error must be an apierror.Error, got %v", errs[loser])
	assert.Equal(t, apierror.KindAlreadyExists, apiErr.Kind)
	assert.Equal(t, "/api/file/"+ids[winner].String(), apiErr.Location)
}

func dsnForTest(t *testing.T, ctx context.Context) string {
	t.Helper()

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		return dsn
	}

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("inkfs_test"),
		tcpostgres.WithUsername("inkfs_test"),
		tcpostgres.WithPassword("inkfs_test"),
		testcontainers.WithWaitStrategyAndDeadline(5*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	return fmt.Sprintf("postgres://inkfs_test:inkfs_test@%s:%s/inkfs_test?sslmode=disable", host, port.Port())
}
