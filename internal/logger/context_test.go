package logger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfs/inkfs/internal/logger"
)

func TestWithContextAndFromContext(t *testing.T) {
	lc := &logger.LogContext{RequestID: "abc", Operation: "lookup_node"}
	ctx := logger.WithContext(context.Background(), lc)

	got := logger.FromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "abc", got.RequestID)
	assert.Equal(t, "lookup_node", got.Operation)
}

func TestFromContextNilContextAndMissingValue(t *testing.T) {
	assert.Nil(t, logger.FromContext(nil))
	assert.Nil(t, logger.FromContext(context.Background()))
}

func TestCloneIsIndependentCopy(t *testing.T) {
	lc := &logger.LogContext{RequestID: "r1"}
	clone := lc.Clone()
	require.NotNil(t, clone)

	clone.RequestID = "r2"
	assert.Equal(t, "r1", lc.RequestID)
	assert.Nil(t, (*logger.LogContext)(nil).Clone())
}

func TestWithOperationDoesNotMutateOriginal(t *testing.T) {
	lc := &logger.LogContext{Operation: "lookup_node"}
	updated := lc.WithOperation("create_file")

	assert.Equal(t, "lookup_node", lc.Operation)
	assert.Equal(t, "create_file", updated.Operation)
}

func TestDuration(t *testing.T) {
	var nilLC *logger.LogContext
	assert.Equal(t, time.Duration(0), nilLC.Duration())

	lc := &logger.LogContext{StartTime: time.Now().Add(-10 * time.Millisecond)}
	assert.GreaterOrEqual(t, lc.Duration(), 10*time.Millisecond)

	zeroLC := &logger.LogContext{}
	assert.Equal(t, time.Duration(0), zeroLC.Duration())
}
