package apierror_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkfs/inkfs/internal/apierror"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		kind apierror.Kind
		want int
	}{
		{apierror.KindNotFound, http.StatusNotFound},
		{apierror.KindNotAFile, http.StatusConflict},
		{apierror.KindNotADirectory, http.StatusConflict},
		{apierror.KindAlreadyExists, http.StatusConflict},
		{apierror.KindDirectoryNotEmpty, http.StatusConflict},
		{apierror.KindModified, http.StatusPreconditionFailed},
		{apierror.KindNotModified, http.StatusNotModified},
		{apierror.KindPreconditionRequired, http.StatusPreconditionRequired},
		{apierror.KindBadRequest, http.StatusBadRequest},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.kind.Status())
	}
}

func TestConflictBodiesAreExactWireStrings(t *testing.T) {
	assert.Equal(t, "Not A File", apierror.KindNotAFile.Body())
	assert.Equal(t, "Not A Directory", apierror.KindNotADirectory.Body())
	assert.Equal(t, "Already Exists", apierror.KindAlreadyExists.Body())
	assert.Equal(t, "Directory Not Empty", apierror.KindDirectoryNotEmpty.Body())
}

func TestNewAlreadyExistsCarriesLocation(t *testing.T) {
	err := apierror.NewAlreadyExists("/api/node/7")
	assert.Equal(t, apierror.KindAlreadyExists, err.Kind)
	assert.Equal(t, "/api/node/7", err.Location)
}

func TestErrorMessage(t *testing.T) {
	err := apierror.New(apierror.KindNotFound, "")
	assert.Equal(t, "not found", err.Error())

	err2 := apierror.New(apierror.KindNotFound, "custom message")
	assert.Equal(t, "custom message", err2.Error())
}

func TestAsExtractsAPIError(t *testing.T) {
	var err error = apierror.New(apierror.KindBadRequest, "bad")
	got, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindBadRequest, got.Kind)

	_, ok = apierror.As(assertPlainError{})
	assert.False(t, ok)
}

type assertPlainError struct{}

func (assertPlainError) Error() string { return "plain" }
