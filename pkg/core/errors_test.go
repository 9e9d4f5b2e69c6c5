package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/recall/pkg/storage"
)

func TestMemoryError(t *testing.T) {
	err := NewMemoryError("WriteMemory", ErrInvalidInput)
	require.Error(t, err)

	assert.Equal(t, "recall: WriteMemory: invalid input", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)

	var memErr *MemoryError
	require.ErrorAs(t, err, &memErr)
	assert.Equal(t, "WriteMemory", memErr.Op)
}

func TestMemoryErrorNil(t *testing.T) {
	assert.NoError(t, NewMemoryError("WriteMemory", nil))
}

func TestMemoryErrorUnwrapsThroughLayers(t *testing.T) {
	inner := fmt.Errorf("Get: %w", storage.ErrNotFound)
	err := NewMemoryError("GetMemory", inner)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestErrNotFoundAliasesStorage(t *testing.T) {
	assert.True(t, errors.Is(ErrNotFound, storage.ErrNotFound))
}
