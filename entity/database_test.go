package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndreGCGuerra/dune/errors"
	"github.com/AndreGCGuerra/dune/message"
)

func TestReserveIsIdempotentPerLabel(t *testing.T) {
	db := NewDatabase()

	id1, err := db.Reserve("Motor 0", "amc")
	require.NoError(t, err)

	id2, err := db.Reserve("Motor 0", "amc")
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "same label reserves the same id, never a duplicate")
}

func TestReserveRejectsForeignOwner(t *testing.T) {
	db := NewDatabase()

	_, err := db.Reserve("Motor 0", "amc")
	require.NoError(t, err)

	_, err = db.Reserve("Motor 0", "camera")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateLabel))
}

func TestReserveRejectsEmptyLabel(t *testing.T) {
	db := NewDatabase()

	id, err := db.Reserve("", "amc")
	require.Error(t, err)
	assert.Equal(t, message.UnknownEntity, id)
}

func TestIdsAreUniqueAndStable(t *testing.T) {
	db := NewDatabase()

	seen := make(map[uint16]string)
	labels := []string{"Motor 0", "Motor 1", "Motor 2", "Motor 3", "Camera"}
	for _, label := range labels {
		id, err := db.Reserve(label, "owner")
		require.NoError(t, err)
		require.NotEqual(t, message.UnknownEntity, id, "sentinel never handed out")
		prev, dup := seen[id]
		require.False(t, dup, "id %d reused for %q and %q", id, prev, label)
		seen[id] = label
	}
}

func TestResolve(t *testing.T) {
	db := NewDatabase()

	id, err := db.Reserve("Motor 2", "amc")
	require.NoError(t, err)

	got, err := db.Resolve("Motor 2")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = db.Resolve("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNonexistentLabel))
	assert.True(t, errors.IsTransient(err), "resolution failures are retried")
}

func TestLookupAndOwnedBy(t *testing.T) {
	db := NewDatabase()

	id, err := db.Reserve("Motor 0", "amc")
	require.NoError(t, err)
	_, err = db.Reserve("Camera", "camera")
	require.NoError(t, err)

	info, err := db.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, "Motor 0", info.Label)
	assert.Equal(t, "amc", info.Owner)

	_, err = db.Lookup(999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownEntity))

	owned := db.OwnedBy("amc")
	require.Len(t, owned, 1)
	assert.Equal(t, "Motor 0", owned[0].Label)
}
