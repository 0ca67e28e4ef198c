package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobpact/jobpact/models"
)

// brokenStore fails every operation with a fixed error, standing in for a
// database that went away.
type brokenStore struct {
	Store
	err error
}

func (b *brokenStore) CycleCount(CountScope) (int, error) { return 0, b.err }
func (b *brokenStore) ApplyCount(CountScope, int, []models.CounterApplicationLog, int) error {
	return b.err
}
func (b *brokenStore) InsertNotification(*models.Notification) error { return b.err }

func TestFailoverDegradesOnceAndReplaysTheWrite(t *testing.T) {
	durable := &brokenStore{err: errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")}
	volatile := NewMemStore()
	fs := NewFailoverStore(durable, volatile, zap.NewNop().Sugar())

	scope := CountScope{GroupID: 1, UserID: 7, CycleKey: "weekly-2026-02-09"}
	require.False(t, fs.Degraded())

	// The write that trips the failover must still land, on the volatile side.
	require.NoError(t, fs.ApplyCount(scope, 3, nil, 0))
	assert.True(t, fs.Degraded())

	n, err := fs.CycleCount(scope)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Everything after the degrade goes straight to the volatile store.
	require.NoError(t, fs.ApplyCount(scope, 5, nil, 0))
	n, err = fs.CycleCount(scope)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestFailoverDoesNotDegradeOnDuplicate(t *testing.T) {
	durable := &brokenStore{err: ErrDuplicate}
	fs := NewFailoverStore(durable, NewMemStore(), zap.NewNop().Sugar())

	key := "goal:1:7:weekly-2026-02-09"
	err := fs.InsertNotification(&models.Notification{UserID: 7, DedupeKey: &key})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.False(t, fs.Degraded())
}

func TestFailoverPassesThroughHealthyStore(t *testing.T) {
	durable := NewMemStore()
	volatile := NewMemStore()
	fs := NewFailoverStore(durable, volatile, zap.NewNop().Sugar())

	scope := CountScope{GroupID: 1, UserID: 7, CycleKey: "weekly-2026-02-09"}
	require.NoError(t, fs.ApplyCount(scope, 4, nil, 0))
	assert.False(t, fs.Degraded())

	n, err := durable.CycleCount(scope)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = volatile.CycleCount(scope)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStorageUnavailableClassification(t *testing.T) {
	unavailable := []error{
		errors.New("dial tcp 10.0.0.5:3306: i/o timeout"),
		errors.New("invalid connection"),
		errors.New("write: broken pipe"),
	}
	for _, err := range unavailable {
		assert.True(t, storageUnavailable(err), "%v", err)
	}

	available := []error{
		nil,
		ErrDuplicate,
		errors.New("Error 1062: Duplicate entry handled elsewhere"),
		errors.New("record not found"),
	}
	for _, err := range available {
		assert.False(t, storageUnavailable(err), "%v", err)
	}
}
