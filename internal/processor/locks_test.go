package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTable_AcquireRelease(t *testing.T) {
	table := newLockTable()

	release, err := table.acquire(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, table.size())

	release()

	// Лок свободен: повторный захват не блокируется
	release, err = table.acquire(context.Background(), "t1")
	require.NoError(t, err)
	release()
}

func TestLockTable_SerializesHolders(t *testing.T) {
	table := newLockTable()

	release, err := table.acquire(context.Background(), "t1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		release2, err := table.acquire(context.Background(), "t1")
		assert.NoError(t, err)
		release2()
		close(acquired)
	}()

	// Пока лок захвачен, второй захват ждёт
	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not acquired after release")
	}
}

func TestLockTable_AcquireCancelled(t *testing.T) {
	table := newLockTable()

	release, err := table.acquire(context.Background(), "t1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = table.acquire(ctx, "t1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLockTable_RemoveIfIdle(t *testing.T) {
	table := newLockTable()

	release, err := table.acquire(context.Background(), "t1")
	require.NoError(t, err)

	// Захваченный лок не удаляется
	assert.False(t, table.removeIfIdle("t1"))

	release()
	assert.True(t, table.removeIfIdle("t1"))
	assert.Equal(t, 0, table.size())

	// Неизвестный id — no-op
	assert.False(t, table.removeIfIdle("missing"))
}
