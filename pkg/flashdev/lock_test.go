package flashdev

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockRecursiveSameTask(t *testing.T) {
	l := NewLock()
	l.Lock(1)
	l.Lock(1) // re-entrant, must not deadlock
	require.True(t, l.HeldBy(1))

	require.NoError(t, l.Unlock(1))
	require.True(t, l.HeldBy(1)) // still held, counter == 1

	require.NoError(t, l.Unlock(1))
	require.False(t, l.HeldBy(1))
}

func TestLockUnlockWithoutHoldingIsError(t *testing.T) {
	l := NewLock()
	err := l.Unlock(1)
	require.Error(t, err)
}

func TestLockBlocksOtherTasks(t *testing.T) {
	l := NewLock()
	l.Lock(1)

	acquired := make(chan struct{})
	go func() {
		l.Lock(2)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("task 2 acquired the lock while task 1 still held it")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, l.Unlock(1))

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("task 2 never acquired the lock after task 1 released it")
	}
	require.True(t, l.HeldBy(2))
}

func TestLockConcurrentContention(t *testing.T) {
	l := NewLock()
	var wg sync.WaitGroup
	var counter int
	for i := uint64(1); i <= 20; i++ {
		wg.Add(1)
		go func(task uint64) {
			defer wg.Done()
			l.Lock(task)
			counter++
			require.NoError(t, l.Unlock(task))
		}(i)
	}
	wg.Wait()
	require.Equal(t, 20, counter)
}
