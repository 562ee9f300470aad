package queue

import "sync"
import "testing"
import "time"

import "github.com/stretchr/testify/assert"

import "github.com/leapus/mapindexer/internal/ierr"

func TestPushPopFIFO(t *testing.T) {
	q := New[int]()

	q.Push(1)
	q.Push(2)
	q.Push(3)

	for _, want := range []int{1, 2, 3} {
		got, err := q.Pop()
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New[int]()

	done := make(chan int, 1)
	go func() {
		v, err := q.Pop()
		assert.NoError(t, err)
		done <- v
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(42)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after Push")
	}
}

func TestInterruptUnblocksParkedPop(t *testing.T) {
	q := New[int]()

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Pop()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Interrupt()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ierr.ErrInterrupted)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after Interrupt")
	}
	assert.True(t, q.Interrupted())
}

func TestInterruptDoesNotDropAlreadyQueuedItems(t *testing.T) {
	q := New[int]()
	q.Push(7)
	q.Interrupt()

	v, err := q.Pop()
	assert.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = q.Pop()
	assert.ErrorIs(t, err, ierr.ErrInterrupted)
}

func TestConcurrentProducersConsumersSeeEveryItem(t *testing.T) {
	q := New[int]()
	const n = 2000

	var wg sync.WaitGroup
	wg.Add(10)
	for p := 0; p < 10; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < n/10; i++ {
				q.Push(base*n + i)
			}
		}(p)
	}

	results := make(chan int, n)
	var consumers sync.WaitGroup
	consumers.Add(4)
	for c := 0; c < 4; c++ {
		go func() {
			defer consumers.Done()
			for i := 0; i < n/4; i++ {
				v, err := q.Pop()
				assert.NoError(t, err)
				results <- v
			}
		}()
	}

	wg.Wait()
	consumers.Wait()
	close(results)

	seen := make(map[int]bool, n)
	for v := range results {
		seen[v] = true
	}
	assert.Equal(t, n, len(seen))
}
