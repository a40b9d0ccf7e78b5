package nodelock_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inkfs/inkfs/internal/model"
	"github.com/inkfs/inkfs/server/internal/nodelock"
)

func TestLockExcludesConcurrentWritersToSameNode(t *testing.T) {
	l := nodelock.New()
	id := model.NodeID(1)

	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := l.Lock(id)
			defer g.Unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				max := atomic.LoadInt32(&maxActive)
				if n <= max || atomic.CompareAndSwapInt32(&maxActive, max, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive, "only one writer should hold the lock for a given node at a time")
}

func TestLockDoesNotExcludeDifferentNodes(t *testing.T) {
	l := nodelock.New()

	g1 := l.Lock(model.NodeID(1))
	done := make(chan struct{})
	go func() {
		g2 := l.Lock(model.NodeID(2))
		g2.Unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("locking a different node blocked on an unrelated node's lock")
	}
	g1.Unlock()
}

func TestLockReentrantAfterUnlock(t *testing.T) {
	l := nodelock.New()
	id := model.NodeID(99)

	g := l.Lock(id)
	g.Unlock()

	done := make(chan struct{})
	go func() {
		g2 := l.Lock(id)
		g2.Unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("re-locking a node after Unlock should succeed immediately")
	}
}
