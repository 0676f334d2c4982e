package dedup_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Salmanazari/keylybot/internal/dedup"
)

func TestFilter_MarkThenSeen(t *testing.T) {
	t.Parallel()
	f := dedup.NewFilter(10)
	assert.False(t, f.Seen("update-1"))
	f.Mark("update-1")
	assert.True(t, f.Seen("update-1"))
	assert.False(t, f.Seen("update-2"))
}

func TestFilter_SeenOrMarkAdmitsExactlyOnce(t *testing.T) {
	t.Parallel()
	f := dedup.NewFilter(10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !f.SeenOrMark("update-1") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, admitted, "exactly one delivery of an event may pass the filter")
	assert.True(t, f.Seen("update-1"))
}

func TestFilter_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()
	f := dedup.NewFilter(3)
	f.Mark("a")
	f.Mark("b")
	f.Mark("c")
	f.Mark("d")
	assert.Equal(t, 3, f.Len())
	assert.False(t, f.Seen("a"), "oldest entry should be evicted first")
	assert.True(t, f.Seen("b"))
	assert.True(t, f.Seen("d"))
}

func TestFilter_RemarkDoesNotRefreshOrder(t *testing.T) {
	t.Parallel()
	f := dedup.NewFilter(2)
	f.Mark("a")
	f.Mark("b")
	f.Mark("a") // no-op
	f.Mark("c") // evicts "a", the oldest insertion
	assert.False(t, f.Seen("a"))
	assert.True(t, f.Seen("b"))
	assert.True(t, f.Seen("c"))
}

func TestFilter_BoundedUnderConcurrency(t *testing.T) {
	t.Parallel()
	f := dedup.NewFilter(100)
	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				id := fmt.Sprintf("w%d-%d", worker, i)
				f.Mark(id)
				f.Seen(id)
			}
		}(worker)
	}
	wg.Wait()
	assert.LessOrEqual(t, f.Len(), 100)
}
