package ml

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForEachVisitsEveryIndexOnce(t *testing.T) {
	for _, limit := range []int{0, 1, 3, 64} {
		counts := make([]int32, 50)
		ForEach(len(counts), limit, func(i int) {
			atomic.AddInt32(&counts[i], 1)
		})
		for i, c := range counts {
			assert.Equal(t, int32(1), c, "limit %d index %d", limit, i)
		}
	}
	ForEach(0, 4, func(int) { t.Fatal("no work expected") })
}

func TestForEachBoundsConcurrency(t *testing.T) {
	var running, peak int32
	ForEach(40, 3, func(int) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		atomic.AddInt32(&running, -1)
	})
	assert.LessOrEqual(t, peak, int32(3))
}

func TestForEachPropagatesPanic(t *testing.T) {
	var done int32
	assert.PanicsWithValue(t, "boom", func() {
		ForEach(8, 4, func(i int) {
			atomic.AddInt32(&done, 1)
			if i == 5 {
				panic("boom")
			}
		})
	})
	assert.Equal(t, int32(8), atomic.LoadInt32(&done), "other bodies still ran")
}

func TestDefaultWorkers(t *testing.T) {
	assert.Positive(t, DefaultWorkers())
}
