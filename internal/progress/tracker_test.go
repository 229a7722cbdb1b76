package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerCounts(t *testing.T) {
	tr := NewTracker(3)
	tr.Complete()
	tr.Complete()
	tr.Error("location X: sheet id is required")
	tr.Warning("saint #4 has no legal name")

	done, total := tr.Completed()
	assert.Equal(t, 2, done)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"location X: sheet id is required"}, tr.Errors())
	assert.Equal(t, []string{"saint #4 has no legal name"}, tr.Warnings())
	assert.InDelta(t, 2.0/3.0, tr.SuccessRate(), 0.001)
}

func TestTrackerSetTotal(t *testing.T) {
	tr := NewTracker(0)
	assert.InDelta(t, 1.0, tr.SuccessRate(), 0.001)

	tr.SetTotal(4)
	tr.Complete()
	assert.InDelta(t, 0.25, tr.SuccessRate(), 0.001)
}

func TestTrackerReturnsCopies(t *testing.T) {
	tr := NewTracker(1)
	tr.Error("first")

	errs := tr.Errors()
	errs[0] = "mutated"
	assert.Equal(t, []string{"first"}, tr.Errors())
}

func TestTrackerConcurrentUse(t *testing.T) {
	tr := NewTracker(100)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Complete()
			tr.Error("e")
		}()
	}
	wg.Wait()

	done, _ := tr.Completed()
	assert.Equal(t, 100, done)
	assert.Len(t, tr.Errors(), 100)
}
