package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFlowSubscribeStartsWithCurrentValue(t *testing.T) {
	flow := NewStateFlow("loading")

	ch, cancel := flow.Subscribe()
	defer cancel()

	assert.Equal(t, "loading", <-ch)

	flow.Set("ready")
	assert.Equal(t, "ready", <-ch)
	assert.Equal(t, "ready", flow.Value())
}

func TestStateFlowConflatesSlowSubscribers(t *testing.T) {
	flow := NewStateFlow(0)

	ch, cancel := flow.Subscribe()
	defer cancel()

	for i := 1; i <= 100; i++ {
		flow.Set(i)
	}

	assert.Equal(t, 100, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected backlog value %d", v)
	default:
	}
}

func TestStateFlowUpdateIsAtomic(t *testing.T) {
	flow := NewStateFlow(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			flow.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, flow.Value())
}

func TestStateFlowCancelClosesChannel(t *testing.T) {
	flow := NewStateFlow("a")

	ch, cancel := flow.Subscribe()
	<-ch
	cancel()
	cancel()

	_, ok := <-ch
	require.False(t, ok)

	// publishing after cancel must not panic
	flow.Set("b")
}
