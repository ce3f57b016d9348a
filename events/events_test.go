package events

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventPublishingAndSubscribing checks that emitter subscribers only see their own emitter's events, while global
// subscribers see every emitter's events of their type.
func TestEventPublishingAndSubscribing(t *testing.T) {
	type stepEvent struct{ step int }
	type doneEvent struct{}

	first := EventEmitter[stepEvent]{}
	second := EventEmitter[stepEvent]{}
	done := EventEmitter[doneEvent]{}

	var firstCount, secondCount, doneCount, globalStepCount int
	var lastStep int
	first.Subscribe(func(event stepEvent) error {
		firstCount++
		lastStep = event.step
		return nil
	})
	second.Subscribe(func(event stepEvent) error {
		secondCount++
		return nil
	})
	done.Subscribe(func(event doneEvent) error {
		doneCount++
		return nil
	})
	SubscribeAny(func(event stepEvent) error {
		globalStepCount++
		return nil
	})

	for i := 1; i <= 3; i++ {
		require.NoError(t, first.Publish(stepEvent{step: i}))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, second.Publish(stepEvent{}))
	}
	require.NoError(t, done.Publish(doneEvent{}))

	assert.Equal(t, 3, firstCount)
	assert.Equal(t, 3, lastStep)
	assert.Equal(t, 5, secondCount)
	assert.Equal(t, 1, doneCount)
	assert.Equal(t, 8, globalStepCount)
	assert.Equal(t, 1, first.SubscriberCount())
}

// TestPublishReturnsFirstError checks that a failing handler does not stop later handlers.
func TestPublishReturnsFirstError(t *testing.T) {
	type failingEvent struct{}

	emitter := EventEmitter[failingEvent]{}
	errFirst := errors.New("first")
	calls := 0
	emitter.Subscribe(func(failingEvent) error {
		calls++
		return errFirst
	})
	emitter.Subscribe(func(failingEvent) error {
		calls++
		return errors.New("second")
	})

	err := emitter.Publish(failingEvent{})
	assert.ErrorIs(t, err, errFirst)
	assert.Equal(t, 2, calls)
}

// TestConcurrentPublish checks that an emitter may be published to from several goroutines.
func TestConcurrentPublish(t *testing.T) {
	type concurrentEvent struct{}

	emitter := EventEmitter[concurrentEvent]{}
	var count atomic.Int64
	emitter.Subscribe(func(concurrentEvent) error {
		count.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = emitter.Publish(concurrentEvent{})
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 800, count.Load())
}
