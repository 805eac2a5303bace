package stores

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexWaitHonoursContext(t *testing.T) {
	k := newKeyedMutex()
	unlock, err := k.Lock(context.Background(), "c1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(ctx, "c1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// other keys are independent
	unlockOther, err := k.Lock(context.Background(), "c2")
	require.NoError(t, err)
	unlockOther()

	unlock()
	assert.Zero(t, k.size())
}

func TestObservableKeepsLatest(t *testing.T) {
	o := NewObservable(0)
	ch, cancel := o.Subscribe()
	for i := 1; i <= 5; i++ {
		o.publish(i)
	}
	assert.Equal(t, 5, <-ch)
	assert.Equal(t, 5, o.Get())

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}
